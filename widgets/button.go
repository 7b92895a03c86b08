package widgets

import (
	"github.com/charmbracelet/lipgloss"
)

// Button is one preset as drawn in a group row
type Button struct {
	Label    string
	Symbol   rune
	Active   bool
	Selected bool // under the cursor
	Disabled bool // cannot be activated right now
}

// ButtonStyle holds the colors a button row is drawn with
type ButtonStyle struct {
	Active   lipgloss.Color // fill of an active button, usually the group color
	FG       lipgloss.Color
	Muted    lipgloss.Color
	Cursor   lipgloss.Color
	ActiveFG lipgloss.Color
}

// RenderButton draws a bracketed button, filled when active
func RenderButton(b Button, s ButtonStyle) string {
	style := lipgloss.NewStyle().Padding(0, 1).Foreground(s.FG)
	switch {
	case b.Active:
		style = style.Background(s.Active).Foreground(s.ActiveFG).Bold(true)
	case b.Disabled:
		style = style.Foreground(s.Muted)
	}

	text := string(b.Symbol) + " " + b.Label
	if b.Selected {
		cursor := lipgloss.NewStyle().Foreground(s.Cursor)
		return cursor.Render("[") + style.Render(text) + cursor.Render("]")
	}
	return " " + style.Render(text) + " "
}

// RenderButtonRow joins buttons on one line
func RenderButtonRow(buttons []Button, s ButtonStyle) string {
	parts := make([]string, len(buttons))
	for i, b := range buttons {
		parts[i] = RenderButton(b, s)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
