package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// key help widget
	Solid rune // ■ bound key
	Empty rune // □ unbound key

	// preset states
	Idle        rune // ○ inactive
	Active      rune // ● active / playing
	Loading     rune // ◌ file fetch in flight
	Unavailable rune // ✕ file failed
	Default     rune // * armed at load
	Loop        rune // ↻ loops

	// device binding
	Bound   rune // ▣
	Unbound rune // ▢
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Solid: '■',
			Empty: '□',

			Idle:        '○',
			Active:      '●',
			Loading:     '◌',
			Unavailable: '✕',
			Default:     '*',
			Loop:        '↻',

			Bound:   '▣',
			Unbound: '▢',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

func (t *Theme) BG() lipgloss.Color      { return t.Color(RoleBG) }
func (t *Theme) Surface() lipgloss.Color { return t.Color(RoleSurface) }
func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return Lipgloss(t.Palette.Lookup(norm))
}

// Group returns the color of group i of n, matching its Launchpad row
func (t *Theme) Group(i, n int) lipgloss.Color {
	return Lipgloss(t.Palette.Spread(i, n))
}

// Lipgloss converts a raw RGB triple to a terminal color
func Lipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
