package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"solo-orchestra/engine"
	"solo-orchestra/midi"
	"solo-orchestra/performance"
	"solo-orchestra/theme"
	"solo-orchestra/widgets"
)

type Model struct {
	Engine  *engine.Engine
	Devices <-chan midi.DeviceEvent // nil when hot-plug is off
	Theme   *theme.Theme

	keys     keyMap
	help     help.Model
	state    engine.State
	group    int // cursor row
	preset   int // cursor column
	width    int
	quitting bool
}

// UpdateMsg means the engine state changed
type UpdateMsg struct{}

type refreshMsg struct{}

type DeviceEventMsg midi.DeviceEvent

func NewModel(e *engine.Engine, devices <-chan midi.DeviceEvent, th *theme.Theme) Model {
	return Model{
		Engine:  e,
		Devices: devices,
		Theme:   th,
		keys:    defaultKeys(),
		help:    help.New(),
	}
}

func ListenForUpdates(e *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		<-e.Updates()
		return UpdateMsg{}
	}
}

func ListenForDevices(events <-chan midi.DeviceEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return refreshMsg{} },
		ListenForUpdates(m.Engine),
		ListenForDevices(m.Devices),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case refreshMsg:
		m.refresh()

	case UpdateMsg:
		m.refresh()
		return m, ListenForUpdates(m.Engine)

	case DeviceEventMsg:
		m.Engine.HandleDeviceEvent(midi.DeviceEvent(msg))
		m.refresh()
		return m, ListenForDevices(m.Devices)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.group--
	case key.Matches(msg, m.keys.Down):
		m.group++
	case key.Matches(msg, m.keys.Left):
		m.preset--
	case key.Matches(msg, m.keys.Right):
		m.preset++

	case key.Matches(msg, m.keys.Toggle):
		m.activate(m.preset)

	case key.Matches(msg, m.keys.Pick):
		idx := int(msg.String()[0] - '1')
		m.activate(idx)
		m.preset = idx

	case key.Matches(msg, m.keys.Panic):
		m.Engine.Panic()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	m.refresh()
	return m, nil
}

func (m *Model) activate(idx int) {
	if m.group < 0 || m.group >= len(m.state.Groups) {
		return
	}
	g := m.state.Groups[m.group]
	if idx < 0 || idx >= len(g.Presets) {
		return
	}
	m.Engine.ActivatePreset(g.ID, g.Presets[idx].ID)
}

// refresh pulls a new snapshot and keeps the cursor inside it
func (m *Model) refresh() {
	m.state = m.Engine.Snapshot()
	m.group = clamp(m.group, len(m.state.Groups))
	if len(m.state.Groups) == 0 {
		m.preset = 0
		return
	}
	m.preset = clamp(m.preset, len(m.state.Groups[m.group].Presets))
}

func clamp(v, n int) int {
	if v >= n {
		v = n - 1
	}
	return max(v, 0)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	title := m.state.Title
	if title == "" {
		title = "no performance"
	}
	if m.state.Song != "" {
		title += "  " + m.state.Song
	}
	surface := ""
	if m.state.Controller != "" {
		surface = "  LP:" + m.state.Controller
	}
	header := headerStyle.Render("solo-orchestra  "+title) + dimStyle.Render(surface)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(m.deviceLine())
	out.WriteString("\n\n")

	groups := m.groupsView()
	if m.state.Controller != "" {
		groups = lipgloss.JoinHorizontal(lipgloss.Top, groups, "    ", widgets.RenderPadGrid(m.state.Pads))
	}
	out.WriteString(groups)
	out.WriteString("\n\n")
	out.WriteString(m.help.View(m.keys))

	return out.String()
}

func (m Model) deviceLine() string {
	bound := lipgloss.NewStyle().Foreground(m.Theme.Success())
	unbound := lipgloss.NewStyle().Foreground(m.Theme.Warning())
	dim := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	render := func(label string, devs []midi.DeviceStatus) string {
		parts := []string{dim.Render(label)}
		for _, d := range devs {
			name := d.Device.Title
			if name == "" {
				name = d.Device.ID
			}
			if d.Bound() {
				parts = append(parts, bound.Render(string(m.Theme.Symbols.Bound)+" "+name))
			} else {
				parts = append(parts, unbound.Render(string(m.Theme.Symbols.Unbound)+" "+name))
			}
		}
		return strings.Join(parts, " ")
	}
	return render("in:", m.state.Inputs) + "   " + render("out:", m.state.Outputs)
}

func (m Model) groupsView() string {
	if len(m.state.Groups) == 0 {
		return lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render("  (no groups)")
	}

	var lines []string
	n := len(m.state.Groups)
	for gi, g := range m.state.Groups {
		color := m.Theme.Group(gi, n)
		label := g.Title
		if label == "" {
			label = g.ID
		}
		kind := string(g.Type)
		if g.Exclusive {
			kind += " excl"
		}
		name := lipgloss.NewStyle().Foreground(color).Bold(gi == m.group).Width(16).Render(label)
		tag := lipgloss.NewStyle().Foreground(m.Theme.Muted()).Width(14).Render(kind)

		buttons := make([]widgets.Button, len(g.Presets))
		for pi, p := range g.Presets {
			buttons[pi] = m.button(g, p, gi == m.group && pi == m.preset)
		}
		style := widgets.ButtonStyle{
			Active:   color,
			FG:       m.Theme.FG(),
			Muted:    m.Theme.Muted(),
			Cursor:   m.Theme.Cursor(),
			ActiveFG: m.Theme.BG(),
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", name, tag, widgets.RenderButtonRow(buttons, style)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) button(g engine.GroupState, p engine.PresetState, selected bool) widgets.Button {
	sym := m.Theme.Symbols
	label := p.Title
	if label == "" {
		label = p.ID
	}
	if p.Default {
		label += string(sym.Default)
	}
	if p.Loop {
		label += " " + string(sym.Loop)
	}

	b := widgets.Button{Label: label, Symbol: sym.Idle, Active: p.Active, Selected: selected}
	if p.Active {
		b.Symbol = sym.Active
	}
	if g.Type == performance.GroupPlayer && !p.Active {
		switch p.File {
		case engine.FilePending:
			b.Symbol = sym.Loading
			b.Disabled = true
		case engine.FileFailed, engine.FileNone:
			b.Symbol = sym.Unavailable
			b.Disabled = true
		}
	}
	return b
}
