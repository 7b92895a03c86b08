package tui

import "github.com/charmbracelet/bubbles/key"

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Toggle                key.Binding
	Pick                  key.Binding // 1-9
	Panic                 key.Binding
	Help                  key.Binding
	Quit                  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:     binding("group up", "k", "up"),
		Down:   binding("group down", "j", "down"),
		Left:   binding("prev preset", "h", "left"),
		Right:  binding("next preset", "l", "right"),
		Toggle: binding("toggle", "enter", " "),
		Pick: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle nth preset"),
		),
		Panic: binding("all notes off", "!"),
		Help:  binding("help", "?"),
		Quit:  binding("quit", "q", "ctrl+c"),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Pick, k.Panic, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.Pick},
		{k.Panic, k.Help, k.Quit},
	}
}
