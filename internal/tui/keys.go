package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pattern  key.Binding
	Circular key.Binding
	Drawing  key.Binding
	Reset    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pattern:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "pattern")),
		Circular: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "circular")),
		Drawing:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "drawing")),
		Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pattern, k.Circular, k.Drawing, k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pattern, k.Circular, k.Drawing},
		{k.Reset, k.Help, k.Quit},
	}
}
