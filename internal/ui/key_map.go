package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	flip   key.Binding
	merge  key.Binding
	reload key.Binding
	help   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		flip:   key.NewBinding(key.WithKeys("f", " "), key.WithHelp("f/space", "flip")),
		merge:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "merged")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.flip, k.merge, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.flip, k.merge},
		{k.reload, k.help, k.quit},
	}
}
