package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the browser key bindings.
type KeyMap struct {
	Quit   key.Binding
	Copy   key.Binding
	Detail key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Copy: key.NewBinding(
			key.WithKeys("enter", "c"),
			key.WithHelp("enter", "copy password"),
		),
		Detail: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "toggle details"),
		),
	}
}
