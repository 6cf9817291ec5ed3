package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Submit key.Binding
	Focus  key.Binding
	Up     key.Binding
	Down   key.Binding
	Cancel key.Binding

	// Power
	Reboot   key.Binding
	PowerOff key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "session"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "down"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Reboot: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "reboot"),
		),
		PowerOff: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("F2", "power off"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Focus, k.Reboot, k.PowerOff}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Focus, k.Cancel},
		{k.Up, k.Down},
		{k.Reboot, k.PowerOff, k.Quit},
	}
}
