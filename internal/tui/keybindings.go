package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the menu's fixed key bindings.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Join    key.Binding
	Details key.Binding
	Filter  key.Binding
	Refresh key.Binding
	Cancel  key.Binding
	Tab     key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Join: key.NewBinding(
			key.WithKeys(keyEnter),
			key.WithHelp("enter", "join"),
		),
		Details: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "details"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel search"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch view"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// browseHelp returns the bindings shown under the session browser.
func (k keyMap) browseHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Join, k.Details, k.Filter, k.Refresh, k.Cancel, k.Tab, k.Quit}
}

// formHelp returns the bindings shown under the host and settings forms.
func formHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		key.NewBinding(key.WithKeys(keyEnter), key.WithHelp("enter", "submit")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to browse")),
	}
}
