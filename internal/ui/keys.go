package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	Back     key.Binding
	Enter    key.Binding
	Refresh  key.Binding
	Retry    key.Binding
	OpenURL  key.Binding
	LoadMore key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Collapse key.Binding
	Parent   key.Binding
	NextSib  key.Binding
	Tab1     key.Binding
	Tab2     key.Binding
	Tab3     key.Binding
	Tab4     key.Binding
	Tab5     key.Binding
	Tab6     key.Binding
}

var Keys = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Refresh:  key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "refresh")),
	Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	OpenURL:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open url")),
	LoadMore: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "more")),
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
	PageUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "page up")),
	PageDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "page down")),
	Home:     key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	End:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Collapse: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "collapse")),
	Parent:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "parent")),
	NextSib:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next sibling")),
	Tab1:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "top")),
	Tab2:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "new")),
	Tab3:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "best")),
	Tab4:     key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "ask")),
	Tab5:     key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "show")),
	Tab6:     key.NewBinding(key.WithKeys("6"), key.WithHelp("6", "jobs")),
}
