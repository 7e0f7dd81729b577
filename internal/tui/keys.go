package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit           key.Binding
	Search         key.Binding
	FilterSeverity key.Binding
	FilterCategory key.Binding
	CycleStatus    key.Binding
	Detail         key.Binding
	Copy           key.Binding
	ClearFilter    key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	FilterSeverity: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "filter severity"),
	),
	FilterCategory: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "filter category"),
	),
	CycleStatus: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open/resolved/all"),
	),
	Detail: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "detail"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy"),
	),
	ClearFilter: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
}
