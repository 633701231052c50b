package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all monitor key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding

	// Tabs
	NextTab    key.Binding
	PrevTab    key.Binding
	TabTable   key.Binding
	TabChart   key.Binding
	TabNames   key.Binding
	TabConsole key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Home     key.Binding
	End      key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Enter    key.Binding

	// Chart
	ScrollBack    key.Binding
	ScrollForward key.Binding
	GoLive        key.Binding

	// Actions
	Connect    key.Binding
	Disconnect key.Binding
	AddName    key.Binding
	RemoveName key.Binding
	ClearNames key.Binding
	Export     key.Binding
	ClearTable key.Binding
	Refresh    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/close"),
		),

		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev tab"),
		),
		TabTable: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "table"),
		),
		TabChart: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "chart"),
		),
		TabNames: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "names"),
		),
		TabConsole: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "console"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end", "latest"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),

		ScrollBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "scroll back"),
		),
		ScrollForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "scroll forward"),
		),
		GoLive: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "follow live"),
		),

		Connect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "connect"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "disconnect"),
		),
		AddName: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add name"),
		),
		RemoveName: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "remove name"),
		),
		ClearNames: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "clear names"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		ClearTable: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear table"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan ports"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Connect, k.Disconnect, k.Export, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.TabTable, k.TabChart, k.TabNames, k.TabConsole},
		{k.Up, k.Down, k.Home, k.End, k.PageUp, k.PageDown},
		{k.ScrollBack, k.ScrollForward, k.GoLive},
		{k.Connect, k.Disconnect, k.AddName, k.RemoveName, k.ClearNames},
		{k.Export, k.ClearTable, k.Help, k.Quit},
	}
}
