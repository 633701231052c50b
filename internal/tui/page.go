package tui

import tea "github.com/charmbracelet/bubbletea"

// Page represents a top-level screen in the TUI (monitor, port picker).
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// Activator is implemented by pages that refresh state when shown.
type Activator interface {
	Activate() tea.Cmd
}

// PageNav is returned from Update to request a page switch.
type PageNav struct {
	PageID string
}
