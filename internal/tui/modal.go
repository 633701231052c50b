package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is drawn over the monitor and receives keys first. Update returns
// true when the modal should be popped.
type Modal interface {
	ID() string
	Update(msg tea.Msg) (pop bool, cmd tea.Cmd)
	View(width, height int) string
}

// helpModal lists every key binding.
type helpModal struct {
	keys KeyMap
	help help.Model
}

func newHelpModal(keys KeyMap) *helpModal {
	h := help.New()
	h.ShowAll = true
	return &helpModal{keys: keys, help: h}
}

func (h *helpModal) ID() string { return "help" }

func (h *helpModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc", "?", "q", "enter":
			return true, nil
		}
	}
	return false, nil
}

func (h *helpModal) View(width, height int) string {
	h.help.Width = max(20, width-12)
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keys"),
		"",
		h.help.View(h.keys),
		"",
		dimStyle.Render("Chart: ←/→ move the window by one step; scrolling past now resumes live."),
		dimStyle.Render("Table: moving off the newest row stops auto-scroll; End resumes it."),
		"",
		dimStyle.Render("esc: close"),
	)
	return renderModalFrame(body, width, height)
}

// exportModal asks for the export path. The extension picks the format.
type exportModal struct {
	input  textinput.Model
	export func(path string) tea.Cmd
}

func newExportModal(defaultPath string, export func(path string) tea.Cmd) *exportModal {
	in := textinput.New()
	in.SetValue(defaultPath)
	in.CharLimit = 512
	in.Focus()
	in.CursorEnd()
	return &exportModal{input: in, export: export}
}

func (e *exportModal) ID() string { return "export" }

func (e *exportModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return true, nil
		case "enter":
			return true, e.export(e.input.Value())
		}
	}
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return false, cmd
}

func (e *exportModal) View(width, height int) string {
	e.input.Width = max(20, width-20)
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Export"),
		"",
		e.input.View(),
		"",
		dimStyle.Render(".csv table • .parquet / .duckdb columnar • .png chart window"),
		dimStyle.Render("enter: export • esc: cancel"),
	)
	return renderModalFrame(body, width, height)
}

func renderModalFrame(body string, width, height int) string {
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Padding(1, 2).
		MaxWidth(max(20, width-4)).
		Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, frame)
}
