package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type portsLoadedMsg struct {
	ports []string
	err   error
}

// PortsPage lists serial ports and requests a connection to the chosen one.
// The last chosen port is preselected on the next visit.
type PortsPage struct {
	list     func() ([]string, error)
	keys     KeyMap
	ports    []string
	cursor   int
	lastPort string
	loading  bool
	spin     spinner.Model
	err      error
}

// NewPortsPage creates the picker. lastPort may be empty.
func NewPortsPage(list func() ([]string, error), lastPort string) *PortsPage {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorBlue)
	return &PortsPage{list: list, keys: DefaultKeyMap(), lastPort: lastPort, spin: sp}
}

func (p *PortsPage) ID() string { return portsPageID }

func (p *PortsPage) Init() tea.Cmd { return nil }

// Activate rescans ports each time the page is shown.
func (p *PortsPage) Activate() tea.Cmd {
	return p.rescan()
}

func (p *PortsPage) rescan() tea.Cmd {
	p.loading = true
	return tea.Batch(p.scanCmd(), p.spin.Tick)
}

func (p *PortsPage) scanCmd() tea.Cmd {
	list := p.list
	return func() tea.Msg {
		if list == nil {
			return portsLoadedMsg{}
		}
		ports, err := list()
		return portsLoadedMsg{ports: ports, err: err}
	}
}

func (p *PortsPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case portsLoadedMsg:
		p.loading = false
		p.ports, p.err = msg.ports, msg.err
		p.cursor = 0
		for i, port := range p.ports {
			if port == p.lastPort {
				p.cursor = i
				break
			}
		}
		return nil, nil

	case spinner.TickMsg:
		if !p.loading {
			return nil, nil
		}
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return cmd, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.ForceQuit):
			return tea.Quit, nil
		case key.Matches(msg, p.keys.Escape), key.Matches(msg, p.keys.Quit):
			return nil, &PageNav{PageID: monitorPageID}
		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.ports)-1 {
				p.cursor++
			}
		case key.Matches(msg, p.keys.Refresh):
			return p.rescan(), nil
		case key.Matches(msg, p.keys.Enter):
			if p.cursor >= len(p.ports) {
				return nil, nil
			}
			port := p.ports[p.cursor]
			p.lastPort = port
			return func() tea.Msg { return connectRequestMsg{Port: port} }, &PageNav{PageID: monitorPageID}
		}
	}
	return nil, nil
}

func (p *PortsPage) View(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select a serial port"))
	b.WriteString("\n\n")

	switch {
	case p.loading:
		b.WriteString(p.spin.View() + dimStyle.Render(" Scanning ports..."))
	case p.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Port scan failed: %v", p.err)))
	case len(p.ports) == 0:
		b.WriteString(dimStyle.Render("No serial ports found."))
	default:
		for i, port := range p.ports {
			line := "  " + port
			if port == p.lastPort {
				line += dimStyle.Render("  (last used)")
			}
			if i == p.cursor {
				line = selectedStyle.Render("> " + port)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ select • enter connect • r rescan • esc back"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Padding(1, 2).
		Render(b.String())
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
