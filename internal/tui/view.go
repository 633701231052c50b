package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// layoutHeights splits the screen into tab bar, content box and status line.
func (m *MonitorModel) layoutHeights() (tabsHeight, contentHeight, statusHeight int) {
	tabsHeight, statusHeight = 1, 1
	// content box border takes two lines
	contentHeight = max(3, m.height-tabsHeight-statusHeight-2)
	return tabsHeight, contentHeight, statusHeight
}

func (m *MonitorModel) contentWidth() int {
	// border and horizontal padding
	return max(20, m.width-4)
}

// layout resizes widgets after a window size change.
func (m *MonitorModel) layout() {
	_, h, _ := m.layoutHeights()
	w := m.contentWidth()
	m.consoleView.Width = w
	m.consoleView.Height = max(1, h-1)
	m.nameInput.Width = max(10, w-4)
	m.help.Width = m.width
	if m.consoleFollow {
		m.consoleView.GotoBottom()
	}
}

// View renders the monitor.
func (m *MonitorModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing..."
	}
	if modal := m.TopModal(); modal != nil {
		return modal.View(m.width, m.height)
	}
	if m.height < 12 || m.width < 50 {
		return "Terminal too small. Resize to at least 50x12."
	}

	_, contentHeight, _ := m.layoutHeights()
	w := m.contentWidth()

	var body string
	switch m.activeTab {
	case TabTable:
		body = m.renderTableTab(w, contentHeight)
	case TabChart:
		body = m.renderChartTab(w, contentHeight)
	case TabNames:
		body = m.renderNamesTab(w, contentHeight)
	case TabConsole:
		body = m.renderConsoleTab(w, contentHeight)
	}

	box := activeSectionStyle.
		Width(m.width - 2).
		Height(contentHeight).
		MaxHeight(contentHeight + 2).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), box, m.renderStatusLine())
}

func (m *MonitorModel) renderTabs() string {
	parts := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", int(t)+1, t)
		if t == m.activeTab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *MonitorModel) renderNamesTab(width, height int) string {
	list := m.deps.Names.List()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Tracked names (%d)", len(list))))
	b.WriteString("\n\n")
	if len(list) == 0 {
		b.WriteString(dimStyle.Render("Nothing tracked. Press a to add a name; lines look like name,value."))
		b.WriteString("\n")
	}

	// the patterns section takes the lower part of the tab when there is room
	patternLines := 0
	if m.deps.Patterns != nil && height >= 16 {
		patternLines = min(maxPatternLines, height/3)
	}

	// keep the cursor visible
	rows := max(1, height-6)
	if patternLines > 0 {
		rows = max(1, rows-patternLines-2)
	}
	start := 0
	if m.nameCursor >= rows {
		start = m.nameCursor - rows + 1
	}
	for i := start; i < len(list) && i < start+rows; i++ {
		if i == m.nameCursor {
			b.WriteString(selectedStyle.Render("> " + list[i]))
		} else {
			b.WriteString("  " + list[i])
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.inputActive {
		b.WriteString(m.nameInput.View())
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter: add • esc: cancel"))
	} else {
		b.WriteString(dimStyle.Render("a: add • d: remove • D: clear all"))
	}
	if patternLines > 0 {
		b.WriteString("\n\n")
		b.WriteString(m.renderPatterns(width, patternLines))
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(b.String())
}

func (m *MonitorModel) renderConsoleTab(width, height int) string {
	m.consoleView.Width = width
	m.consoleView.Height = max(1, height-1)
	footer := "following"
	if !m.consoleFollow {
		footer = fmt.Sprintf("%3.f%% • end: follow", m.consoleView.ScrollPercent()*100)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.consoleView.View(), dimStyle.Render(footer))
}

// renderStatusLine renders connection state, the latest message or key
// hints, and branding.
func (m *MonitorModel) renderStatusLine() string {
	w := m.width

	var dot, conn string
	if m.status.Connected {
		dot = statusStyle.Foreground(ColorGreen).Render("●")
		conn = " " + m.status.Source
	} else {
		dot = statusStyle.Foreground(ColorRed).Render("●")
		conn = " disconnected"
	}
	left := dot + statusStyle.Render(conn)

	var center string
	if m.message != "" && m.opts.Clock().Sub(m.messageAt) < statusMessageTTL {
		style := statusStyle
		if !m.messageOK {
			style = style.Foreground(lipgloss.Color("#FF6666"))
		}
		center = style.Render(m.message)
	} else {
		center = statusStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	mode := "live"
	if !m.window.FollowLive() {
		mode = "pinned"
	}
	right := statusStyle.Render(fmt.Sprintf("%d rows • %d pts • chart %s  ", m.total, m.status.Stats.Points, mode))
	if w >= 80 {
		right += renderBranding()
	}

	gap := w - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if gap < 2 {
		// narrow terminals drop the center section
		gap = max(0, w-lipgloss.Width(left)-lipgloss.Width(right))
		return statusStyle.Width(w).Render(left + statusStyle.Render(strings.Repeat(" ", gap)) + right)
	}
	leftGap := gap / 2
	return left +
		statusStyle.Render(strings.Repeat(" ", leftGap)) +
		center +
		statusStyle.Render(strings.Repeat(" ", gap-leftGap)) +
		right
}
