package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	patternBarWidth = 12
	maxPatternLines = 8
)

// renderPatterns lists templates mined from lines the parser dropped, most
// frequent first, each with a bar scaled to the top count.
func (m *MonitorModel) renderPatterns(width, lines int) string {
	count, total := m.deps.Patterns.Stats()
	title := "Unrecognized line patterns"
	if count > 0 {
		title = fmt.Sprintf("Unrecognized line patterns (%d from %d lines)", count, total)
	}
	out := []string{titleStyle.Render(title)}

	top := m.deps.Patterns.Top(lines)
	if len(top) == 0 {
		out = append(out, dimStyle.Render("No unrecognized lines yet"))
		return strings.Join(out, "\n")
	}

	maxCount := top[0].Count
	templateWidth := max(20, width-patternBarWidth-12)
	for i, p := range top {
		fill := max(1, p.Count*patternBarWidth/maxCount)
		bar := strings.Repeat("█", fill) + strings.Repeat("░", patternBarWidth-fill)

		tmpl := p.Template
		if len(tmpl) > templateWidth {
			tmpl = tmpl[:templateWidth-3] + "..."
		}
		out = append(out, fmt.Sprintf("%s %s │ %s",
			patternBarStyle(i).Render(bar),
			dimStyle.Render(fmt.Sprintf("%5.1f%%", p.Percentage)),
			lipgloss.NewStyle().Foreground(ColorWhite).Render(tmpl),
		))
	}
	return strings.Join(out, "\n")
}

func patternBarStyle(rank int) lipgloss.Style {
	switch {
	case rank < 3:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case rank < 6:
		return lipgloss.NewStyle().Foreground(ColorAmber)
	default:
		return lipgloss.NewStyle().Foreground(ColorBlue)
	}
}
