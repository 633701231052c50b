package tui

import (
	"fmt"
	"slices"

	btable "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/serialscope/internal/table"
)

const (
	timestampColWidth = 23
	minValueColWidth  = 10
)

func tableStyles() btable.Styles {
	s := btable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorWhite).
		Background(ColorNavy).
		Bold(false)
	return s
}

// syncTable rebuilds the widget from snap, keeping only the newest
// MaxTableRows rows. Following pins the cursor to the last row.
func (m *MonitorModel) syncTable(snap table.Snapshot) {
	m.dirty = false
	m.total = len(snap.Rows)

	rows := snap.Rows
	if len(rows) > m.opts.MaxTableRows {
		rows = rows[len(rows)-m.opts.MaxTableRows:]
	}

	if !slices.Equal(snap.Headers, m.headers) {
		// Rows must never be narrower than the column set while rendering.
		m.tbl.SetRows(nil)
		m.tbl.SetColumns(tableColumns(snap.Headers))
		m.headers = append([]string(nil), snap.Headers...)
	}

	out := make([]btable.Row, len(rows))
	for i, r := range rows {
		out[i] = btable.Row(r.Fields())
	}
	cursor := m.tbl.Cursor()
	m.tbl.SetRows(out)
	m.rowCount = len(out)

	switch {
	case m.follow:
		m.tbl.GotoBottom()
	case cursor >= len(out):
		m.tbl.SetCursor(max(0, len(out)-1))
	}
}

func tableColumns(headers []string) []btable.Column {
	cols := make([]btable.Column, len(headers))
	for i, h := range headers {
		w := max(len(h), minValueColWidth)
		if i == 0 {
			w = timestampColWidth
		}
		cols[i] = btable.Column{Title: h, Width: w}
	}
	return cols
}

// handleTableKey moves the cursor. Following resumes once the cursor is
// back on the newest row.
func (m *MonitorModel) handleTableKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	m.follow = m.rowCount == 0 || m.tbl.Cursor() >= m.rowCount-1
	return cmd
}

func (m *MonitorModel) renderTableTab(width, height int) string {
	m.tbl.SetWidth(width)
	m.tbl.SetHeight(max(3, height-1))

	var footer string
	if m.total > m.rowCount {
		footer = fmt.Sprintf("showing newest %d of %d rows", m.rowCount, m.total)
	} else {
		footer = fmt.Sprintf("%d rows", m.total)
	}
	if m.follow {
		footer += " • following"
	} else {
		footer += " • end: follow newest"
	}
	if m.total == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.Place(width, height-1, lipgloss.Center, lipgloss.Center,
				dimStyle.Render("No data yet. Add names on the Names tab and connect a port.")),
			dimStyle.Render(footer))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.tbl.View(), dimStyle.Render(footer))
}
