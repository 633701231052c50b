package tui

import (
	"fmt"
	"strings"

	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/serialscope/internal/chart"
)

const chartTimeLayout = "15:04:05"

func (m *MonitorModel) renderChartTab(width, height int) string {
	v := m.view

	mode := lipgloss.NewStyle().Foreground(ColorGreen).Render("● LIVE")
	if !v.FollowLive {
		mode = lipgloss.NewStyle().Foreground(ColorAmber).Render("❚❚ PINNED")
	}
	header := fmt.Sprintf("%s  %s – %s  (%s window, ←/→ %s)",
		mode,
		v.Start.Local().Format(chartTimeLayout),
		v.End.Local().Format(chartTimeLayout),
		m.window.Duration(),
		m.window.Step(),
	)

	legend := renderLegend(v)
	plotHeight := max(4, height-lipgloss.Height(header)-lipgloss.Height(legend))

	var plot string
	if v.Visible == 0 {
		plot = lipgloss.Place(width, plotHeight, lipgloss.Center, lipgloss.Center,
			dimStyle.Render("No data points in the current window"))
	} else {
		plot = renderTimeSeries(v, width, plotHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, plot, legend)
}

// renderTimeSeries draws every non-empty series of v with braille lines.
func renderTimeSeries(v chart.View, width, height int) string {
	c := tslc.New(width, height,
		tslc.WithXLabelFormatter(tslc.HourTimeLabelFormatter()),
	)
	c.SetTimeRange(v.Start, v.End)
	c.SetViewTimeRange(v.Start, v.End)
	c.SetYRange(v.YMin, v.YMax)
	c.SetViewYRange(v.YMin, v.YMax)

	for i, s := range v.Series {
		if len(s.Points) == 0 {
			continue
		}
		for _, p := range s.Points {
			c.PushDataSet(s.Name, tslc.TimePoint{Time: p.Time, Value: p.Value})
		}
		c.SetDataSetStyle(s.Name, lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)]))
	}
	c.DrawBrailleAll()
	return c.View()
}

func renderLegend(v chart.View) string {
	if len(v.Series) == 0 {
		return dimStyle.Render("no series")
	}
	parts := make([]string, 0, len(v.Series))
	for i, s := range v.Series {
		swatch := lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)]).Render("━━")
		var label string
		if n := len(s.Points); n > 0 {
			label = fmt.Sprintf("%s (%d, last %g)", s.Name, n, s.Points[n-1].Value)
		} else {
			label = dimStyle.Render(s.Name + " (none)")
		}
		parts = append(parts, swatch+" "+label)
	}
	return strings.Join(parts, "   ") + dimStyle.Render(fmt.Sprintf("   y: %.4g … %.4g", v.YMin, v.YMax))
}
