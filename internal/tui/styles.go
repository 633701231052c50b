package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy  = lipgloss.Color("#1B2B4B")
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorGray  = lipgloss.Color("8")
	ColorBlue  = lipgloss.Color("#5FAFFF")
	ColorGreen = lipgloss.Color("#44FF44")
	ColorAmber = lipgloss.Color("#FFAA00")
	ColorRed   = lipgloss.Color("#FF4444")
)

// seriesColors cycles across chart data sets.
var seriesColors = []lipgloss.Color{
	lipgloss.Color("#5FAFFF"),
	lipgloss.Color("#FF6B6B"),
	lipgloss.Color("#49E209"),
	lipgloss.Color("#FFAA00"),
	lipgloss.Color("#C678DD"),
	lipgloss.Color("#00CAC7"),
}

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	activeSectionStyle = sectionStyle.
				BorderForeground(ColorBlue)

	tabStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorNavy).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	dimStyle = lipgloss.NewStyle().Foreground(ColorGray)

	titleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorNavy)

	errorStyle = lipgloss.NewStyle().Foreground(ColorRed)
)

// renderBranding renders the app name with a green to light blue gradient.
func renderBranding() string {
	colors := []string{"#49E209", "#35DD2F", "#21D955", "#0DD47B", "#00D0A1", "#00CAC7"}
	word := []rune("scope!")

	var out string
	for i, r := range word {
		out += lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i%len(colors)])).
			Bold(true).
			Render(string(r))
	}
	return out
}
