package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorText    = lipgloss.Color("#FAFAFA")
	colorMuted   = lipgloss.Color("241")
	colorAccent  = lipgloss.Color("#7D56F4")
	colorBorder  = lipgloss.Color("#874BFD")
	colorOK      = lipgloss.Color("#04B575")
	colorError   = lipgloss.Color("#FF0000")
	colorWarn    = lipgloss.Color("#FFB86C")
	colorStar    = lipgloss.Color("#F1FA8C")
	colorCursor  = lipgloss.Color("#44475A")
	colorSpinner = lipgloss.Color("205")
)

var (
	subtleStyle      = lipgloss.NewStyle().Foreground(colorMuted)
	titleStyle       = lipgloss.NewStyle().Foreground(colorText).Background(colorAccent).Padding(0, 1).Bold(true)
	infoStyle        = lipgloss.NewStyle().Foreground(colorOK)
	errStyle         = lipgloss.NewStyle().Foreground(colorError)
	warnStyle        = lipgloss.NewStyle().Foreground(colorWarn)
	favStyle         = lipgloss.NewStyle().Foreground(colorStar)
	spinnerStyle     = lipgloss.NewStyle().Foreground(colorSpinner)
	boxStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	tableHeaderStyle = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	selectedStyle    = lipgloss.NewStyle().Foreground(colorText).Background(colorCursor)
)

// capabilityBadge renders a chain lookup in the header, muted when the node
// does not serve it.
func capabilityBadge(name string, served bool) string {
	if served {
		return infoStyle.Render(name)
	}
	return subtleStyle.Render(name + " n/a")
}
