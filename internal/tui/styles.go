package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/mirrorboard/health"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))

	pillOK  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#052e16")).Background(lipgloss.Color("#22c55e")).Padding(0, 1)
	pillBad = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fff5f5")).Background(lipgloss.Color("#b91c1c")).Padding(0, 1)
)

// stateColor maps a health state to its dashboard color.
func stateColor(s health.State) lipgloss.Color {
	switch s {
	case health.Healthy:
		return lipgloss.Color("#22c55e")
	case health.Failed:
		return lipgloss.Color("#ef4444")
	default:
		return lipgloss.Color("#eab308")
	}
}

func stateStyle(s health.State) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(stateColor(s))
}
