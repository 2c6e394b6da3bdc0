package tui

import (
	"github.com/charmbracelet/lipgloss"

	"redditanalyzer/pkg/tasks"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	alertRed    = lipgloss.Color("#FF0000")
	darkBg2     = lipgloss.Color("#1A1E37")
	dimWhite    = lipgloss.Color("#B0B0B0")

	headerStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(1, 0, 0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Background(darkBg2).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(lipgloss.Color("#0A0E27")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)
)

// statusStyle colours a task status
func statusStyle(s tasks.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case tasks.Completed:
		return base.Foreground(neonGreen)
	case tasks.Failed:
		return base.Foreground(alertRed)
	case tasks.Processing:
		return base.Foreground(neonOrange)
	default:
		return base.Foreground(neonYellow)
	}
}

// levelColor picks the colour of a log line
func levelColor(level string) lipgloss.Color {
	switch level {
	case LevelError:
		return alertRed
	case LevelWarn:
		return neonOrange
	case LevelSuccess:
		return neonGreen
	case LevelInfo:
		return neonCyan
	default:
		return dimWhite
	}
}
