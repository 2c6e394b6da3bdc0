package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"redditanalyzer/pkg/ui"
)

// View renders the monitor
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{
		headerStyle.Render(fmt.Sprintf("%s redditanalyzer  %s",
			m.spinner.View(), ui.FormatElapsed(time.Since(m.started)))),
	}

	width := m.width - 4
	if width < 30 {
		width = 30
	}
	for _, id := range m.order {
		sections = append(sections, m.renderTask(id, width))
	}
	sections = append(sections, m.renderLogs(width))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTask(id string, width int) string {
	view := m.views[id]
	snap := view.snap

	name := snap.Username
	if name == "" {
		name = shortID(id)
	}
	title := titleStyle.Render(" " + strings.ToUpper(name) + " ")

	if view.gone {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("task " + shortID(id) + " is no longer tracked")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	bar := view.bar
	bar.Width = width - 8
	if bar.Width < 10 {
		bar.Width = 10
	}

	c := snap.Counts
	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Status:"), statusStyle(snap.Status).Render(snap.Status.String())),
		fmt.Sprintf("%s %s", labelStyle.Render("Progress:"), valueStyle.Render(snap.Progress)),
		fmt.Sprintf("%s %s  %s %s",
			labelStyle.Render("Posts:"), valueStyle.Render(fmt.Sprintf("%d/%d", c.ScrapedPosts, c.TotalPosts)),
			labelStyle.Render("Comments:"), valueStyle.Render(fmt.Sprintf("%d/%d", c.ScrapedComments, c.TotalComments)),
		),
		bar.ViewAs(percent(snap)),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m Model) renderLogs(width int) string {
	title := titleStyle.Render(" ACTIVITY ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		message := log.Message
		if maxLen := width - 25; maxLen > 3 && len(message) > maxLen {
			message = message[:maxLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No activity yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m Model) renderHelp() string {
	help := `
  q/Q      - Stop watching (tasks keep running)
  ctrl+l   - Clear the activity log
  ?        - Toggle this help
`
	return panelStyle.Width(m.width - 4).Render(help)
}
