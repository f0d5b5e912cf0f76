package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	half := max(30, (m.width-4)/2)

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderCrawlPanel(half),
		m.renderRankingPanel(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderUpstreamPanel(half),
		m.renderRecentPanel(half),
	)

	sections := []string{
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right),
		m.renderLogsPanel(m.width - 2),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q quit · ? help"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	status := m.spinner.View() + " crawling"
	switch {
	case m.done && m.err != nil:
		status = errorStyle.Render("stopped: " + m.err.Error())
	case m.done:
		status = successStyle.Render("finished")
	default:
		if kind, left, ok := m.Sleeping(); ok {
			status = m.spinner.View() + " " + warningStyle.Render(fmt.Sprintf("pausing (%s) %s", kind, formatDuration(left)))
		}
	}
	return headerStyle.Render(fmt.Sprintf("iggraph · %s · %s", m.dataDir, formatDuration(m.now().Sub(m.started)))) +
		"  " + status
}

func (m *Model) renderCrawlPanel(width int) string {
	rows := []string{
		titleStyle.Render("CRAWL"),
		row("Iterations", fmt.Sprintf("%d", m.iterations)),
		row("Accounts", fmt.Sprintf("%d tracked, %d scraped", m.tracked, m.scraped)),
		m.progress.ViewAs(m.ScrapedRatio()),
		row("Graph", fmt.Sprintf("%d nodes, %d edges", m.nodes, m.edges)),
		row("Promoted", fmt.Sprintf("%d", m.promotions)),
	}
	if m.notFound > 0 {
		rows = append(rows, row("Gone", warningStyle.Render(fmt.Sprintf("%d candidates", m.notFound))))
	}
	if m.summary != "" {
		rows = append(rows, "", successStyle.Render(m.summary))
	}
	return panelStyle.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderRankingPanel(width int) string {
	algorithm := m.algorithm
	if algorithm == "" {
		algorithm = "-"
	}
	convergence := dimStyle.Render("-")
	if m.rounds > 0 {
		if m.converged {
			convergence = successStyle.Render("converged")
		} else {
			convergence = warningStyle.Render("fallback")
		}
	}
	rows := []string{
		titleStyle.Render("RANKING"),
		row("Rounds", fmt.Sprintf("%d", m.rounds)),
		row("Last", algorithm+" "+convergence),
		row("Fallbacks", fmt.Sprintf("%d", m.fallbacks)),
	}
	return panelStyle.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderUpstreamPanel(width int) string {
	rows := []string{titleStyle.Render("UPSTREAM")}

	outcomes := make([]string, 0, len(m.attempts))
	for o := range m.attempts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	if len(outcomes) == 0 {
		rows = append(rows, dimStyle.Render("No requests yet"))
	}
	for _, o := range outcomes {
		rows = append(rows, row(o, outcomeStyle(o).Render(fmt.Sprintf("%d", m.attempts[o]))))
	}
	rows = append(rows, row("Backoffs", fmt.Sprintf("%d (%s)", m.backoffs, formatDuration(m.backoffTotal))))
	return panelStyle.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderRecentPanel(width int) string {
	rows := []string{titleStyle.Render("RECENT EXPANSIONS")}
	if len(m.recent) == 0 {
		rows = append(rows, dimStyle.Render("None yet"))
	}
	for i := len(m.recent) - 1; i >= 0; i-- {
		it := m.recent[i]
		line := fmt.Sprintf("#%-4d %-20s %4d followed", it.Number, truncate(it.Username, 20), it.Followed)
		switch {
		case it.NotFound:
			line = warningStyle.Render(fmt.Sprintf("#%-4d %-20s gone", it.Number, truncate(it.Username, 20)))
		case it.Promoted > 0:
			line += successStyle.Render(fmt.Sprintf(" +%d", it.Promoted))
		}
		rows = append(rows, line)
	}
	return panelStyle.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderLogsPanel(width int) string {
	height := max(5, m.height-24)
	start := max(0, len(m.logs)-height)

	rows := []string{titleStyle.Render("LOG")}
	for _, line := range m.logs[start:] {
		rows = append(rows, truncate(line, width-4))
	}
	if len(m.logs) == 0 {
		rows = append(rows, dimStyle.Render("No logs yet..."))
	}
	return panelStyle.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderHelp() string {
	help := `q/ctrl+c  stop the crawl after the current request
?         toggle this help
ctrl+l    clear the log panel

The crawl state is persisted after every expansion, so stopping
and restarting with the same data directory resumes it.`
	return panelStyle.Width(m.width - 2).Render(help)
}

func row(label, value string) string {
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func truncate(s string, n int) string {
	if n <= 3 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as [hh:]mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
