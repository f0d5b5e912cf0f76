package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent    = lipgloss.Color("#00B3B3")
	highlight = lipgloss.Color("#C678DD")
	good      = lipgloss.Color("#39D353")
	caution   = lipgloss.Color("#E5A50A")
	bad       = lipgloss.Color("#E01B24")
	dim       = lipgloss.Color("#8A8A8A")

	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E5E5"))

	dimStyle = lipgloss.NewStyle().
			Foreground(dim)

	successStyle = lipgloss.NewStyle().
			Foreground(good).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(caution).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(bad).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(dim).
			Padding(0, 0, 0, 1)
)

// outcomeStyle colours upstream attempt outcomes
func outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "ok":
		return successStyle
	case "rate_limited", "not_found":
		return warningStyle
	default:
		return errorStyle
	}
}
