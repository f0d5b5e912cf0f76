package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out is where the Print helpers write
var Out io.Writer = os.Stdout

var (
	infoLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	infoValue = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	hlStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
	boxStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("5")).
			Padding(0, 1)
)

// Cyan and friends style a single string for inline use
var (
	Cyan    = infoLabel.Render
	Yellow  = infoValue.Render
	Red     = errStyle.Render
	Green   = okStyle.Render
	Magenta = hlStyle.Render
	Dim     = dimStyle.Render
)

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label and its value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, warnStyle.Render(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, warnStyle.Render(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Out, Magenta(msg))
}

// PrintBox prints a titled, bordered block of label/value rows
func PrintBox(title string, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	lines := []string{Magenta(title)}
	for _, r := range rows {
		lines = append(lines, Cyan(r[0]+":")+strings.Repeat(" ", width-len(r[0])+1)+Yellow(r[1]))
	}
	fmt.Fprintln(Out, boxStyle.Render(strings.Join(lines, "\n")))
}

// PrintTable prints rows under a header with aligned columns
func PrintTable(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i := range header {
			if i < len(r) {
				widths[i] = max(widths[i], lipgloss.Width(r[i]))
			}
		}
	}

	line := func(cells []string, style func(...string) string) string {
		parts := make([]string, len(header))
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = style(cell) + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(Out, line(header, Cyan))
	for _, r := range rows {
		fmt.Fprintln(Out, line(r, plain))
	}
}

func plain(strs ...string) string { return strings.Join(strs, " ") }
