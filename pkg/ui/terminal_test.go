package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := Out
	Out = &buf
	t.Cleanup(func() { Out = old })
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := capture(t)

	PrintError("Crawl failed", "retries exceeded")
	PrintInfo("Data directory", "/tmp/crawl")
	PrintWarning("Lock replaced")

	out := buf.String()
	assert.Contains(t, out, "Crawl failed: retries exceeded")
	assert.Contains(t, out, "Data directory")
	assert.Contains(t, out, "/tmp/crawl")
	assert.Contains(t, out, "Lock replaced")
}

func TestPrintTableAlignsColumns(t *testing.T) {
	buf := capture(t)

	PrintTable([]string{"NAME", "SESSION"}, [][]string{
		{"main", "abcd...wxyz"},
		{"secondary-account", "efgh...1234"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, strings.Index(lines[1], "abcd"), strings.Index(lines[2], "efgh"))
}

func TestPrintBox(t *testing.T) {
	buf := capture(t)

	PrintBox("Crawl finished", [][2]string{{"Iterations", "3"}, {"Accounts", "3"}})

	assert.Contains(t, buf.String(), "Crawl finished")
	assert.Contains(t, buf.String(), "Iterations")
}
