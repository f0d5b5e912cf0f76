package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the crawl dashboard state. It is only mutated from Update.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	dataDir string
	started time.Time
	now     func() time.Time

	iterations int
	recent     []IterationMsg
	maxRecent  int
	promotions int
	notFound   int

	tracked int
	scraped int
	nodes   int
	edges   int

	algorithm string
	converged bool
	rounds    int
	fallbacks int

	attempts     map[string]int
	backoffs     int
	backoffTotal time.Duration

	sleepKind  string
	sleepUntil time.Time

	logs    []string
	maxLogs int

	width    int
	height   int
	showHelp bool

	done    bool
	err     error
	summary string

	// backlog holds messages sent before the program started
	backlog []tea.Msg
}

// NewModel creates a dashboard for the crawl of dataDir
func NewModel(dataDir string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 30

	return Model{
		spinner:   s,
		progress:  p,
		dataDir:   dataDir,
		started:   time.Now(),
		now:       time.Now,
		maxRecent: 8,
		attempts:  make(map[string]int),
		maxLogs:   50,
	}
}

// Init starts the spinner and the countdown tick, and replays the backlog
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tickCmd()}
	if len(m.backlog) > 0 {
		backlog := m.backlog
		m.backlog = nil
		cmds = append(cmds, func() tea.Msg { return replayMsg(backlog) })
	}
	return tea.Batch(cmds...)
}

// Sleeping reports whether the pacer is currently pausing, and for how long
func (m *Model) Sleeping() (string, time.Duration, bool) {
	left := m.sleepUntil.Sub(m.now())
	if m.sleepKind == "" || left <= 0 {
		return "", 0, false
	}
	return m.sleepKind, left, true
}

// ScrapedRatio is the share of tracked accounts already expanded
func (m *Model) ScrapedRatio() float64 {
	if m.tracked == 0 {
		return 0
	}
	return float64(m.scraped) / float64(m.tracked)
}

func (m *Model) addLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

func (m *Model) addIteration(it IterationMsg) {
	m.recent = append(m.recent, it)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[len(m.recent)-m.maxRecent:]
	}
}
