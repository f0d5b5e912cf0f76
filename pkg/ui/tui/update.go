package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// IterationMsg is sent after an expansion has been persisted
type IterationMsg struct {
	Number    int
	Username  string
	Followed  int
	NotFound  bool
	Promoted  int
	Algorithm string
	Converged bool
}

// UpstreamMsg is sent for every upstream attempt
type UpstreamMsg struct {
	Operation string
	Outcome   string
}

// BackoffMsg is sent before the fetcher sleeps after a rate limit
type BackoffMsg struct {
	Operation string
	Delay     time.Duration
}

// SleepMsg is sent when the pacer starts a pause
type SleepMsg struct {
	Kind     string
	Duration time.Duration
}

// GraphMsg carries the graph size after an iteration
type GraphMsg struct {
	Nodes int
	Edges int
}

// TrackedMsg carries the account table size after an iteration
type TrackedMsg struct {
	Total   int
	Scraped int
}

// RankingMsg is sent after every ranking round
type RankingMsg struct {
	Algorithm string
	Converged bool
}

// LogMsg carries one formatted log line
type LogMsg struct {
	Line string
}

// DoneMsg is sent once the crawl has returned
type DoneMsg struct {
	Err     error
	Summary string
}

type tickMsg time.Time

// replayMsg carries messages queued before the program was running
type replayMsg []tea.Msg

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, msg.Width/2-24)
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tickCmd()

	case replayMsg:
		var cmds []tea.Cmd
		for _, queued := range msg {
			_, cmd := m.Update(queued)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case IterationMsg:
		m.iterations = msg.Number
		m.promotions += msg.Promoted
		if msg.NotFound {
			m.notFound++
		}
		m.addIteration(msg)
		return m, nil

	case UpstreamMsg:
		m.attempts[msg.Outcome]++
		return m, nil

	case BackoffMsg:
		m.backoffs++
		m.backoffTotal += msg.Delay
		return m, nil

	case SleepMsg:
		m.sleepKind = msg.Kind
		m.sleepUntil = m.now().Add(msg.Duration)
		return m, nil

	case GraphMsg:
		m.nodes, m.edges = msg.Nodes, msg.Edges
		return m, nil

	case TrackedMsg:
		m.tracked, m.scraped = msg.Total, msg.Scraped
		return m, nil

	case RankingMsg:
		m.rounds++
		m.algorithm = msg.Algorithm
		m.converged = msg.Converged
		if !msg.Converged {
			m.fallbacks++
		}
		return m, nil

	case LogMsg:
		m.addLog(msg.Line)
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.summary = msg.Summary
		m.sleepKind = ""
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logs = nil
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
