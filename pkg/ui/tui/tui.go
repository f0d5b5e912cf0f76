package tui

import (
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"iggraph/pkg/metrics"
)

// maxPending bounds the messages kept while the program is not running yet
const maxPending = 200

// TUI is a full-screen dashboard for a running crawl. Messages sent before
// Run are queued and replayed once the program starts.
type TUI struct {
	program *tea.Program
	model   *Model

	mu      sync.Mutex
	running bool
	pending []tea.Msg
}

// New creates a dashboard for the crawl of dataDir. The alternate screen is
// used unless opts override the program's output.
func New(dataDir string, opts ...tea.ProgramOption) *TUI {
	model := NewModel(dataDir)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Run blocks until the user quits the dashboard
func (t *TUI) Run() error {
	t.mu.Lock()
	t.model.backlog = t.pending
	t.pending = nil
	t.running = true
	t.mu.Unlock()

	_, err := t.program.Run()
	return err
}

// Stop quits the dashboard
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send delivers msg to the dashboard. It is safe for concurrent use and
// never blocks before Run.
func (t *TUI) Send(msg tea.Msg) {
	if t.program == nil {
		return
	}
	t.mu.Lock()
	if !t.running {
		t.pending = append(t.pending, msg)
		if len(t.pending) > maxPending {
			t.pending = t.pending[len(t.pending)-maxPending:]
		}
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.program.Send(msg)
}

// Iteration reports a persisted expansion
func (t *TUI) Iteration(it IterationMsg) {
	t.Send(it)
}

// Done reports the end of the crawl; the dashboard stays up until quit
func (t *TUI) Done(err error, summary string) {
	t.Send(DoneMsg{Err: err, Summary: summary})
}

// Recorder returns a metrics.Recorder that feeds the dashboard and next
func (t *TUI) Recorder(next metrics.Recorder) *Recorder {
	return NewRecorder(next, t.Send)
}

// LogWriter returns a writer whose lines appear in the log panel
func (t *TUI) LogWriter() io.Writer {
	return &logWriter{send: t.Send}
}

type logWriter struct {
	send func(tea.Msg)
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimRight(ansi.Strip(line), " \r")
		if line != "" {
			w.send(LogMsg{Line: line})
		}
	}
	return len(p), nil
}
