package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"iggraph/pkg/metrics"
)

// Recorder forwards crawl events to the dashboard and to a wrapped recorder
type Recorder struct {
	next metrics.Recorder
	send func(tea.Msg)
}

// NewRecorder wraps next; a nil next discards the events after display
func NewRecorder(next metrics.Recorder, send func(tea.Msg)) *Recorder {
	if next == nil {
		next = metrics.Nop{}
	}
	return &Recorder{next: next, send: send}
}

func (r *Recorder) UpstreamAttempt(operation, outcome string) {
	r.next.UpstreamAttempt(operation, outcome)
	r.send(UpstreamMsg{Operation: operation, Outcome: outcome})
}

func (r *Recorder) Backoff(operation string, delay time.Duration) {
	r.next.Backoff(operation, delay)
	r.send(BackoffMsg{Operation: operation, Delay: delay})
}

func (r *Recorder) Expansion(outcome string) {
	r.next.Expansion(outcome)
}

func (r *Recorder) Promotions(n int) {
	r.next.Promotions(n)
}

func (r *Recorder) RankingRound(algorithm string, converged bool) {
	r.next.RankingRound(algorithm, converged)
	r.send(RankingMsg{Algorithm: algorithm, Converged: converged})
}

func (r *Recorder) GraphSize(nodes, edges int) {
	r.next.GraphSize(nodes, edges)
	r.send(GraphMsg{Nodes: nodes, Edges: edges})
}

func (r *Recorder) TrackedAccounts(total, scraped int) {
	r.next.TrackedAccounts(total, scraped)
	r.send(TrackedMsg{Total: total, Scraped: scraped})
}

func (r *Recorder) PacerSleep(kind string, d time.Duration) {
	r.next.PacerSleep(kind, d)
	r.send(SleepMsg{Kind: kind, Duration: d})
}

var _ metrics.Recorder = (*Recorder)(nil)
