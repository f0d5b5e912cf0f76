package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "iggraph"

// Recorder receives crawl events. Components take a Recorder so they can
// run without a Prometheus registry.
type Recorder interface {
	UpstreamAttempt(operation, outcome string)
	Backoff(operation string, delay time.Duration)
	Expansion(outcome string)
	Promotions(n int)
	RankingRound(algorithm string, converged bool)
	GraphSize(nodes, edges int)
	TrackedAccounts(total, scraped int)
	PacerSleep(kind string, d time.Duration)
}

// Nop discards every event
type Nop struct{}

func (Nop) UpstreamAttempt(string, string)   {}
func (Nop) Backoff(string, time.Duration)    {}
func (Nop) Expansion(string)                 {}
func (Nop) Promotions(int)                   {}
func (Nop) RankingRound(string, bool)        {}
func (Nop) GraphSize(int, int)               {}
func (Nop) TrackedAccounts(int, int)         {}
func (Nop) PacerSleep(string, time.Duration) {}

// Metrics records crawl events as Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	upstreamAttempts *prometheus.CounterVec // operation, outcome
	backoffSeconds   *prometheus.CounterVec // operation
	expansions       *prometheus.CounterVec // outcome: ok, not_found
	promotions       prometheus.Counter
	rankingRounds    *prometheus.CounterVec // algorithm, converged
	graphNodes       prometheus.Gauge
	graphEdges       prometheus.Gauge
	trackedAccounts  *prometheus.GaugeVec   // state: total, scraped
	pacerSleep       *prometheus.CounterVec // kind: account, batch
}

// New creates and registers the crawl collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		upstreamAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "attempts_total",
			Help:      "Upstream calls by operation and outcome",
		}, []string{"operation", "outcome"}),

		backoffSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "backoff_seconds_total",
			Help:      "Seconds spent backing off after rate limiting",
		}, []string{"operation"}),

		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "expansions_total",
			Help:      "Accounts whose following list was fetched",
		}, []string{"outcome"}),

		promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "promotions_total",
			Help:      "Discovered accounts promoted to tracked accounts",
		}),

		rankingRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "centrality",
			Name:      "rounds_total",
			Help:      "Ranking rounds by the algorithm that produced them",
		}, []string{"algorithm", "converged"}),

		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "nodes",
			Help:      "Nodes in the follow graph",
		}),

		graphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "edges",
			Help:      "Edges in the follow graph",
		}),

		trackedAccounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "tracked_accounts",
			Help:      "Tracked accounts by scrape state",
		}, []string{"state"}),

		pacerSleep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pacer",
			Name:      "sleep_seconds_total",
			Help:      "Seconds spent pacing between accounts and batches",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.upstreamAttempts,
		m.backoffSeconds,
		m.expansions,
		m.promotions,
		m.rankingRounds,
		m.graphNodes,
		m.graphEdges,
		m.trackedAccounts,
		m.pacerSleep,
	)
	return m
}

// Registry returns the private registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) UpstreamAttempt(operation, outcome string) {
	m.upstreamAttempts.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Backoff(operation string, delay time.Duration) {
	m.backoffSeconds.WithLabelValues(operation).Add(delay.Seconds())
}

func (m *Metrics) Expansion(outcome string) {
	m.expansions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Promotions(n int) {
	m.promotions.Add(float64(n))
}

func (m *Metrics) RankingRound(algorithm string, converged bool) {
	c := "false"
	if converged {
		c = "true"
	}
	m.rankingRounds.WithLabelValues(algorithm, c).Inc()
}

func (m *Metrics) GraphSize(nodes, edges int) {
	m.graphNodes.Set(float64(nodes))
	m.graphEdges.Set(float64(edges))
}

func (m *Metrics) TrackedAccounts(total, scraped int) {
	m.trackedAccounts.WithLabelValues("total").Set(float64(total))
	m.trackedAccounts.WithLabelValues("scraped").Set(float64(scraped))
}

func (m *Metrics) PacerSleep(kind string, d time.Duration) {
	m.pacerSleep.WithLabelValues(kind).Add(d.Seconds())
}
