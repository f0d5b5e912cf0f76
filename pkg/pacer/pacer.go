package pacer

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"iggraph/pkg/config"
	"iggraph/pkg/logger"
	"iggraph/pkg/metrics"
	"iggraph/pkg/retry"
)

// Kind tells which pause the pacer chose
type Kind string

const (
	BetweenAccounts Kind = "account"
	BetweenBatches  Kind = "batch"
)

// Options overrides the pacer's sources of randomness and time
type Options struct {
	Rand     *rand.Rand
	Sleep    retry.SleepFunc
	Logger   logger.Logger
	Recorder metrics.Recorder
}

// Pacer spaces out expansions. Accounts are expanded in batches of a random
// size; a short random pause follows each account and a long one ends each
// batch, after which a new batch size is drawn.
type Pacer struct {
	batch          config.IntRange
	betweenAccount config.SecondsRange
	betweenBatch   config.SecondsRange

	rng      *rand.Rand
	sleep    retry.SleepFunc
	logger   logger.Logger
	recorder metrics.Recorder

	scraped int
	target  int
}

// New creates a pacer from the batch and sleep ranges in cfg
func New(cfg *config.Config, opts Options) *Pacer {
	p := &Pacer{
		batch:          cfg.AccountsPerBatch,
		betweenAccount: cfg.Sleep.BetweenAccounts,
		betweenBatch:   cfg.Sleep.BetweenAccountBatches,
		rng:            opts.Rand,
		sleep:          opts.Sleep,
		logger:         opts.Logger,
		recorder:       opts.Recorder,
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if p.sleep == nil {
		p.sleep = retry.Wait
	}
	if p.logger == nil {
		p.logger = logger.NewNopLogger()
	}
	if p.recorder == nil {
		p.recorder = metrics.Nop{}
	}
	p.target = p.drawTarget()
	return p
}

// Next records one expansion and returns the pause that should follow it
func (p *Pacer) Next() (time.Duration, Kind) {
	p.scraped++
	if p.scraped < p.target {
		return p.draw(p.betweenAccount), BetweenAccounts
	}
	d := p.draw(p.betweenBatch)
	p.scraped = 0
	p.target = p.drawTarget()
	return d, BetweenBatches
}

// Wait records one expansion and sleeps for the chosen pause
func (p *Pacer) Wait(ctx context.Context) error {
	batchSize := p.target
	d, kind := p.Next()
	p.logger.InfoWithFields("Sleeping", map[string]interface{}{
		"kind":       string(kind),
		"duration":   d,
		"batch_size": batchSize,
	})
	p.recorder.PacerSleep(string(kind), d)
	return p.sleep(ctx, d)
}

// Target returns the size of the current batch
func (p *Pacer) Target() int { return p.target }

// Scraped returns how many accounts were expanded in the current batch
func (p *Pacer) Scraped() int { return p.scraped }

func (p *Pacer) drawTarget() int {
	lo, hi := p.batch.Minimum, p.batch.Maximum
	if hi <= lo {
		return max(lo, 1)
	}
	return max(lo+p.rng.IntN(hi-lo+1), 1)
}

// draw returns a uniform duration in r rounded to the hundredth of a second
func (p *Pacer) draw(r config.SecondsRange) time.Duration {
	s := r.Minimum
	if r.Maximum > r.Minimum {
		s += p.rng.Float64() * (r.Maximum - r.Minimum)
	}
	centis := math.Round(s * 100)
	if centis <= 0 {
		return 0
	}
	return time.Duration(centis) * 10 * time.Millisecond
}
