package retry

import (
	"context"
	"math"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
	// Reset resets the strategy before a new call
	Reset()
}

// PowerBackoff sleeps Base^attempt + Offset seconds after each failed
// attempt, rounded to the nearest hundredth of a second. Base 2 with
// offset 10 gives 12s, 14s, 18s, 26s, 42s and so on.
type PowerBackoff struct {
	Base   float64
	Offset float64
}

// NextDelay returns the delay for the given attempt
func (pb *PowerBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	seconds := math.Pow(pb.Base, float64(attempt)) + pb.Offset
	centis := math.Round(seconds * 100)
	if centis <= 0 {
		return 0
	}
	return time.Duration(centis) * 10 * time.Millisecond
}

// Reset is a no-op; the delay depends only on the attempt number
func (pb *PowerBackoff) Reset() {}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
