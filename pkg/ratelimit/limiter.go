package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter caps the rate of outgoing requests
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Allow reports whether a request may proceed now, consuming a slot if so
	Allow() bool
}

// PerMinute returns a limiter admitting n requests per minute with no
// bursting. n <= 0 disables limiting.
func PerMinute(n int) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Allow() bool                    { return true }
