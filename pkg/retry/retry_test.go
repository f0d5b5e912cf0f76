package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "iggraph/pkg/errors"
	"iggraph/pkg/logger"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

// fixedBackoff waits the same delay before every retry
type fixedBackoff time.Duration

func (f fixedBackoff) NextDelay(int) time.Duration { return time.Duration(f) }
func (f fixedBackoff) Reset()                      {}

func rateLimited() error {
	return errs.FromStatusCode(429, "please wait a few minutes")
}

func TestPowerBackoffSequence(t *testing.T) {
	backoff := &PowerBackoff{Base: 2, Offset: 10}
	want := []int{12, 14, 18, 26, 42, 74, 138, 266, 522, 1034}

	for i, seconds := range want {
		attempt := i + 1
		if got := backoff.NextDelay(attempt); got != time.Duration(seconds)*time.Second {
			t.Errorf("attempt %d: expected %ds, got %v", attempt, seconds, got)
		}
	}
}

func TestPowerBackoffRoundsToHundredths(t *testing.T) {
	backoff := &PowerBackoff{Base: 1.001, Offset: 0}
	assert.Equal(t, 1000*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
}

func TestDoSleepsAfterEveryRateLimitedAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	attempts := 0

	err := Do(func() error {
		attempts++
		return rateLimited()
	}, &Config{
		MaxAttempts: 10,
		Backoff:     &PowerBackoff{Base: 2, Offset: 10},
		Sleep:       sleeper.Sleep,
	})

	require.Error(t, err)
	assert.Equal(t, 10, attempts)
	want := []time.Duration{12, 14, 18, 26, 42, 74, 138, 266, 522, 1034}
	require.Len(t, sleeper.delays, len(want))
	for i, d := range want {
		assert.Equal(t, d*time.Second, sleeper.delays[i])
	}
}

func TestDoRetryCeiling(t *testing.T) {
	sleeper := &recordingSleeper{}
	attempts := 0

	err := Do(func() error {
		attempts++
		return rateLimited()
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &PowerBackoff{Base: 2, Offset: 10},
		Sleep:       sleeper.Sleep,
	})

	assert.True(t, errs.IsRetriesExceeded(err), "got %v", err)
	assert.False(t, errs.IsNotFound(err))
	assert.True(t, errs.IsRateLimited(errors.Unwrap(err)))
	assert.Equal(t, 5, attempts)
	assert.Len(t, sleeper.delays, 5)
}

func TestDoSucceedsAfterRateLimit(t *testing.T) {
	sleeper := &recordingSleeper{}
	attempts := 0

	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", rateLimited()
		}
		return "profile", nil
	}, &Config{MaxAttempts: 5, Backoff: fixedBackoff(time.Second), Sleep: sleeper.Sleep})

	require.NoError(t, err)
	assert.Equal(t, "profile", result)
	assert.Equal(t, 3, attempts)
	assert.Len(t, sleeper.delays, 2)
}

func TestDoDoesNotRetryTerminalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", errs.NotFound("account 1")},
		{"server error", errs.FromStatusCode(500, "oops")},
		{"auth", errs.FromStatusCode(401, "login required")},
		{"untyped", errors.New("socket closed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			attempts := 0
			err := Do(func() error {
				attempts++
				return tt.err
			}, &Config{MaxAttempts: 5, Backoff: fixedBackoff(time.Second), Sleep: sleeper.Sleep})

			assert.Same(t, tt.err, err)
			assert.Equal(t, 1, attempts)
			assert.Empty(t, sleeper.delays)
		})
	}
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return rateLimited()
	}, &Config{
		MaxAttempts: 5,
		Backoff:     fixedBackoff(time.Hour),
		Context:     ctx,
		Sleep:       (&recordingSleeper{}).Sleep,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDoLogsEachBackoff(t *testing.T) {
	tl := logger.NewTestLogger()
	_ = Do(func() error { return rateLimited() }, &Config{
		MaxAttempts: 2,
		Backoff:     fixedBackoff(time.Second),
		Logger:      tl,
		Operation:   "account_by_id",
		Sleep:       (&recordingSleeper{}).Sleep,
	})

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 2)
	assert.Equal(t, "account_by_id", warns[0].Fields["operation"])
	assert.True(t, tl.HasError())
}

func TestWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Wait(context.Background(), time.Millisecond))
}
