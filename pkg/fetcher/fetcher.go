package fetcher

import (
	"context"
	"time"

	"iggraph/pkg/config"
	errs "iggraph/pkg/errors"
	"iggraph/pkg/logger"
	"iggraph/pkg/metrics"
	"iggraph/pkg/models"
	"iggraph/pkg/retry"
)

// Operation names used in logs and metrics
const (
	OpAccountByID       = "account_by_id"
	OpAccountByUsername = "account_by_username"
	OpFollowedAccounts  = "followed_accounts"
)

// Upstream is the account-data service the crawler reads from
type Upstream interface {
	FetchAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	FetchAccountByID(ctx context.Context, id string) (*models.Account, error)
	FetchFollowedAccounts(ctx context.Context, id string, pageSize, max int) ([]models.AccountSummary, error)
}

// Options configures a RateLimitedFetcher
type Options struct {
	// MaxAttempts bounds the calls made per operation; values below 1 mean 1
	MaxAttempts int
	Base        float64
	Offset      float64
	// Sleep defaults to retry.Wait
	Sleep    retry.SleepFunc
	Recorder metrics.Recorder
}

// OptionsFromConfig reads the retry settings from cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxAttempts: cfg.RateLimitRetries,
		Base:        cfg.ExponentialSleepBase,
		Offset:      cfg.ExponentialSleepOffset,
	}
}

// RateLimitedFetcher retries rate-limited upstream calls with power backoff.
// Not-found and every other upstream failure are returned on the first
// occurrence; persistent rate limiting ends in a retries_exceeded error.
type RateLimitedFetcher struct {
	upstream Upstream
	opts     Options
	logger   logger.Logger
	recorder metrics.Recorder
}

// New creates a fetcher around upstream
func New(upstream Upstream, opts Options, log logger.Logger) *RateLimitedFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &RateLimitedFetcher{
		upstream: upstream,
		opts:     opts,
		logger:   log.WithField("component", "fetcher"),
		recorder: rec,
	}
}

// AccountByUsername fetches the full account for username
func (f *RateLimitedFetcher) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return retry.DoWithResult(func() (*models.Account, error) {
		account, err := f.upstream.FetchAccountByUsername(ctx, username)
		f.record(OpAccountByUsername, err)
		return account, err
	}, f.retryConfig(ctx, OpAccountByUsername))
}

// AccountByID fetches the full account for id
func (f *RateLimitedFetcher) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	return retry.DoWithResult(func() (*models.Account, error) {
		account, err := f.upstream.FetchAccountByID(ctx, id)
		f.record(OpAccountByID, err)
		return account, err
	}, f.retryConfig(ctx, OpAccountByID))
}

// FollowedAccounts fetches at most max accounts that id follows. A rate
// limit on any page restarts the whole listing on the next attempt.
func (f *RateLimitedFetcher) FollowedAccounts(ctx context.Context, id string, pageSize, max int) ([]models.AccountSummary, error) {
	return retry.DoWithResult(func() ([]models.AccountSummary, error) {
		followed, err := f.upstream.FetchFollowedAccounts(ctx, id, pageSize, max)
		f.record(OpFollowedAccounts, err)
		return followed, err
	}, f.retryConfig(ctx, OpFollowedAccounts))
}

func (f *RateLimitedFetcher) retryConfig(ctx context.Context, op string) *retry.Config {
	return &retry.Config{
		MaxAttempts: f.opts.MaxAttempts,
		Backoff:     &retry.PowerBackoff{Base: f.opts.Base, Offset: f.opts.Offset},
		RetryIf:     retry.DefaultRetryIf,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			f.recorder.Backoff(op, delay)
		},
		Context:   ctx,
		Logger:    f.logger,
		Sleep:     f.opts.Sleep,
		Operation: op,
	}
}

func (f *RateLimitedFetcher) record(op string, err error) {
	f.recorder.UpstreamAttempt(op, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errs.IsNotFound(err):
		return "not_found"
	case errs.IsRateLimited(err):
		return "rate_limited"
	default:
		return "error"
	}
}
