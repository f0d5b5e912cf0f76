// Package retry runs an operation repeatedly while it fails with a
// retryable error, sleeping between attempts according to a backoff
// strategy.
//
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff:     &retry.PowerBackoff{Base: 2, Offset: 10},
//		Logger:      log,
//		Operation:   "followed_accounts",
//	}
//	summaries, err := retry.DoWithResult(fetch, cfg)
//
// Only rate limiting is retried by default. Not-found and every other
// upstream failure return immediately without consuming the retry budget,
// and exhausting the budget yields an error of type retries_exceeded.
package retry
