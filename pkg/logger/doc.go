// Package logger wraps zerolog behind a small structured-logging interface.
//
// Loggers are created explicitly and passed to the components that need
// them; there is no package-level instance.
//
//	log, err := logger.New(&config.LoggingConfig{Level: "info", File: "data/crawl.log"})
//	log.WithField("account_id", id).Info("Expanding account")
//
// Tests use NewNopLogger or NewTestLogger, the latter recording every
// message so assertions can check that a warning was emitted.
package logger
