// Package retry retries operations that fail with transient errors, using
// exponential backoff with jitter from github.com/cenkalti/backoff/v5.
//
// pgcache uses it only around connection setup at process start. Cache
// operations themselves are never retried: a failed Get or Set is reported
// to the caller as-is.
//
// Example usage:
//
//	store, err := retry.DoWithData(ctx, retry.FromConfig(cfg.Retry), func() (*cache.PostgresStore, error) {
//		return cache.NewPostgres(ctx, cfg.Cache, cfg.Database, logger)
//	})
package retry

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

// Do runs fn until it succeeds, returns an error that is not retryable, the
// attempts or elapsed time are exhausted, or ctx is done. It returns the
// error from the last attempt.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithData(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithData is Do for functions that also return a value.
func DoWithData[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	operation := func() (T, error) {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !cfg.shouldRetry(err) {
			var zero T
			return zero, backoff.Permanent(err)
		}
		return result, err
	}

	return backoff.Retry(ctx, operation, options(cfg)...)
}

func options(cfg Config) []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = cfg.Jitter

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(cfg.MaxAttempts),
	}
	if cfg.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(cfg.MaxElapsedTime))
	}
	if cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(cfg.OnRetry)))
	}
	return opts
}
