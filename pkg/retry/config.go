package retry

import (
	"time"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
)

// Config holds the retry configuration.
type Config struct {
	// MaxAttempts is the maximum number of attempts, the first one included.
	// Default is 5.
	MaxAttempts uint

	// InitialDelay is the first backoff delay. Default is 200ms.
	InitialDelay time.Duration

	// MaxDelay caps each backoff delay. Default is 5 seconds.
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier. Default is 2.0.
	Multiplier float64

	// Jitter is the randomization factor (0.0 to 1.0). Default is 0.25.
	Jitter float64

	// MaxElapsedTime bounds the total time spent retrying. 0 means no limit.
	MaxElapsedTime time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Default is errors.IsTemporary.
	Retryable func(error) bool

	// OnRetry is called before each backoff sleep.
	OnRetry func(err error, next time.Duration)
}

// FromConfig builds a Config from the retry section of the process
// configuration.
func FromConfig(cfg config.RetryConfig) Config {
	return Config{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
	}
}

// withDefaults returns a config with default values applied.
func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 200 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.Jitter == 0 {
		c.Jitter = 0.25
	}
	if c.Retryable == nil {
		c.Retryable = errors.IsTemporary
	}
	return c
}

func (c Config) shouldRetry(err error) bool {
	return err != nil && c.Retryable(err)
}
