// Package cache provides a durable, shared key/value cache with time-based
// expiration. Entries live in a PostgreSQL table that is provisioned on
// first use; Redis and in-process stores implement the same contract so
// applications can swap backends without touching call sites.
//
// Every operation has an asynchronous form returning an *async.Future and
// a blocking form that waits on it.
//
// Example usage:
//
//	store, err := cache.NewPostgres(ctx, cfg.Cache, cfg.Database, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := cache.New(store, cache.WithSlidingWindow(cfg.Cache.DefaultSlidingExpiration))
//	defer c.Close()
//
//	err = c.Set(ctx, "session:42", payload, cache.Sliding(20*time.Minute))
//	value, ok, err := c.Get(ctx, "session:42")
package cache

import (
	"context"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/async"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/metrics"
	"github.com/Combine-Capital/pgcache/pkg/tracing"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSlidingWindow is the Refresh extension used when none is configured.
const DefaultSlidingWindow = 20 * time.Minute

// Cache is the full operation surface: raw bytes, strings, and both the
// asynchronous and blocking form of each. A missing or expired key is never
// an error.
type Cache interface {
	// GetAsync reads the live value for key. The future yields nil when the
	// key is absent and a non-nil (possibly empty) slice when it is present.
	GetAsync(ctx context.Context, key string) *async.Future[[]byte]
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetAsync inserts or replaces the entry for key.
	SetAsync(ctx context.Context, key string, value []byte, exp Expiration) *async.Future[struct{}]
	Set(ctx context.Context, key string, value []byte, exp Expiration) error

	// RemoveAsync deletes the entry for key, if any.
	RemoveAsync(ctx context.Context, key string) *async.Future[struct{}]
	Remove(ctx context.Context, key string) error

	// RefreshAsync sets the expiration of an existing entry to now plus the
	// cache's sliding window, whatever its current expiration.
	RefreshAsync(ctx context.Context, key string) *async.Future[struct{}]
	Refresh(ctx context.Context, key string) error

	// GetStringAsync is GetAsync decoded as text; nil means absent.
	GetStringAsync(ctx context.Context, key string) *async.Future[*string]
	GetString(ctx context.Context, key string) (string, bool, error)

	// SetStringAsync is SetAsync of the UTF-8 encoding of value.
	SetStringAsync(ctx context.Context, key, value string, exp Expiration) *async.Future[struct{}]
	SetString(ctx context.Context, key, value string, exp Expiration) error

	// PurgeExpired physically removes entries that are no longer live.
	PurgeExpired(ctx context.Context) (int64, error)

	// Check reports whether the backing store is reachable.
	Check(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// DistributedCache implements Cache on top of a Store. Its configuration is
// fixed at construction.
type DistributedCache struct {
	store  Store
	window time.Duration
	now    func() time.Time
	logger *logging.Logger
}

// Option configures a DistributedCache.
type Option func(*DistributedCache)

// WithSlidingWindow sets the extension applied by Refresh. Non-positive
// values keep DefaultSlidingWindow.
func WithSlidingWindow(d time.Duration) Option {
	return func(c *DistributedCache) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithClock replaces time.Now as the source of "now" for expiration and
// liveness.
func WithClock(now func() time.Time) Option {
	return func(c *DistributedCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for operation failures.
func WithLogger(logger *logging.Logger) Option {
	return func(c *DistributedCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a cache over store.
func New(store Store, opts ...Option) *DistributedCache {
	c := &DistributedCache{
		store:  store,
		window: DefaultSlidingWindow,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(map[string]interface{}{
		logging.Component: "cache",
		logging.Backend:   store.Name(),
	})
	return c
}

// Store returns the backing store.
func (c *DistributedCache) Store() Store {
	return c.store
}

// SlidingWindow returns the extension applied by Refresh.
func (c *DistributedCache) SlidingWindow() time.Duration {
	return c.window
}

func (c *DistributedCache) GetAsync(ctx context.Context, key string) *async.Future[[]byte] {
	return async.Run(ctx, func(ctx context.Context) ([]byte, error) {
		var value []byte
		err := c.instrument(ctx, "get", key, func(ctx context.Context) error {
			if err := ValidateKey(key); err != nil {
				return err
			}
			v, ok, err := c.store.Load(ctx, key, c.now())
			if err != nil {
				return err
			}
			metrics.RecordLookup(c.store.Name(), ok)
			tracing.SetSpanAttributes(ctx, tracing.CacheHit(ok))
			if ok {
				if v == nil {
					v = []byte{}
				}
				value = v
			}
			return nil
		})
		return value, err
	})
}

func (c *DistributedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.GetAsync(ctx, key).Wait()
	return value, value != nil, err
}

func (c *DistributedCache) SetAsync(ctx context.Context, key string, value []byte, exp Expiration) *async.Future[struct{}] {
	return c.run(ctx, "set", key, func(ctx context.Context) error {
		if err := ValidateKey(key); err != nil {
			return err
		}
		if value == nil {
			return errors.NewInvalidInput("value", "must not be nil")
		}
		expiresAt, err := exp.Resolve(c.now())
		if err != nil {
			return err
		}
		return c.store.Save(ctx, key, value, expiresAt)
	})
}

func (c *DistributedCache) Set(ctx context.Context, key string, value []byte, exp Expiration) error {
	_, err := c.SetAsync(ctx, key, value, exp).Wait()
	return err
}

func (c *DistributedCache) RemoveAsync(ctx context.Context, key string) *async.Future[struct{}] {
	return c.run(ctx, "remove", key, func(ctx context.Context) error {
		if err := ValidateKey(key); err != nil {
			return err
		}
		return c.store.Delete(ctx, key)
	})
}

func (c *DistributedCache) Remove(ctx context.Context, key string) error {
	_, err := c.RemoveAsync(ctx, key).Wait()
	return err
}

func (c *DistributedCache) RefreshAsync(ctx context.Context, key string) *async.Future[struct{}] {
	return c.run(ctx, "refresh", key, func(ctx context.Context) error {
		if err := ValidateKey(key); err != nil {
			return err
		}
		return c.store.Touch(ctx, key, c.now().Add(c.window).UTC())
	})
}

func (c *DistributedCache) Refresh(ctx context.Context, key string) error {
	_, err := c.RefreshAsync(ctx, key).Wait()
	return err
}

func (c *DistributedCache) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64
	err := c.instrument(ctx, "purge", "", func(ctx context.Context) error {
		now := c.now()
		var err error
		n, err = c.store.PurgeExpired(ctx, now)
		if err == nil {
			metrics.RecordPurge(c.store.Name(), n, now)
		}
		return err
	})
	return n, err
}

func (c *DistributedCache) Check(ctx context.Context) error {
	return c.store.Check(ctx)
}

func (c *DistributedCache) Close() error {
	return c.store.Close()
}

// run starts an operation that produces no value.
func (c *DistributedCache) run(ctx context.Context, op, key string, fn func(context.Context) error) *async.Future[struct{}] {
	return async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.instrument(ctx, op, key, fn)
	})
}

// instrument wraps one operation in a span, records its metrics and logs
// failures. An already-canceled context aborts the operation before it
// reaches the store.
func (c *DistributedCache) instrument(ctx context.Context, op, key string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "cache."+op,
		trace.WithAttributes(tracing.CacheAttributes(c.store.Name(), op, key)...))
	defer span.End()

	err := ctx.Err()
	if err != nil {
		err = errors.NewCanceled(op, err)
	} else {
		err = fn(ctx)
	}

	if err != nil {
		tracing.SetSpanError(ctx, err)
		c.logFailure(op, key, err)
	}
	metrics.ObserveCacheOperation(op, c.store.Name(), start, err)
	return err
}

func (c *DistributedCache) logFailure(op, key string, err error) {
	event := c.logger.Warn()
	if errors.IsCanceled(err) || errors.IsInvalidInput(err) {
		event = c.logger.Debug()
	}
	event.Str(logging.Operation, op).
		Str(logging.CacheKey, key).
		Err(err).
		Msg("cache operation failed")
}
