package cache

import (
	"context"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/logging"
)

// OpenStore opens the store selected by cfg.Cache.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendPostgres, "":
		return NewPostgres(ctx, cfg.Cache, cfg.Database, logger)
	case config.BackendRedis:
		return NewRedis(ctx, cfg.Redis)
	case config.BackendMemory:
		return NewMemory(), nil
	default:
		return nil, errors.NewInvalidInput("backend", "unknown cache backend "+cfg.Cache.Backend)
	}
}

// Open opens the configured store and wraps it in a DistributedCache using
// the configured sliding window.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts ...Option) (*DistributedCache, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{
		WithSlidingWindow(cfg.Cache.DefaultSlidingExpiration),
		WithLogger(logger),
	}, opts...)
	return New(store, opts...), nil
}
