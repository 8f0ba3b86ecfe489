package service

import (
	"context"
	"fmt"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/metrics"
	"github.com/Combine-Capital/pgcache/pkg/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Bootstrap represents initialized infrastructure components.
type Bootstrap struct {
	Config         *config.Config
	Logger         *logging.Logger
	TracerProvider *sdktrace.TracerProvider
	cleanup        []func(context.Context) error
}

// BootstrapOption is a functional option for configuring bootstrap behavior.
type BootstrapOption func(*bootstrapConfig)

type bootstrapConfig struct {
	skipMetrics bool
	skipTracing bool
	logger      *logging.Logger
}

// WithoutMetrics disables metrics initialization during bootstrap.
func WithoutMetrics() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipMetrics = true
	}
}

// WithoutTracing disables tracing initialization during bootstrap.
func WithoutTracing() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipTracing = true
	}
}

// WithLogger uses logger instead of building one from cfg.Log.
func WithLogger(logger *logging.Logger) BootstrapOption {
	return func(c *bootstrapConfig) {
		c.logger = logger
	}
}

// NewBootstrap initializes logging, metrics and tracing from configuration,
// in that order.
//
// Metrics are always registered so cache and HTTP instrumentation record
// into the process registry; cfg.Metrics.Enabled only controls whether the
// registry is served on its own port.
//
// Example:
//
//	cfg := config.MustLoad("pgcache.yaml", "PGCACHE")
//	bootstrap, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bootstrap.Cleanup(ctx)
func NewBootstrap(ctx context.Context, cfg *config.Config, opts ...BootstrapOption) (*Bootstrap, error) {
	bc := &bootstrapConfig{}
	for _, opt := range opts {
		opt(bc)
	}

	b := &Bootstrap{
		Config:  cfg,
		Logger:  bc.logger,
		cleanup: make([]func(context.Context) error, 0),
	}

	if b.Logger == nil {
		b.Logger = logging.New(cfg.Log)
	}
	b.Logger = b.Logger.WithFields(map[string]interface{}{logging.ServiceName: cfg.Service.Name})
	b.Logger.Info().
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str(logging.Backend, cfg.Cache.Backend).
		Msg("service starting")

	if !bc.skipMetrics {
		if err := initMetrics(cfg.Metrics); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		b.cleanup = append(b.cleanup, metrics.Shutdown)

		if cfg.Metrics.Enabled {
			b.Logger.Info().
				Int("port", cfg.Metrics.Port).
				Str(logging.Path, cfg.Metrics.Path).
				Msg("metrics initialized")
		}
	}

	if !bc.skipTracing && cfg.Tracing.Enabled {
		tracerProvider, shutdown, err := tracing.NewTracerProvider(ctx, cfg.Tracing, cfg.Service.Name, cfg.Service.Version)
		if err != nil {
			_ = b.Cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		b.TracerProvider = tracerProvider
		b.cleanup = append(b.cleanup, shutdown)

		b.Logger.Info().
			Str("endpoint", cfg.Tracing.Endpoint).
			Float64("sample_rate", cfg.Tracing.SampleRate).
			Msg("tracing initialized")
	}

	return b, nil
}

func initMetrics(cfg config.MetricsConfig) error {
	if err := metrics.Init(cfg); err != nil {
		return err
	}
	if err := metrics.InitCacheMetrics(cfg.Namespace); err != nil {
		return err
	}
	return metrics.InitHTTPMetrics(cfg.Namespace)
}

// Cleanup shuts down all initialized infrastructure components in reverse
// order. Errors are logged and do not stop the remaining cleanups.
func (b *Bootstrap) Cleanup(ctx context.Context) error {
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		if err := b.cleanup[i](ctx); err != nil {
			b.Logger.Error().Err(err).Msg("cleanup error")
		}
	}
	b.cleanup = nil

	b.Logger.Info().Msg("cleanup completed")
	return nil
}

// AddCleanup adds a cleanup function to be executed during Cleanup.
// Cleanup functions are executed in reverse order (LIFO).
//
// Example:
//
//	bootstrap.AddCleanup(func(ctx context.Context) error {
//	    return c.Close()
//	})
func (b *Bootstrap) AddCleanup(fn func(context.Context) error) {
	b.cleanup = append(b.cleanup, fn)
}
