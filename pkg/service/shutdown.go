package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/logging"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout is the maximum time to wait for all services to stop.
	// Default is 30 seconds.
	Timeout time.Duration

	// Signals is the list of OS signals that trigger shutdown.
	// If empty, defaults to SIGINT and SIGTERM.
	Signals []os.Signal

	// Logger receives lifecycle events. Nil discards them.
	Logger *logging.Logger
}

func (c ShutdownConfig) withDefaults() ShutdownConfig {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if len(c.Signals) == 0 {
		c.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	return c
}

// Run starts services in order, blocks until a shutdown signal arrives or
// ctx is done, then stops them in reverse order. If a service fails to
// start, the ones already started are stopped and the start error is
// returned.
//
// Example:
//
//	err := service.Run(ctx, service.ShutdownConfig{Logger: logger}, httpSvc, sweeper)
func Run(ctx context.Context, cfg ShutdownConfig, services ...Service) error {
	cfg = cfg.withDefaults()

	started := make([]Service, 0, len(services))
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			_ = stopAll(cfg, started)
			return fmt.Errorf("failed to start service %s: %w", svc.Name(), err)
		}
		cfg.Logger.Info().Str("service", svc.Name()).Msg("service started")
		started = append(started, svc)
	}

	WaitForShutdown(ctx, cfg)
	return stopAll(cfg, started)
}

// WaitForShutdown blocks until one of the configured signals is received or
// ctx is done.
func WaitForShutdown(ctx context.Context, cfg ShutdownConfig) {
	cfg = cfg.withDefaults()

	sigCtx, stop := signal.NotifyContext(ctx, cfg.Signals...)
	defer stop()

	<-sigCtx.Done()
	cfg.Logger.Info().Msg("shutdown requested")
}

// StopAll stops services in reverse order within cfg.Timeout. It keeps
// going after a failure and returns the first error.
func StopAll(cfg ShutdownConfig, services ...Service) error {
	return stopAll(cfg.withDefaults(), services)
}

func stopAll(cfg ShutdownConfig, services []Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	var firstErr error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		if err := svc.Stop(ctx); err != nil {
			cfg.Logger.Error().Err(err).Str("service", svc.Name()).Msg("service failed to stop")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		cfg.Logger.Info().Str("service", svc.Name()).Msg("service stopped")
	}
	return firstErr
}
