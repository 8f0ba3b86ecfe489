package main

import (
	"context"
	"fmt"

	"github.com/Combine-Capital/pgcache/pkg/auth"
	"github.com/Combine-Capital/pgcache/pkg/cache"
	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/health"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/server"
	"github.com/Combine-Capital/pgcache/pkg/service"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cache over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.HTTPPort = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override server.http_port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	bootstrap, err := service.NewBootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer bootstrap.Cleanup(context.Background())
	logger := bootstrap.Logger

	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open cache")
		return err
	}
	bootstrap.AddCleanup(func(context.Context) error { return c.Close() })

	checks := health.New()
	checks.Register("store", health.CheckerFunc(c.Check))

	serverOpts := []server.Option{
		server.WithHealth(checks),
		server.WithLogger(logger),
		server.WithMaxValueBytes(cfg.Server.MaxValueBytes),
		server.WithMetricsEndpoint(),
	}
	if cfg.Auth.Enabled() {
		authn, err := auth.New(cfg.Auth)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, server.WithAuth(authn.Middleware))
		logger.Info().
			Int("api_keys", len(cfg.Auth.APIKeys)).
			Bool("jwt", cfg.Auth.JWTPublicKeyFile != "").
			Msg("cache routes require authentication")
	}

	httpSvc := service.NewHTTPService("http",
		fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		server.New(c, serverOpts...).Handler(),
		service.WithReadTimeout(cfg.Server.ReadTimeout),
		service.WithWriteTimeout(cfg.Server.WriteTimeout),
		service.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		service.WithMaxHeaderBytes(cfg.Server.MaxHeaderBytes),
	)
	checks.Register(httpSvc.Name(), health.ServiceChecker(httpSvc))
	services := []service.Service{httpSvc}

	if interval := cfg.Cache.ExpiredItemsDeletionInterval; interval > 0 {
		sweeper := cache.NewSweeper(c, interval, logger)
		checks.Register(sweeper.Name(), health.ServiceChecker(sweeper))
		services = append(services, sweeper)
		logger.Info().Dur("interval", interval).Msg("expired entry sweeper enabled")
	}

	logger.Info().
		Int("port", cfg.Server.HTTPPort).
		Str(logging.Backend, c.Store().Name()).
		Dur("sliding_window", c.SlidingWindow()).
		Msg("serving cache")

	return service.Run(ctx, service.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	}, services...)
}
