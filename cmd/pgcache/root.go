package main

import (
	"context"
	"io"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/cache"
	"github.com/Combine-Capital/pgcache/pkg/client"
	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/retry"
	"github.com/spf13/cobra"
)

const defaultEnvPrefix = "PGCACHE"

type rootOptions struct {
	configPath string
	envPrefix  string
	serverURL  string
	token      string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "pgcache",
		Short:        "PostgreSQL-backed distributed cache",
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML or JSON configuration file")
	flags.StringVar(&opts.envPrefix, "env-prefix", defaultEnvPrefix, "prefix of configuration environment variables")
	flags.StringVar(&opts.serverURL, "server", "", "talk to a pgcache server at this URL instead of opening the store")
	flags.StringVar(&opts.token, "token", "", "bearer token sent to --server")

	cmd.AddCommand(
		newServeCommand(opts),
		newGetCommand(opts),
		newSetCommand(opts),
		newRemoveCommand(opts),
		newRefreshCommand(opts),
		newPurgeCommand(opts),
		newProvisionCommand(opts),
	)
	return cmd
}

// load reads the configuration file when one is given. Environment
// variables override the file and flags override both.
func (o *rootOptions) load() (*config.Config, error) {
	overrides := map[string]interface{}{}
	if o.serverURL != "" {
		overrides["client.server_url"] = o.serverURL
	}
	if o.token != "" {
		overrides["client.token"] = o.token
	}
	return config.LoadWithOverrides(o.configPath, o.envPrefix, overrides)
}

// cliLogger writes to w so that stdout only carries command output.
func cliLogger(cfg *config.Config, w io.Writer) *logging.Logger {
	return logging.NewWithWriter(cfg.Log, w).WithComponent("cli")
}

// openCache opens the configured store, retrying while it is unreachable.
func openCache(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*cache.DistributedCache, error) {
	rc := retry.FromConfig(cfg.Retry)
	rc.OnRetry = func(err error, next time.Duration) {
		logger.Warn().
			Err(err).
			Str(logging.Backend, cfg.Cache.Backend).
			Dur("retry_in", next).
			Msg("cache store unavailable, retrying")
	}

	return retry.DoWithData(ctx, rc, func() (*cache.DistributedCache, error) {
		return cache.Open(ctx, cfg, logger)
	})
}

// entries is the part of the cache API the one-shot commands use. A local
// cache and a remote client both provide it.
type entries interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, exp cache.Expiration) error
	Remove(ctx context.Context, key string) error
	Refresh(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// withEntries hands fn a remote client when a server URL is configured and
// the locally opened cache otherwise.
func (o *rootOptions) withEntries(cmd *cobra.Command, fn func(context.Context, entries) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg, cmd.ErrOrStderr())

	if cfg.Client.ServerURL == "" {
		return withLocalCache(cmd.Context(), cfg, logger, func(ctx context.Context, c *cache.DistributedCache) error {
			return fn(ctx, c)
		})
	}

	c, err := client.New(cfg.Client, client.WithLogger(logger))
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(cmd.Context(), c)
}

// withCache is for commands that need the store itself.
func (o *rootOptions) withCache(cmd *cobra.Command, fn func(context.Context, *cache.DistributedCache) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	if cfg.Client.ServerURL != "" {
		return errors.NewInvalidInput("server", cmd.Name()+" needs direct access to the store")
	}
	return withLocalCache(cmd.Context(), cfg, cliLogger(cfg, cmd.ErrOrStderr()), fn)
}

func withLocalCache(ctx context.Context, cfg *config.Config, logger *logging.Logger, fn func(context.Context, *cache.DistributedCache) error) error {
	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		return errors.Wrapf(err, "open %s cache", cfg.Cache.Backend)
	}
	defer c.Close()

	return fn(ctx, c)
}
