package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Combine-Capital/pgcache/pkg/cache"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/spf13/cobra"
)

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEntries(cmd, func(ctx context.Context, c entries) error {
				value, ok, err := c.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return errors.NewNotFound("cache entry", args[0])
				}
				_, err = cmd.OutOrStdout().Write(value)
				return err
			})
		},
	}
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	var ttl, sliding, at string

	cmd := &cobra.Command{
		Use:   "set KEY [VALUE]",
		Short: "Store VALUE under KEY, reading standard input when VALUE is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := cache.ParseExpiration(ttl, sliding, at)
			if err != nil {
				return err
			}

			var value []byte
			if len(args) == 2 {
				value = []byte(args[1])
			} else {
				value, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read value: %w", err)
				}
			}

			return opts.withEntries(cmd, func(ctx context.Context, c entries) error {
				return c.Set(ctx, args[0], value, exp)
			})
		},
	}
	cmd.Flags().StringVar(&ttl, "ttl", "", "expire this long after the write (Go duration)")
	cmd.Flags().StringVar(&sliding, "sliding", "", "expire after this long without a refresh (Go duration)")
	cmd.Flags().StringVar(&at, "at", "", "expire at this instant (RFC 3339)")
	cmd.MarkFlagsMutuallyExclusive("ttl", "sliding", "at")
	return cmd
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove KEY",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete the entry stored under KEY",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEntries(cmd, func(ctx context.Context, c entries) error {
				return c.Remove(ctx, args[0])
			})
		},
	}
}

func newRefreshCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh KEY",
		Short: "Extend a sliding entry by the configured window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEntries(cmd, func(ctx context.Context, c entries) error {
				return c.Refresh(ctx, args[0])
			})
		},
	}
}

func newPurgeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every expired entry and print how many were removed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEntries(cmd, func(ctx context.Context, c entries) error {
				n, err := c.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
}

// provisioner is implemented by stores that own a schema.
type provisioner interface {
	Provision(ctx context.Context) error
}

func newProvisionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Create the cache table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCache(cmd, func(ctx context.Context, c *cache.DistributedCache) error {
				p, ok := c.Store().(provisioner)
				if !ok {
					return errors.NewInvalidInput("backend", c.Store().Name()+" backend has no schema to provision")
				}
				return p.Provision(ctx)
			})
		},
	}
}
