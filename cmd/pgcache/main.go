// Command pgcache serves a PostgreSQL-backed distributed cache over HTTP and
// offers one-shot commands against the same store.
//
// Usage:
//
//	pgcache serve --config pgcache.yaml
//	pgcache set session-1 "payload" --sliding 20m
//	pgcache get session-1
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
