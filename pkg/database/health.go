package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/errors"
)

// CheckHealth runs SELECT 1 against db. Without a caller deadline the probe
// is bounded to 5 seconds.
func CheckHealth(ctx context.Context, db Database) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	var result int
	if err := db.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return Classify(err, "health check failed")
	}

	if result != 1 {
		return errors.NewPermanent(fmt.Sprintf("health check returned unexpected result: %d", result), nil)
	}

	return nil
}

// Check reports whether the pool can serve statements. An exhausted pool is
// reported as unhealthy even when the probe itself succeeds.
func (p *Pool) Check(ctx context.Context) error {
	if err := CheckHealth(ctx, p); err != nil {
		return err
	}

	if stats := p.Stats(); stats != nil {
		if stats.AcquireCount() > 0 && stats.IdleConns() == 0 && stats.TotalConns() == stats.MaxConns() {
			return errors.NewTemporary(fmt.Sprintf("connection pool exhausted: %d/%d connections in use",
				stats.TotalConns(), stats.MaxConns()), nil)
		}
	}

	return nil
}
