// Package database provides PostgreSQL connection pooling, health checks and
// error classification for pgcache. It wraps pgxpool with the pool limits
// from config.DatabaseConfig; the connection target itself always comes from
// a connection string so read and write pools can point at different servers.
//
// Example usage:
//
//	pool, err := database.NewPool(ctx, "postgres://app@db/app", cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	var n int
//	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&n); err != nil {
//	    return database.Classify(err, "probe")
//	}
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the statement surface the cache needs. *Pool, *pgxpool.Pool,
// pgx.Tx and pgxmock pools all satisfy it.
type Database interface {
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)

	// QueryRow executes a query that is expected to return at most one row.
	// Errors are deferred until Scan; no rows yields pgx.ErrNoRows.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}
