package database

import (
	"context"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolInterface defines the interface for a connection pool.
// This allows for easier testing with mock implementations.
type PoolInterface interface {
	Database
	Ping(ctx context.Context) error
	Close()
	Stat() *pgxpool.Stat
}

// Pool wraps pgxpool.Pool and implements the Database interface.
type Pool struct {
	pool PoolInterface
}

// NewPool parses connString (URL or keyword/value form), applies the pool
// limits from cfg and verifies connectivity with a ping.
//
// A malformed connection string is an InvalidInput error; failing to reach
// the server is a Temporary error.
func NewPool(ctx context.Context, connString string, cfg config.DatabaseConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.NewInvalidInputWithCause("connection_string", "cannot be parsed", err)
	}

	applyLimits(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, Classify(err, "failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, Classify(err, "failed to ping database")
	}

	return &Pool{pool: pool}, nil
}

// NewPoolFrom wraps an existing pool, such as a *pgxpool.Pool owned by the
// application or a pgxmock pool in tests.
func NewPoolFrom(pool PoolInterface) *Pool {
	return &Pool{pool: pool}
}

// applyLimits copies the non-zero pool limits from cfg onto poolConfig.
func applyLimits(poolConfig *pgxpool.Config, cfg config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
}

// Query executes a query that returns rows, typically a SELECT.
func (p *Pool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

// QueryRow executes a query that is expected to return at most one row.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Exec executes a statement that doesn't return rows, typically INSERT, UPDATE, or DELETE.
func (p *Pool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

// Ping verifies a connection to the database is still alive.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes all connections in the pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// Stats returns connection pool statistics. Mock pools may return nil.
func (p *Pool) Stats() *pgxpool.Stat {
	return p.pool.Stat()
}

var _ PoolInterface = (*pgxpool.Pool)(nil)
