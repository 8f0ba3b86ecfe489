package cache

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/database"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/tracing"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// PostgresStore keeps entries in a PostgreSQL table that it provisions on
// first use. Reads go to the read target; writes, refreshes, purges and
// provisioning go to the write target.
type PostgresStore struct {
	read   database.Database
	write  database.Database
	loc    Location
	stmts  statements
	schema *provisioner
	closer func()
}

// NewPostgres opens the pools described by cfg and returns a store for the
// configured location. A missing connection target or an invalid location
// is reported here, before any statement runs.
func NewPostgres(ctx context.Context, cfg config.CacheConfig, dbCfg config.DatabaseConfig, logger *logging.Logger) (*PostgresStore, error) {
	readTarget, writeTarget, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	loc, err := NewLocation(cfg.SchemaName, cfg.TableName)
	if err != nil {
		return nil, err
	}

	writePool, err := database.NewPool(ctx, writeTarget, dbCfg)
	if err != nil {
		return nil, err
	}

	readPool := writePool
	if readTarget != writeTarget {
		readPool, err = database.NewPool(ctx, readTarget, dbCfg)
		if err != nil {
			writePool.Close()
			return nil, err
		}
	}

	s := NewPostgresFromDB(readPool, writePool, loc, logger)
	s.closer = func() {
		if readPool != writePool {
			readPool.Close()
		}
		writePool.Close()
	}
	return s, nil
}

// NewPostgresFromDB builds a store over connections the caller owns. Close
// leaves them open.
func NewPostgresFromDB(read, write database.Database, loc Location, logger *logging.Logger) *PostgresStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	if read == nil {
		read = write
	}
	return &PostgresStore{
		read:   read,
		write:  write,
		loc:    loc,
		stmts:  newStatements(loc),
		schema: newProvisioner(write, loc, logger.WithComponent("schema")),
	}
}

func (s *PostgresStore) Name() string { return config.BackendPostgres }

// Location returns the table this store reads and writes.
func (s *PostgresStore) Location() Location { return s.loc }

// Provision creates the cache table if it does not exist yet. Every other
// operation calls it implicitly.
func (s *PostgresStore) Provision(ctx context.Context) error {
	return s.schema.ensure(ctx)
}

func (s *PostgresStore) Load(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	if err := s.schema.ensure(ctx); err != nil {
		return nil, false, err
	}

	ctx, span := s.span(ctx, "SELECT")
	defer span.End()

	var value []byte
	err := s.read.QueryRow(ctx, s.stmts.selectLive, key, now).Scan(&value)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		err = database.Classify(err, "read cache entry")
		tracing.SetSpanError(ctx, err)
		return nil, false, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, value []byte, expiresAt *time.Time) error {
	return s.exec(ctx, "INSERT", "write cache entry", s.stmts.upsert, key, value, expiresAt)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	return s.exec(ctx, "DELETE", "remove cache entry", s.stmts.delete, key)
}

func (s *PostgresStore) Touch(ctx context.Context, key string, expiresAt time.Time) error {
	return s.exec(ctx, "UPDATE", "refresh cache entry", s.stmts.extend, key, expiresAt)
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := s.schema.ensure(ctx); err != nil {
		return 0, err
	}

	ctx, span := s.span(ctx, "DELETE")
	defer span.End()

	tag, err := s.write.Exec(ctx, s.stmts.purge, now)
	if err != nil {
		err = database.Classify(err, "purge expired cache entries")
		tracing.SetSpanError(ctx, err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Check(ctx context.Context) error {
	if err := database.CheckHealth(ctx, s.write); err != nil {
		return err
	}
	if s.read != s.write {
		return database.CheckHealth(ctx, s.read)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closer != nil {
		s.closer()
		s.closer = nil
	}
	return nil
}

func (s *PostgresStore) exec(ctx context.Context, op, msg, sql string, args ...interface{}) error {
	if err := s.schema.ensure(ctx); err != nil {
		return err
	}

	ctx, span := s.span(ctx, op)
	defer span.End()

	if _, err := s.write.Exec(ctx, sql, args...); err != nil {
		err = database.Classify(err, msg)
		tracing.SetSpanError(ctx, err)
		return err
	}
	return nil
}

func (s *PostgresStore) span(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DatabaseAttributes(op, s.loc.Schema, s.loc.Table)...),
	)
}
