package cache

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)

	s := NewPostgresFromDB(mock, mock, testLocation, nil)
	s.schema.constraintName = func() string { return "pk_test" }
	return s, mock
}

func TestPostgresStoreOperations(t *testing.T) {
	stmts := newStatements(testLocation)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	tests := []struct {
		name   string
		expect func(mock pgxmock.PgxPoolIface)
		run    func(t *testing.T, s *PostgresStore)
	}{
		{
			name: "load hit",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(stmts.selectLive)).
					WithArgs("k", now).
					WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte("v")))
			},
			run: func(t *testing.T, s *PostgresStore) {
				value, ok, err := s.Load(context.Background(), "k", now)
				if err != nil || !ok || string(value) != "v" {
					t.Errorf("Load() = (%q, %v, %v)", value, ok, err)
				}
			},
		},
		{
			name: "load empty value",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(stmts.selectLive)).
					WithArgs("k", now).
					WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte{}))
			},
			run: func(t *testing.T, s *PostgresStore) {
				value, ok, err := s.Load(context.Background(), "k", now)
				if err != nil || !ok || value == nil || len(value) != 0 {
					t.Errorf("Load() = (%v, %v, %v), want present empty value", value, ok, err)
				}
			},
		},
		{
			name: "load miss",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(stmts.selectLive)).
					WithArgs("k", now).
					WillReturnError(pgx.ErrNoRows)
			},
			run: func(t *testing.T, s *PostgresStore) {
				value, ok, err := s.Load(context.Background(), "k", now)
				if err != nil || ok || value != nil {
					t.Errorf("Load() = (%v, %v, %v), want miss", value, ok, err)
				}
			},
		},
		{
			name: "save with expiration",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(stmts.upsert)).
					WithArgs("k", []byte("v"), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			run: func(t *testing.T, s *PostgresStore) {
				if err := s.Save(context.Background(), "k", []byte("v"), &later); err != nil {
					t.Errorf("Save() error = %v", err)
				}
			},
		},
		{
			name: "save without expiration",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(stmts.upsert)).
					WithArgs("k", []byte("v"), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			run: func(t *testing.T, s *PostgresStore) {
				if err := s.Save(context.Background(), "k", []byte("v"), nil); err != nil {
					t.Errorf("Save() error = %v", err)
				}
			},
		},
		{
			name: "delete",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(stmts.delete)).
					WithArgs("k").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			run: func(t *testing.T, s *PostgresStore) {
				if err := s.Delete(context.Background(), "k"); err != nil {
					t.Errorf("Delete() error = %v", err)
				}
			},
		},
		{
			name: "touch",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(stmts.extend)).
					WithArgs("k", later).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			run: func(t *testing.T, s *PostgresStore) {
				if err := s.Touch(context.Background(), "k", later); err != nil {
					t.Errorf("Touch() error = %v", err)
				}
			},
		},
		{
			name: "purge expired",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(stmts.purge)).
					WithArgs(now).
					WillReturnResult(pgxmock.NewResult("DELETE", 3))
			},
			run: func(t *testing.T, s *PostgresStore) {
				n, err := s.PurgeExpired(context.Background(), now)
				if err != nil || n != 3 {
					t.Errorf("PurgeExpired() = (%d, %v), want (3, nil)", n, err)
				}
			},
		},
		{
			name: "admin shutdown is temporary",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(stmts.upsert)).
					WillReturnError(&pgconn.PgError{Code: "57P01"})
			},
			run: func(t *testing.T, s *PostgresStore) {
				err := s.Save(context.Background(), "k", []byte("v"), nil)
				if !errors.IsTemporary(err) {
					t.Errorf("Save() error = %v, want Temporary", err)
				}
			},
		},
		{
			name: "value too long is permanent",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(stmts.upsert)).
					WillReturnError(&pgconn.PgError{Code: "22001"})
			},
			run: func(t *testing.T, s *PostgresStore) {
				err := s.Save(context.Background(), "k", []byte("v"), nil)
				if !errors.IsPermanent(err) {
					t.Errorf("Save() error = %v, want Permanent", err)
				}
			},
		},
		{
			name: "read failure",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(stmts.selectLive)).
					WillReturnError(stderrors.New("unexpected EOF"))
			},
			run: func(t *testing.T, s *PostgresStore) {
				_, _, err := s.Load(context.Background(), "k", now)
				if !errors.IsTemporary(err) {
					t.Errorf("Load() error = %v, want Temporary", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockPostgres(t)
			expectExists(mock, true)
			tt.expect(mock)

			tt.run(t, s)

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestPostgresStoreProvisionsOnce(t *testing.T) {
	s, mock := newMockPostgres(t)
	stmts := newStatements(testLocation)
	ctx := context.Background()
	now := time.Now()

	expectExists(mock, false)
	expectCreate(mock).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta(stmts.upsert)).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(stmts.selectLive)).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte("v")))

	if err := s.Save(ctx, "k", []byte("v"), nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, ok, err := s.Load(ctx, "k", now); err != nil || !ok {
		t.Fatalf("Load() = (%v, %v)", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestPostgresStoreProvisioningFailureStopsStatement(t *testing.T) {
	s, mock := newMockPostgres(t)

	expectExists(mock, false)
	expectCreate(mock).WillReturnError(&pgconn.PgError{Code: "42501"})

	err := s.Save(context.Background(), "k", []byte("v"), nil)
	if !errors.IsPermanent(err) {
		t.Errorf("Save() error = %v, want Permanent", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestPostgresStoreSplitTargets(t *testing.T) {
	read, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer read.Close()
	write, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer write.Close()

	s := NewPostgresFromDB(read, write, testLocation, nil)
	stmts := newStatements(testLocation)
	ctx := context.Background()

	expectExists(write, true)
	read.ExpectQuery(regexp.QuoteMeta(stmts.selectLive)).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte("v")))
	write.ExpectExec(regexp.QuoteMeta(stmts.delete)).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if _, ok, err := s.Load(ctx, "k", time.Now()); err != nil || !ok {
		t.Fatalf("Load() = (%v, %v)", ok, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	write.ExpectQuery("SELECT 1").WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(1))
	read.ExpectQuery("SELECT 1").WillReturnError(stderrors.New("replica down"))
	if err := s.Check(ctx); !errors.IsTemporary(err) {
		t.Errorf("Check() error = %v, want Temporary from read target", err)
	}

	for name, mock := range map[string]pgxmock.PgxPoolIface{"read": read, "write": write} {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("%s: unfulfilled expectations: %s", name, err)
		}
	}
}

func TestPostgresStoreCanceled(t *testing.T) {
	s, mock := newMockPostgres(t)
	expectExists(mock, true)
	mock.ExpectExec(regexp.QuoteMeta(newStatements(testLocation).delete)).
		WillReturnError(context.DeadlineExceeded)

	err := s.Delete(context.Background(), "k")
	if !errors.IsCanceled(err) {
		t.Errorf("Delete() error = %v, want Canceled", err)
	}
}

func TestPostgresStoreWithDistributedCache(t *testing.T) {
	s, mock := newMockPostgres(t)
	stmts := newStatements(testLocation)
	clock := newFakeClock()
	c := New(s, WithClock(clock.Now), WithSlidingWindow(time.Hour))
	ctx := context.Background()

	expectExists(mock, true)
	mock.ExpectExec(regexp.QuoteMeta(stmts.extend)).
		WithArgs("k", clock.Now().Add(time.Hour).UTC(), clock.Now()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := c.Refresh(ctx, "k"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if c.Store().Name() != config.BackendPostgres {
		t.Errorf("Name() = %q", c.Store().Name())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestNewPostgresRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewPostgres(ctx, config.CacheConfig{SchemaName: "public", TableName: "Cache"}, config.DatabaseConfig{}, nil)
	if !errors.IsInvalidInput(err) {
		t.Errorf("NewPostgres() without target error = %v, want InvalidInput", err)
	}

	_, err = NewPostgres(ctx, config.CacheConfig{ConnectionString: "host=localhost", SchemaName: "public"}, config.DatabaseConfig{}, nil)
	if !errors.IsInvalidInput(err) {
		t.Errorf("NewPostgres() without table error = %v, want InvalidInput", err)
	}
}
