package cache

import (
	"context"
	stderrors "errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/database"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

var testLocation = Location{Schema: "public", Table: "Cache"}

func newMockProvisioner(t *testing.T) (*provisioner, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)

	p := newProvisioner(mock, testLocation, nil)
	p.constraintName = func() string { return "pk_test" }
	return p, mock
}

func expectExists(mock pgxmock.PgxPoolIface, exists bool) {
	mock.ExpectQuery(regexp.QuoteMeta(newStatements(testLocation).tableExists)).
		WithArgs("public", "Cache").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectCreate(mock pgxmock.PgxPoolIface) *pgxmock.ExpectedExec {
	return mock.ExpectExec(regexp.QuoteMeta(newStatements(testLocation).createTable("pk_test")))
}

func TestProvisioner(t *testing.T) {
	tests := []struct {
		name      string
		expect    func(mock pgxmock.PgxPoolIface)
		wantErr   func(error) bool
		wantReady bool
	}{
		{
			name:      "table already exists",
			expect:    func(mock pgxmock.PgxPoolIface) { expectExists(mock, true) },
			wantReady: true,
		},
		{
			name: "table is created",
			expect: func(mock pgxmock.PgxPoolIface) {
				expectExists(mock, false)
				expectCreate(mock).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
			},
			wantReady: true,
		},
		{
			name: "concurrent creation by another session",
			expect: func(mock pgxmock.PgxPoolIface) {
				expectExists(mock, false)
				expectCreate(mock).WillReturnError(&pgconn.PgError{Code: database.UniqueViolation})
				expectExists(mock, true)
			},
			wantReady: true,
		},
		{
			name: "duplicate error but table still missing",
			expect: func(mock pgxmock.PgxPoolIface) {
				expectExists(mock, false)
				expectCreate(mock).WillReturnError(&pgconn.PgError{Code: database.DuplicateTable})
				expectExists(mock, false)
			},
			wantErr: errors.IsPermanent,
		},
		{
			name: "insufficient privilege",
			expect: func(mock pgxmock.PgxPoolIface) {
				expectExists(mock, false)
				expectCreate(mock).WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied for schema public"})
			},
			wantErr: errors.IsPermanent,
		},
		{
			name: "unreachable database",
			expect: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(newStatements(testLocation).tableExists)).
					WillReturnError(stderrors.New("dial tcp: connection refused"))
			},
			wantErr: errors.IsTemporary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mock := newMockProvisioner(t)
			tt.expect(mock)

			err := p.ensure(context.Background())
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Errorf("ensure() error = %v", err)
				}
			} else if err != nil {
				t.Errorf("ensure() error = %v", err)
			}

			if p.ready.Load() != tt.wantReady {
				t.Errorf("ready = %v, want %v", p.ready.Load(), tt.wantReady)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestProvisionerRemembersSuccessOnly(t *testing.T) {
	p, mock := newMockProvisioner(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(newStatements(testLocation).tableExists)).
		WillReturnError(stderrors.New("connection reset"))
	expectExists(mock, true)

	if err := p.ensure(ctx); err == nil {
		t.Fatal("first ensure() should fail")
	}
	if err := p.ensure(ctx); err != nil {
		t.Fatalf("second ensure() error = %v", err)
	}
	// Ready now: no further catalog queries are expected.
	if err := p.ensure(ctx); err != nil {
		t.Fatalf("third ensure() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

// fakeCatalog simulates the system catalog for a single table shared by
// independent sessions.
type fakeCatalog struct {
	mu      sync.Mutex
	present bool

	checks  atomic.Int64
	creates atomic.Int64

	// onCheck runs before each existence check; a non-nil error fails it.
	onCheck func(ctx context.Context, n int64) error
}

type scanRow struct {
	value bool
	err   error
}

func (r scanRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.value
	return nil
}

func (f *fakeCatalog) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, stderrors.New("not supported")
}

func (f *fakeCatalog) QueryRow(ctx context.Context, _ string, _ ...interface{}) pgx.Row {
	n := f.checks.Add(1)
	if f.onCheck != nil {
		if err := f.onCheck(ctx, n); err != nil {
			return scanRow{err: err}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return scanRow{value: f.present}
}

func (f *fakeCatalog) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.present {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: database.UniqueViolation}
	}
	f.present = true
	f.creates.Add(1)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestConcurrentFirstUseFromIndependentCallers(t *testing.T) {
	// Both callers must observe a missing table before either creates it.
	var barrier sync.WaitGroup
	barrier.Add(2)
	catalog := &fakeCatalog{onCheck: func(_ context.Context, n int64) error {
		if n <= 2 {
			barrier.Done()
			barrier.Wait()
		}
		return nil
	}}

	a := newProvisioner(catalog, testLocation, nil)
	b := newProvisioner(catalog, testLocation, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []*provisioner{a, b} {
		wg.Add(1)
		go func(i int, p *provisioner) {
			defer wg.Done()
			errs[i] = p.ensure(context.Background())
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: ensure() error = %v", i, err)
		}
	}
	if got := catalog.creates.Load(); got != 1 {
		t.Errorf("table created %d times, want 1", got)
	}
}

func TestConcurrentCallersShareOneAttempt(t *testing.T) {
	release := make(chan struct{})
	catalog := &fakeCatalog{onCheck: func(context.Context, int64) error {
		<-release
		return nil
	}}
	p := newProvisioner(catalog, testLocation, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.ensure(context.Background()); err != nil {
				t.Errorf("ensure() error = %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := catalog.checks.Load(); got != 1 {
		t.Errorf("catalog checked %d times, want 1", got)
	}
	if got := catalog.creates.Load(); got != 1 {
		t.Errorf("table created %d times, want 1", got)
	}
}

func TestFollowerRetriesWhenLeaderIsCanceled(t *testing.T) {
	entered := make(chan struct{})
	catalog := &fakeCatalog{onCheck: func(ctx context.Context, n int64) error {
		if n == 1 {
			close(entered)
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}}
	p := newProvisioner(catalog, testLocation, nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() { leaderErr <- p.ensure(leaderCtx) }()
	<-entered

	followerErr := make(chan error, 1)
	go func() { followerErr <- p.ensure(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	if err := <-leaderErr; !errors.IsCanceled(err) {
		t.Errorf("leader ensure() error = %v, want Canceled", err)
	}
	select {
	case err := <-followerErr:
		if err != nil {
			t.Errorf("follower ensure() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not finish")
	}
	if !p.ready.Load() {
		t.Error("provisioner should be ready after the follower's attempt")
	}
}
