package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	pgerrors "github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: "ok"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "wrapped deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: "canceled"},
		{name: "syntax error", err: &pgconn.PgError{Code: "42601"}, want: "permanent"},
		{name: "undefined table", err: &pgconn.PgError{Code: "42P01"}, want: "permanent"},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, want: "temporary"},
		{name: "too many connections", err: &pgconn.PgError{Code: "53300"}, want: "temporary"},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, want: "temporary"},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: "temporary"},
		{name: "network", err: io.ErrUnexpectedEOF, want: "temporary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "op")
			if kind := pgerrors.Kind(got); kind != tt.want {
				t.Errorf("Classify(%v) kind = %q, want %q", tt.err, kind, tt.want)
			}
			if tt.err != nil && !errors.Is(got, tt.err) {
				t.Errorf("Classify() lost the cause %v", tt.err)
			}
		})
	}
}

func TestIsDuplicateObject(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: UniqueViolation}, true},
		{&pgconn.PgError{Code: DuplicateTable}, true},
		{fmt.Errorf("create: %w", &pgconn.PgError{Code: DuplicateObject}), true},
		{&pgconn.PgError{Code: "42601"}, false},
		{errors.New("42P07"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsDuplicateObject(tt.err); got != tt.want {
			t.Errorf("IsDuplicateObject(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
