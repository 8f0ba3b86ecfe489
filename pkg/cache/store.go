package cache

import (
	"context"
	"time"
)

// Store is the storage protocol a DistributedCache runs on. Implementations
// evaluate liveness against the now they are given, never their own clock,
// except where the backend expires entries natively.
//
// Errors must already be classified into the pgcache error taxonomy.
type Store interface {
	// Name identifies the backend in logs, metrics and spans.
	Name() string

	// Load returns the value of the live entry for key. A missing or
	// expired entry is (nil, false, nil).
	Load(ctx context.Context, key string, now time.Time) ([]byte, bool, error)

	// Save inserts or replaces the entry atomically. A nil expiresAt
	// stores an entry that never expires.
	Save(ctx context.Context, key string, value []byte, expiresAt *time.Time) error

	// Delete removes the entry. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Touch sets the expiration of the entry stored under key to expiresAt,
	// whatever its current expiration. A missing key is not an error.
	Touch(ctx context.Context, key string, expiresAt time.Time) error

	// PurgeExpired physically deletes entries that are no longer live and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	// Check reports whether the backend is reachable.
	Check(ctx context.Context) error

	// Close releases resources the store owns.
	Close() error
}
