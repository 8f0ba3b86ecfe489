package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/config"
)

type memoryEntry struct {
	value     []byte
	expiresAt *time.Time
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt == nil || e.expiresAt.After(now)
}

// MemoryStore keeps entries in process memory with the same liveness rules
// as the table-backed store. It is meant for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Name() string { return config.BackendMemory }

func (m *MemoryStore) Load(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !e.live(now) {
		return nil, false, nil
	}
	return append([]byte{}, e.value...), true, nil
}

func (m *MemoryStore) Save(ctx context.Context, key string, value []byte, expiresAt *time.Time) error {
	e := memoryEntry{value: append([]byte{}, value...)}
	if expiresAt != nil {
		at := *expiresAt
		e.expiresAt = &at
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Touch(ctx context.Context, key string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	at := expiresAt
	e.expiresAt = &at
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, e := range m.entries {
		if !e.live(now) {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Check(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored entries, live or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
