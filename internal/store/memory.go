// internal/store/memory.go
//
// In-memory keyed store for live game sessions.
//
// Characteristics:
//   - Values keyed by ID in a map, guarded by an RWMutex.
//   - Entries expire after a TTL; expired entries read as not found and are
//     swept lazily on Save.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired IDs.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for live sessions.
type Store[T any] interface {
	Save(ctx context.Context, id string, v T) error
	Get(ctx context.Context, id string) (T, error)
	Delete(ctx context.Context, id string) error
}

type entry[T any] struct {
	v       T
	expires time.Time
}

type memory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore returns an in-memory Store. ttl <= 0 disables expiry.
func NewMemoryStore[T any](ttl time.Duration) Store[T] {
	return &memory[T]{items: make(map[string]entry[T]), ttl: ttl, now: time.Now}
}

func (m *memory[T]) Save(_ context.Context, id string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.items {
		if m.expired(e, now) {
			delete(m.items, k)
		}
	}
	e := entry[T]{v: v}
	if m.ttl > 0 {
		e.expires = now.Add(m.ttl)
	}
	m.items[id] = e
	return nil
}

func (m *memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[id]
	if !ok || m.expired(e, m.now()) {
		var zero T
		return zero, ErrNotFound
	}
	return e.v, nil
}

func (m *memory[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memory[T]) expired(e entry[T], now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}
