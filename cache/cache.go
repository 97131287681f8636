// Package cache defines the key-value store with per-entry TTL that TokenManager uses to share
// authorizer tokens between processes, plus an in-process implementation. Persistent backends live
// in the filecache and pgcache subpackages.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidTTL is returned by Save when ttl is not positive.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// Cache is a get/set store with per-entry expiry.
type Cache interface {
	// Fetch returns the value stored under key. ok is false when the key is absent or expired.
	Fetch(ctx context.Context, key string) (value string, ok bool, err error)
	// Save stores value under key for ttl.
	Save(ctx context.Context, key string, value string, ttl time.Duration) error
}

type entry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Cache. The zero value is not usable; call NewMemory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetClock overrides the time source; intended for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Fetch implements Cache. Expired entries are evicted on read.
func (m *Memory) Fetch(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Save implements Cache.
func (m *Memory) Save(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
