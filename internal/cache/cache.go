// Package cache holds serialized API responses for a bounded time.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache stores serialized responses by key. Any write to the underlying data
// purges the whole cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Purge(ctx context.Context)
}

// Key builds a cache key from an operation name and its arguments.
func Key(op string, args ...interface{}) string {
	if len(args) == 0 {
		return op
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return op + ":" + hex.EncodeToString(sum[:8])
}

type entry struct {
	storedAt time.Time
	value    []byte
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
}

// Memory is an in-process Cache. Expired entries are dropped lazily on read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	stats   Stats
}

// NewMemory creates a memory cache whose entries live for ttl. now defaults to time.Now.
func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the stored value when it is younger than the TTL.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}
	if m.now().Sub(e.storedAt) >= m.ttl {
		delete(m.entries, key)
		m.stats.Misses++
		m.stats.Evictions++
		return nil, false
	}
	m.stats.Hits++
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = entry{storedAt: m.now(), value: value}
	m.mu.Unlock()
}

// Purge drops every entry.
func (m *Memory) Purge(_ context.Context) {
	m.mu.Lock()
	m.stats.Evictions += int64(len(m.entries))
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Keys = len(m.entries)
	return s
}
