// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

const memoryCleanupInterval = 5 * time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is a thread-safe in-process TTL map.
//
// Expired entries are dropped lazily on Get and by a cleanup goroutine
// that runs every five minutes until Close.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	counters counters
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its cleanup loop.
func NewMemoryStore() *MemoryStore {
	m := newMemoryStore(time.Now)
	go m.cleanupLoop(memoryCleanupInterval)
	return m
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Get returns the live value for key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.counters.misses.Add(1)
		return nil, ErrNotFound
	}

	if entry.expired(m.now()) {
		m.mu.Lock()
		// re-check: a concurrent Set may have replaced it
		if cur, ok := m.entries[key]; ok && cur.expired(m.now()) {
			delete(m.entries, key)
			m.counters.evictions.Add(1)
		}
		m.mu.Unlock()
		m.counters.misses.Add(1)
		return nil, ErrNotFound
	}

	m.counters.hits.Add(1)
	return entry.data, nil
}

// Set stores a copy of value.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// DeletePrefix removes live and expired keys starting with prefix.
func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			removed++
		}
	}
	m.counters.evictions.Add(int64(removed))
	return removed, nil
}

// Stats returns the counters and the current key count.
func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	keys := int64(len(m.entries))
	m.mu.RUnlock()
	return m.counters.snapshot(keys)
}

// Backend returns "memory".
func (m *MemoryStore) Backend() string { return "memory" }

// Close stops the cleanup loop. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

// cleanup removes all expired entries
func (m *MemoryStore) cleanup() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	m.counters.evictions.Add(int64(removed))
	return removed
}
