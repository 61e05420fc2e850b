// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return newMemoryStore(clock.Now), clock
}

func TestMemoryStoreGetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestMemoryStore()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	value := []byte(`{"churn_rate":12.5}`)
	if err := m.Set(ctx, "metrics:a", value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	// stored value must not alias the caller's slice
	value[0] = 'X'

	got, err := m.Get(ctx, "metrics:a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"churn_rate":12.5}` {
		t.Errorf("Get() = %s", got)
	}

	stats := m.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Keys != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.HitRate() != 50 {
		t.Errorf("HitRate() = %v, want 50", stats.HitRate())
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, clock := newTestMemoryStore()

	_ = m.Set(ctx, "trends:a", []byte("1"), time.Minute)
	_ = m.Set(ctx, "trends:b", []byte("2"), 0)

	clock.Advance(2 * time.Minute)

	if _, err := m.Get(ctx, "trends:a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Get() error = %v, want ErrNotFound", err)
	}
	if _, err := m.Get(ctx, "trends:b"); err != nil {
		t.Errorf("no-TTL entry should not expire: %v", err)
	}
	if m.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", m.Stats().Evictions)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, clock := newTestMemoryStore()

	for _, k := range []string{"a", "b", "c"} {
		_ = m.Set(ctx, k, []byte(k), time.Second)
	}
	_ = m.Set(ctx, "d", []byte("d"), time.Hour)

	clock.Advance(time.Minute)
	if removed := m.cleanup(); removed != 3 {
		t.Errorf("cleanup() removed %d, want 3", removed)
	}
	if m.Stats().Keys != 1 {
		t.Errorf("Keys = %d, want 1", m.Stats().Keys)
	}
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestMemoryStore()

	_ = m.Set(ctx, "segments:1", []byte("1"), time.Hour)
	_ = m.Set(ctx, "segments:2", []byte("2"), time.Hour)
	_ = m.Set(ctx, "metrics:1", []byte("3"), time.Hour)

	n, err := m.DeletePrefix(ctx, "segments:")
	if err != nil || n != 2 {
		t.Fatalf("DeletePrefix() = %d, %v; want 2", n, err)
	}
	if _, err := m.Get(ctx, "metrics:1"); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = m.Set(ctx, "churn_analysis:k", []byte("v"), time.Minute)
				_, _ = m.Get(ctx, "churn_analysis:k")
				if j%50 == 0 {
					_, _ = m.DeletePrefix(ctx, "churn_analysis:")
				}
			}
		}()
	}
	wg.Wait()

	if err := m.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
