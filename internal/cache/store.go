// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/churnscope/internal/config"
)

// ErrNotFound is returned by Get when the key is missing or expired.
var ErrNotFound = errors.New("cache: key not found")

// Result namespaces.
const (
	NamespaceAnalysis = "churn_analysis"
	NamespaceMetrics  = "metrics"
	NamespaceSegments = "segments"
	NamespaceTrends   = "trends"
)

// Namespaces lists every result namespace, for bulk invalidation.
var Namespaces = []string{NamespaceAnalysis, NamespaceMetrics, NamespaceSegments, NamespaceTrends}

// Store is a byte-valued cache with per-entry TTLs.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes every key starting with prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Stats returns a snapshot of hit and miss counters.
	Stats() Stats

	// Backend names the implementation ("memory", "redis", "badger", "none").
	Backend() string

	Close() error
}

// Maintainer is implemented by stores that need periodic housekeeping.
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// Stats tracks cache performance.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Keys      int64 `json:"keys"`
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// counters is shared by the backends that cannot ask the server for stats.
type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func (c *counters) snapshot(keys int64) Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Keys:      keys,
	}
}

// GenerateKey builds "<namespace>:<hash>" from the JSON form of params.
func GenerateKey(namespace string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", namespace, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", namespace, hash[:16])
}

// GetJSON decodes the cached value for key into dst. It reports false on a miss.
func GetJSON(ctx context.Context, s Store, key string, dst interface{}) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// Clear removes every result namespace and returns the number of keys removed.
func Clear(ctx context.Context, s Store) (int, error) {
	total := 0
	for _, ns := range Namespaces {
		n, err := s.DeletePrefix(ctx, ns+":")
		total += n
		if err != nil {
			return total, fmt.Errorf("clear %s: %w", ns, err)
		}
	}
	return total, nil
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.KeyPrefix)
	case "badger":
		return OpenBadgerStore(cfg.BadgerPath)
	case "none", "":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NopStore never stores anything.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) DeletePrefix(context.Context, string) (int, error) { return 0, nil }

func (NopStore) Stats() Stats { return Stats{} }

func (NopStore) Backend() string { return "none" }

func (NopStore) Close() error { return nil }
