// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/churnscope/internal/config"
)

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	type params struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}

	a := GenerateKey(NamespaceAnalysis, params{"2025-01", "2025-03"})
	b := GenerateKey(NamespaceAnalysis, params{"2025-01", "2025-03"})
	c := GenerateKey(NamespaceAnalysis, params{"2025-01", "2025-04"})
	d := GenerateKey(NamespaceTrends, params{"2025-01", "2025-03"})

	if a != b {
		t.Errorf("same params produced different keys: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different params produced the same key")
	}
	if !strings.HasPrefix(a, "churn_analysis:") || !strings.HasPrefix(d, "trends:") {
		t.Errorf("keys lack namespace: %s, %s", a, d)
	}
	// namespace + ":" + 32 hex chars
	if len(a) != len("churn_analysis:")+32 {
		t.Errorf("key length = %d", len(a))
	}
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestMemoryStore()

	type payload struct {
		Rate float64 `json:"rate"`
	}

	var got payload
	ok, err := GetJSON(ctx, m, "metrics:x", &got)
	if ok || err != nil {
		t.Fatalf("GetJSON(miss) = %v, %v", ok, err)
	}

	if err := SetJSON(ctx, m, "metrics:x", payload{Rate: 33.3}, time.Hour); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	ok, err = GetJSON(ctx, m, "metrics:x", &got)
	if !ok || err != nil || got.Rate != 33.3 {
		t.Errorf("GetJSON() = %v, %v, %+v", ok, err, got)
	}

	_ = m.Set(ctx, "metrics:bad", []byte("{"), time.Hour)
	if _, err := GetJSON(ctx, m, "metrics:bad", &got); err == nil {
		t.Error("GetJSON() should fail on corrupt payload")
	}
}

func TestNopStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var s Store = NopStore{}

	_ = s.Set(ctx, "k", []byte("v"), time.Hour)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if n, _ := Clear(ctx, s); n != 0 {
		t.Errorf("Clear() = %d, want 0", n)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"memory", "memory", false},
		{"none", "none", false},
		{"", "none", false},
		{"memcached", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			t.Parallel()
			s, err := New(ctx, config.CacheConfig{Backend: tt.backend})
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer s.Close()
			if s.Backend() != tt.want {
				t.Errorf("Backend() = %q, want %q", s.Backend(), tt.want)
			}
		})
	}
}

func TestConnectRedis(t *testing.T) {
	t.Parallel()

	client, err := ConnectRedis("redis://:secret@cache.internal:6380/2")
	if err != nil {
		t.Fatalf("ConnectRedis() error = %v", err)
	}
	defer client.Close()
	opts := client.Options()
	if opts.Addr != "cache.internal:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Errorf("options = %s db=%d", opts.Addr, opts.DB)
	}

	bare, err := ConnectRedis("localhost:6379")
	if err != nil {
		t.Fatalf("ConnectRedis(bare) error = %v", err)
	}
	defer bare.Close()
	if bare.Options().Addr != "localhost:6379" {
		t.Errorf("bare Addr = %s", bare.Options().Addr)
	}

	if _, err := ConnectRedis("redis://host:notaport/x"); err == nil {
		t.Error("ConnectRedis() should reject a malformed URL")
	}

	store := NewRedisStore(client, "churnscope:")
	if store.key("metrics:a") != "churnscope:metrics:a" {
		t.Errorf("key() = %s", store.key("metrics:a"))
	}
}
