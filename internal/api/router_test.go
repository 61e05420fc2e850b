// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/churnscope/internal/analysis"
	"github.com/tomtom215/churnscope/internal/cache"
	"github.com/tomtom215/churnscope/internal/config"
	"github.com/tomtom215/churnscope/internal/insights"
	"github.com/tomtom215/churnscope/internal/middleware"
	"github.com/tomtom215/churnscope/internal/models"
)

func TestRouterFallbacks(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAnalyzer{}, HandlerOptions{}, nil)

	rec, env := doRequest(t, srv, http.MethodGet, "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown route: got %d %+v", rec.Code, env.Error)
	}

	rec, env = doRequest(t, srv, http.MethodGet, "/api/v1/analysis/run", "")
	if rec.Code != http.StatusMethodNotAllowed || env.Error == nil || env.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("wrong method: got %d %+v", rec.Code, env.Error)
	}
}

func TestRouterSetsHeaders(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAnalyzer{}, HandlerOptions{}, nil)
	rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/health/live", "")

	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", rec.Header().Get("Cache-Control"))
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeAnalyzer{}, HandlerOptions{}, nil)
	doRequest(t, srv, http.MethodGet, "/api/v1/health/live", "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("exposition lacks api_requests_total")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 2
	mw.RateLimitWindow = time.Minute
	srv := newTestServer(t, &fakeAnalyzer{}, HandlerOptions{}, mw)

	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/events/summary", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status code = %d", i, rec.Code)
		}
	}
	rec, env := doRequest(t, srv, http.MethodGet, "/api/v1/events/summary", "")
	if rec.Code != http.StatusTooManyRequests || env.Error == nil || env.Error.Code != CodeRateLimitExceeded {
		t.Errorf("third request: got %d %+v", rec.Code, env.Error)
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health probes use their own budget, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	mw := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{
		CORSOrigins:       []string{"https://dash.example.com"},
		RateLimitDisabled: true,
	})
	srv := newTestServer(t, &fakeAnalyzer{}, HandlerOptions{}, mw)

	tests := []struct {
		origin string
		want   string
	}{
		{"https://dash.example.com", "https://dash.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/analysis/run", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: Access-Control-Allow-Origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	t.Parallel()

	cfg := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{RateLimitReqs: 7, RateLimitWindow: time.Second})
	if cfg.RateLimitRequests != 7 || cfg.RateLimitWindow != time.Second || cfg.RateLimitDisabled {
		t.Errorf("config = %+v", cfg)
	}

	def := ChiMiddlewareConfigFromSecurity(nil)
	if def.RateLimitRequests != 100 || len(def.CORSAllowedOrigins) != 0 {
		t.Errorf("defaults = %+v", def)
	}
}

// memoryEventStore is an in-process analysis.EventStore.
type memoryEventStore struct {
	mu     sync.Mutex
	events []models.Event
}

func (m *memoryEventStore) InsertEvents(_ context.Context, events []models.Event) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return len(events), nil
}

func (m *memoryEventStore) LoadEvents(_ context.Context, until time.Time) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, 0, len(m.events))
	for _, e := range m.events {
		if e.Timestamp.Before(until) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryEventStore) LoadLastActivity(_ context.Context, ref time.Time) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := make(map[string]time.Time)
	for _, e := range m.events {
		if e.Timestamp.After(ref) {
			continue
		}
		if t, ok := last[e.UserID]; !ok || e.Timestamp.After(t) {
			last[e.UserID] = e.Timestamp
		}
	}
	out := make([]models.Event, 0, len(last))
	for id, ts := range last {
		out = append(out, models.Event{UserID: id, Timestamp: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memoryEventStore) Summary(context.Context) (*models.EventStoreSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make(map[string]struct{})
	for _, e := range m.events {
		users[e.UserID] = struct{}{}
	}
	return &models.EventStoreSummary{TotalEvents: int64(len(m.events)), UniqueUsers: int64(len(users))}, nil
}

func (m *memoryEventStore) ListAnalysisRuns(context.Context, int) ([]models.AnalysisRun, error) {
	return []models.AnalysisRun{}, nil
}

func TestEndToEndUploadAndAnalyze(t *testing.T) {
	t.Parallel()

	mem := cache.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })

	svc, err := analysis.New(analysis.Options{
		Store:    &memoryEventStore{},
		Cache:    mem,
		Insights: insights.NewRuleGenerator(),
		Analysis: config.AnalysisConfig{
			Dimensions:           []string{"gender", "channel"},
			AgeBands:             []string{"20s", "30s"},
			InactivityDays:       []int{90},
			UncertaintyThreshold: 30,
			ReactivationGapDays:  30,
			MaxRangeMonths:       24,
			MaxBulkEvents:        100,
		},
		CacheTTL: config.CacheConfig{AnalysisTTL: time.Hour, SegmentsTTL: time.Hour, TrendsTTL: time.Hour, MetricsTTL: time.Hour},
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, svc, HandlerOptions{}, nil)

	upload := `[
		{"user_id":"u1","created_at":"2025-01-03T09:00:00Z","action":"post","gender":"F","channel":"app"},
		{"user_id":"u2","created_at":"2025-01-04T09:00:00Z","action":"comment","gender":"M","channel":"web"},
		{"user_id":"u3","created_at":"2025-01-05T09:00:00Z","action":"post","channel":"web"},
		{"user_id":"u1","created_at":"2025-02-03T09:00:00Z","action":"post","gender":"F","channel":"app"},
		{"user_id":"u2","created_at":"2025-02-04T09:00:00Z","action":"post","gender":"M","channel":"web"},
		{"user_id":"u1","created_at":"2025-03-03T09:00:00Z","action":"comment","gender":"F","channel":"app"},
		{"user_id":"","created_at":"2025-03-03T09:00:00Z","action":"post"}
	]`
	rec, env := doRequest(t, srv, http.MethodPost, "/api/v1/events/bulk", upload)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var ingest models.BulkIngestResult
	if err := json.Unmarshal(env.Data, &ingest); err != nil {
		t.Fatal(err)
	}
	if ingest.SuccessfulEvents != 6 || ingest.FailedEvents != 1 || ingest.Errors[0].Index != 6 {
		t.Fatalf("ingest = %+v", ingest)
	}

	run := `{"start_month":"2025-01","end_month":"2025-03"}`
	_, env = doRequest(t, srv, http.MethodPost, "/api/v1/analysis/run", run)
	var first models.ChurnAnalysis
	if err := json.Unmarshal(env.Data, &first); err != nil {
		t.Fatal(err)
	}
	if first.Metrics.ChurnRate != 40 {
		t.Errorf("churn_rate = %v, want 40", first.Metrics.ChurnRate)
	}
	if len(first.Trends) != 2 {
		t.Errorf("got %d trend points, want 2", len(first.Trends))
	}
	if first.Insights == nil || len(first.Insights.Insights) == 0 {
		t.Error("expected rule-based insights")
	}
	if env.Metadata.Cached {
		t.Error("first run must not be cached")
	}

	_, env = doRequest(t, srv, http.MethodPost, "/api/v1/analysis/run", run)
	if !env.Metadata.Cached {
		t.Error("second identical run should be served from cache")
	}

	rec, env = doRequest(t, srv, http.MethodPost, "/api/v1/analysis/run", `{"start_month":"2025-03","end_month":"2025-01"}`)
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != CodeValidationFailed {
		t.Errorf("reversed range: got %d %+v", rec.Code, env.Error)
	}

	rec, env = doRequest(t, srv, http.MethodGet, "/api/v1/users/inactive?days=30&reference_date=2025-04-15", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("inactive users: %d", rec.Code)
	}
	var inactive models.InactiveUsersResult
	if err := json.Unmarshal(env.Data, &inactive); err != nil {
		t.Fatal(err)
	}
	if inactive.TotalCount != 3 {
		t.Errorf("inactive total = %d, want 3", inactive.TotalCount)
	}
}
