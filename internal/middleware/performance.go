// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/churnscope/internal/logging"
)

// DefaultSlowRequestThreshold is the latency above which a request is logged as slow.
const DefaultSlowRequestThreshold = time.Second

// RequestSample is one observed request.
type RequestSample struct {
	Endpoint   string
	DurationMS int64
	StatusCode int
	Timestamp  time.Time
}

// EndpointStats aggregates the retained samples of one endpoint.
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"request_count"`
	ErrorCount   int64   `json:"error_count"`
	AvgDuration  float64 `json:"avg_duration_ms"`
	P50Duration  int64   `json:"p50_duration_ms"`
	P95Duration  int64   `json:"p95_duration_ms"`
	P99Duration  int64   `json:"p99_duration_ms"`
	MaxDuration  int64   `json:"max_duration_ms"`
}

// PerformanceMonitor keeps a sliding window of request latencies per endpoint.
// Analyses over long ranges are the expensive requests; the window makes
// their latency visible without a Prometheus server.
type PerformanceMonitor struct {
	mu            sync.RWMutex
	samples       []RequestSample
	next          int
	full          bool
	slowThreshold time.Duration
}

// NewPerformanceMonitor creates a monitor retaining the last capacity samples.
func NewPerformanceMonitor(capacity int) *PerformanceMonitor {
	if capacity <= 0 {
		capacity = 1000
	}
	return &PerformanceMonitor{
		samples:       make([]RequestSample, capacity),
		slowThreshold: DefaultSlowRequestThreshold,
	}
}

// SetSlowThreshold changes the slow-request logging threshold. Zero disables it.
func (pm *PerformanceMonitor) SetSlowThreshold(d time.Duration) {
	pm.mu.Lock()
	pm.slowThreshold = d
	pm.mu.Unlock()
}

// Record adds a sample, overwriting the oldest when the window is full.
func (pm *PerformanceMonitor) Record(sample RequestSample) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.samples[pm.next] = sample
	pm.next++
	if pm.next == len(pm.samples) {
		pm.next = 0
		pm.full = true
	}
}

// Len returns the number of retained samples.
func (pm *PerformanceMonitor) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.full {
		return len(pm.samples)
	}
	return pm.next
}

// Stats returns per-endpoint statistics, busiest endpoint first.
func (pm *PerformanceMonitor) Stats() []EndpointStats {
	pm.mu.RLock()
	retained := pm.samples[:pm.next]
	if pm.full {
		retained = pm.samples
	}
	durations := make(map[string][]int64)
	errorCounts := make(map[string]int64)
	for _, s := range retained {
		durations[s.Endpoint] = append(durations[s.Endpoint], s.DurationMS)
		if s.StatusCode >= http.StatusInternalServerError {
			errorCounts[s.Endpoint]++
		}
	}
	pm.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(durations))
	for endpoint, d := range durations {
		sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
		var sum int64
		for _, v := range d {
			sum += v
		}
		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(len(d)),
			ErrorCount:   errorCounts[endpoint],
			AvgDuration:  float64(sum) / float64(len(d)),
			P50Duration:  percentile(d, 0.50),
			P95Duration:  percentile(d, 0.95),
			P99Duration:  percentile(d, 0.99),
			MaxDuration:  d[len(d)-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

// Middleware records one sample per request and logs slow requests.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		elapsed := time.Since(start)
		endpoint := r.Method + " " + RoutePattern(r)
		pm.Record(RequestSample{
			Endpoint:   endpoint,
			DurationMS: elapsed.Milliseconds(),
			StatusCode: wrapper.statusCode,
			Timestamp:  start,
		})

		pm.mu.RLock()
		threshold := pm.slowThreshold
		pm.mu.RUnlock()
		if threshold > 0 && elapsed > threshold {
			logging.Ctx(r.Context()).Warn().
				Str("endpoint", endpoint).
				Int("status", wrapper.statusCode).
				Dur("duration", elapsed).
				Msg("Slow request detected")
		}
	})
}

// percentile picks the nearest-rank value from a sorted slice.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
