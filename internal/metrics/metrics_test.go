// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		wantType  string
	}{
		{"successful select", "select_events", nil, ""},
		{"timeout", "insert_events", fmt.Errorf("load: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", "insert_events", context.Canceled, "canceled"},
		{"other error", "save_run", errors.New("constraint violation on a very long message"), "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := "test_" + tt.operation
			RecordDBQuery(tt.operation, table, 5*time.Millisecond, tt.err)

			if tt.wantType == "" {
				return
			}
			got := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, table, tt.wantType))
			if got < 1 {
				t.Errorf("DBQueryErrors{%s} = %v, want >= 1", tt.wantType, got)
			}
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test/metrics", "200"))
	RecordAPIRequest("GET", "/test/metrics", 200, 20*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test/metrics", "200"))

	if after-before != 1 {
		t.Errorf("APIRequestsTotal delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	after := testutil.ToFloat64(APIActiveRequests)

	if after-before != 1 {
		t.Errorf("APIActiveRequests delta = %v, want 1", after-before)
	}
	TrackActiveRequest(false)
}

func TestRecordAnalysis(t *testing.T) {
	computed := AnalysisRuns.WithLabelValues("test_kind", "computed")
	cached := AnalysisRuns.WithLabelValues("test_kind", "cached")
	c0, k0 := testutil.ToFloat64(computed), testutil.ToFloat64(cached)

	RecordAnalysis("test_kind", "computed", 40*time.Millisecond)
	RecordAnalysis("test_kind", "cached", 0)
	RecordAnalysis("test_kind", "cached", 0)

	if d := testutil.ToFloat64(computed) - c0; d != 1 {
		t.Errorf("computed delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(cached) - k0; d != 2 {
		t.Errorf("cached delta = %v, want 2", d)
	}
	if n := testutil.CollectAndCount(AnalysisDuration); n < 1 {
		t.Errorf("AnalysisDuration series = %d, want >= 1", n)
	}
}

func TestRecordHeadline(t *testing.T) {
	RecordHeadline(37.5, 1200)
	if got := testutil.ToFloat64(LastChurnRate); got != 37.5 {
		t.Errorf("LastChurnRate = %v", got)
	}
	if got := testutil.ToFloat64(LastActiveUsers); got != 1200 {
		t.Errorf("LastActiveUsers = %v", got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	h0 := testutil.ToFloat64(CacheHits.WithLabelValues("test_ns"))
	m0 := testutil.ToFloat64(CacheMisses.WithLabelValues("test_ns"))

	RecordCacheLookup("test_ns", true)
	RecordCacheLookup("test_ns", false)
	RecordCacheLookup("test_ns", false)

	if d := testutil.ToFloat64(CacheHits.WithLabelValues("test_ns")) - h0; d != 1 {
		t.Errorf("hits delta = %v", d)
	}
	if d := testutil.ToFloat64(CacheMisses.WithLabelValues("test_ns")) - m0; d != 2 {
		t.Errorf("misses delta = %v", d)
	}
}

func TestRecordCacheMaintenance(t *testing.T) {
	ok0 := testutil.ToFloat64(CacheMaintenanceRuns.WithLabelValues("success"))
	err0 := testutil.ToFloat64(CacheMaintenanceRuns.WithLabelValues("error"))

	RecordCacheMaintenance(nil)
	RecordCacheMaintenance(errors.New("gc failed"))

	if d := testutil.ToFloat64(CacheMaintenanceRuns.WithLabelValues("success")) - ok0; d != 1 {
		t.Errorf("success delta = %v", d)
	}
	if d := testutil.ToFloat64(CacheMaintenanceRuns.WithLabelValues("error")) - err0; d != 1 {
		t.Errorf("error delta = %v", d)
	}
}

func TestRecordIngest(t *testing.T) {
	a0 := testutil.ToFloat64(EventsIngested.WithLabelValues("accepted"))
	r0 := testutil.ToFloat64(EventsIngested.WithLabelValues("rejected"))

	RecordIngest(98, 2)

	if d := testutil.ToFloat64(EventsIngested.WithLabelValues("accepted")) - a0; d != 98 {
		t.Errorf("accepted delta = %v", d)
	}
	if d := testutil.ToFloat64(EventsIngested.WithLabelValues("rejected")) - r0; d != 2 {
		t.Errorf("rejected delta = %v", d)
	}
}

func TestBreakerStateValue(t *testing.T) {
	t.Parallel()

	tests := map[string]float64{"closed": 0, "half-open": 1, "open": 2, "unknown": 0}
	for state, want := range tests {
		if got := BreakerStateValue(state); got != want {
			t.Errorf("BreakerStateValue(%q) = %v, want %v", state, got, want)
		}
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("test-breaker", "closed", "open")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-breaker")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	RecordBreakerTransition("test-breaker", "open", "half-open")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-breaker")); got != 1 {
		t.Errorf("state = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("test-breaker", "closed", "open")); got != 1 {
		t.Errorf("transitions = %v, want 1", got)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordAPIRequest("POST", "/test/concurrent", 201, time.Millisecond)
				RecordCacheLookup("test_concurrent", j%2 == 0)
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/test/concurrent", "201")); got != 1000 {
		t.Errorf("APIRequestsTotal = %v, want 1000", got)
	}
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		DBQueryDuration, DBQueryErrors, EventsIngested, EventsLoaded,
		APIRequestsTotal, APIRequestDuration, APIActiveRequests, APIRateLimitHits,
		AnalysisRuns, AnalysisDuration, LastChurnRate, LastActiveUsers,
		CacheHits, CacheMisses, CacheErrors, CacheInvalidations, CacheMaintenanceRuns,
		InsightsGenerated, CircuitBreakerState, CircuitBreakerRequests, CircuitBreakerTransitions,
		MessagesPublished, MessagesConsumed, AppInfo,
	}
	for i, c := range collectors {
		err := prometheus.DefaultRegisterer.Register(c)
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			t.Errorf("collector %d should already be registered, Register() = %v", i, err)
		}
	}
}
