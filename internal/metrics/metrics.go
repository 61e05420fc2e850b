// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event Store Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnscope_events_ingested_total",
			Help: "Activity events received through bulk upload",
		},
		[]string{"result"}, // "accepted", "rejected"
	)

	EventsLoaded = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churnscope_events_loaded",
			Help:    "Events loaded from the event store per analysis",
			Buckets: prometheus.ExponentialBuckets(100, 4, 9), // 100 .. ~6.5M
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Analysis Metrics
	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnscope_analysis_runs_total",
			Help: "Churn analyses served, by outcome",
		},
		[]string{"kind", "result"}, // kind: analysis, segments, trends, metrics; result: computed, cached, error
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "churnscope_analysis_duration_seconds",
			Help:    "Engine compute time per analysis",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"kind"},
	)

	LastChurnRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "churnscope_last_churn_rate_percent",
			Help: "Overall churn rate of the most recent computed analysis",
		},
	)

	LastActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "churnscope_last_active_users",
			Help: "Active users in the end month of the most recent computed analysis",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"namespace"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Cache backend failures, by operation",
		},
		[]string{"operation"},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_invalidated_keys_total",
			Help: "Keys removed by cache invalidation",
		},
	)

	CacheMaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_maintenance_runs_total",
			Help: "Periodic cache maintenance passes, by result",
		},
		[]string{"result"},
	)

	// Insight Metrics
	InsightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnscope_insights_generated_total",
			Help: "Insight generations, by provider and outcome",
		},
		[]string{"provider", "result"}, // result: success, fallback, error
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Messaging Metrics
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnscope_messages_published_total",
			Help: "Analysis completion messages published, by outcome",
		},
		[]string{"topic", "result"},
	)

	MessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churnscope_messages_consumed_total",
			Help: "Analysis completion messages handled, by outcome",
		},
		[]string{"topic", "result"}, // result: processed, parse_failed, failed
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churnscope_info",
			Help: "Build information, constant 1",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, classifyError(err)).Inc()
	}
}

// classifyError keeps the error_type label low-cardinality
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "query"
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAnalysis records one served analysis. Only computed runs observe duration.
func RecordAnalysis(kind, result string, duration time.Duration) {
	AnalysisRuns.WithLabelValues(kind, result).Inc()
	if result == "computed" {
		AnalysisDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordHeadline publishes the headline numbers of a computed full analysis.
func RecordHeadline(churnRate float64, activeUsers int) {
	LastChurnRate.Set(churnRate)
	LastActiveUsers.Set(float64(activeUsers))
}

// RecordCacheLookup records a hit or miss in namespace.
func RecordCacheLookup(namespace string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(namespace).Inc()
	} else {
		CacheMisses.WithLabelValues(namespace).Inc()
	}
}

// RecordCacheMaintenance records one maintenance pass.
func RecordCacheMaintenance(err error) {
	if err != nil {
		CacheMaintenanceRuns.WithLabelValues("error").Inc()
		return
	}
	CacheMaintenanceRuns.WithLabelValues("success").Inc()
}

// RecordIngest records the outcome of a bulk upload.
func RecordIngest(accepted, rejected int) {
	EventsIngested.WithLabelValues("accepted").Add(float64(accepted))
	EventsIngested.WithLabelValues("rejected").Add(float64(rejected))
}

// BreakerStateValue maps a breaker state name to the gauge value.
func BreakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordBreakerTransition updates the state gauge and counts the transition.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerState.WithLabelValues(name).Set(BreakerStateValue(to))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
