// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/churnscope/internal/models"
)

const healthCheckTimeout = 2 * time.Second

// Health reports overall status. It is "degraded" when the event store is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dbConnected := h.pingDB(r.Context())

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}
	backend, _ := h.svc.CacheStats()

	respondSuccess(w, http.StatusOK, models.HealthStatus{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		CacheBackend:      backend,
		Messaging:         h.transport,
		InsightsProvider:  h.insightsProvider,
		Uptime:            time.Since(h.startTime).Seconds(),
		CheckedAt:         time.Now().UTC(),
	}, start, false)
}

// HealthLive answers 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now(), false)
}

// HealthReady answers 200 only when the event store and, if configured, the
// messaging router are healthy.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dbConnected := h.pingDB(r.Context())

	ready := dbConnected
	data := map[string]interface{}{
		"database_connected": dbConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
	}
	if h.messaging != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		component := h.messaging.HealthCheck(ctx)
		cancel()
		data["messaging"] = component
		ready = ready && component.Healthy
	}
	data["ready_to_serve"] = ready

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}
	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// HealthPerformance returns per-endpoint latency percentiles and cache counters.
func (h *Handler) HealthPerformance(w http.ResponseWriter, r *http.Request) {
	backend, stats := h.svc.CacheStats()
	data := map[string]interface{}{
		"cache": map[string]interface{}{
			"backend":   backend,
			"hits":      stats.Hits,
			"misses":    stats.Misses,
			"evictions": stats.Evictions,
			"keys":      stats.Keys,
			"hit_rate":  stats.HitRate(),
		},
	}
	if h.perf != nil {
		data["endpoints"] = h.perf.Stats()
		data["samples"] = h.perf.Len()
	}
	respondSuccess(w, http.StatusOK, data, time.Now(), false)
}

func (h *Handler) pingDB(ctx context.Context) bool {
	if h.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return h.db.Ping(ctx) == nil
}
