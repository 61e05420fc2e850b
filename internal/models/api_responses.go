// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package models

import (
	"time"
)

// APIResponse is the envelope of every HTTP response.
//
// Status is "success" with Data populated, or "error" with Error populated.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"metrics": {"churn_rate": 40.0, ...}, ...},
//	  "metadata": {
//	    "timestamp": "2025-04-01T12:00:00Z",
//	    "query_time_ms": 45,
//	    "cached": false
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_FAILED",
//	    "message": "end period 2025-01 precedes start period 2025-03",
//	    "details": {"field": "end_month"}
//	  },
//	  "metadata": {"timestamp": "2025-04-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing and cache information.
// QueryTimeMS is 0 and Cached is true when a result came from the cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is the error body of a failed request.
//
// Codes:
//   - BAD_REQUEST: malformed body or query parameter
//   - VALIDATION_FAILED: well-formed input that violates a constraint
//   - PAYLOAD_TOO_LARGE: bulk upload above the configured limit
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - DATABASE_ERROR: event store failure
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	DatabaseConnected bool      `json:"database_connected"`
	CacheBackend      string    `json:"cache_backend"`
	Messaging         string    `json:"messaging"`
	InsightsProvider  string    `json:"insights_provider"`
	Uptime            float64   `json:"uptime"`
	CheckedAt         time.Time `json:"checked_at"`
}
