// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package api serves the Churnscope HTTP API on a chi router.

Every response uses the models.APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","query_time_ms":12}}
	{"status":"error","error":{"code":"VALIDATION_FAILED","message":"..."},"metadata":{...}}

Routes:

	GET    /api/v1/health                    overall status
	GET    /api/v1/health/live               liveness probe
	GET    /api/v1/health/ready              readiness probe (event store, messaging)
	GET    /api/v1/health/performance        latency percentiles and cache counters
	POST   /api/v1/events/bulk               upload events
	GET    /api/v1/events/summary            event store totals
	POST   /api/v1/analysis/run              full churn analysis
	GET    /api/v1/analysis/segments         ?start_month&end_month
	GET    /api/v1/analysis/trends           ?start_month&end_month
	GET    /api/v1/analysis/metrics          ?month
	GET    /api/v1/analysis/history          ?limit
	GET    /api/v1/reports/summary/{month}   headline metrics for month
	GET    /api/v1/users/inactive            ?days&limit&reference_date
	DELETE /api/v1/cache                     drop cached results
	GET    /metrics                          Prometheus exposition

Error mapping:

  - malformed JSON: 400 BAD_REQUEST
  - validation failures, reversed or oversized ranges: 400 VALIDATION_FAILED
  - uploads above the configured event or byte limit: 413 PAYLOAD_TOO_LARGE
  - snapshots above the configured load limit: 422 VALIDATION_FAILED
  - rate limit: 429 RATE_LIMIT_EXCEEDED
  - store failures: 500 DATABASE_ERROR

Handlers depend on the Analyzer interface, implemented by *analysis.Service.
*/
package api
