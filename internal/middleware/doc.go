// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package middleware provides the HTTP middleware shared by every API route.

  - RequestID: accepts or generates X-Request-ID and stores it in the logging context
  - PrometheusMetrics: request counters, latency histogram and in-flight gauge,
    labelled by chi route pattern
  - PerformanceMonitor: a sliding window of request latencies with percentiles,
    served by GET /api/v1/health/performance

The api package installs them after chi's RealIP and Recoverer:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(perf.Middleware)
	r.Use(middleware.PrometheusMetrics)

Route patterns are only known after chi matched the route, so the metrics and
performance middleware read them once the handler returned.
*/
package middleware
