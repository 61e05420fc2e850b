// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/churnscope/internal/middleware"
)

// Router builds the chi route tree.
type Router struct {
	handler        *Handler
	chiMiddleware  *ChiMiddleware
	requestTimeout time.Duration
}

// NewRouter creates a Router. A zero requestTimeout leaves request contexts unbounded.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, requestTimeout time.Duration) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: chiMW, requestTimeout: requestTimeout}
}

// SetupChi returns the HTTP handler serving every route.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	if perf := router.handler.Performance(); perf != nil {
		r.Use(perf.Middleware)
	}
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/performance", router.handler.HealthPerformance)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		if router.requestTimeout > 0 {
			r.Use(chimiddleware.Timeout(router.requestTimeout))
		}

		r.Route("/events", func(r chi.Router) {
			r.With(router.chiMiddleware.RateLimitWrite()).Post("/bulk", router.handler.BulkEvents)
			r.Get("/summary", router.handler.EventsSummary)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/run", router.handler.RunAnalysis)
			r.Get("/segments", router.handler.Segments)
			r.Get("/trends", router.handler.Trends)
			r.Get("/metrics", router.handler.Metrics)
			r.Get("/history", router.handler.History)
		})

		r.Get("/reports/summary/{month}", router.handler.MonthlyReport)
		r.Get("/users/inactive", router.handler.InactiveUsers)
		r.With(router.chiMiddleware.RateLimitWrite()).Delete("/cache", router.handler.ClearCache)
	})

	return r
}
