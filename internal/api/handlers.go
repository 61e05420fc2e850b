// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/churnscope/internal/cache"
	"github.com/tomtom215/churnscope/internal/eventprocessor"
	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/middleware"
	"github.com/tomtom215/churnscope/internal/models"
)

// Request body limits.
const (
	// DefaultMaxBulkBodyBytes bounds a bulk upload body.
	DefaultMaxBulkBodyBytes int64 = 32 << 20
	maxAnalysisBodyBytes    int64 = 64 << 10
)

// Analyzer is the analysis surface the handlers depend on.
type Analyzer interface {
	Run(ctx context.Context, req *models.AnalysisRequest) (*models.ChurnAnalysis, error)
	Segments(ctx context.Context, startMonth, endMonth string) (*models.SegmentsResult, error)
	Trends(ctx context.Context, startMonth, endMonth string) (*models.TrendsResult, error)
	Metrics(ctx context.Context, month string) (*models.MonthlyMetrics, error)
	InactiveUsers(ctx context.Context, days, limit int, ref *time.Time) (*models.InactiveUsersResult, error)
	History(ctx context.Context, limit int) ([]models.AnalysisRun, error)
	Summary(ctx context.Context) (*models.EventStoreSummary, error)
	IngestEvents(ctx context.Context, inputs []models.EventInput) (*models.BulkIngestResult, error)
	ClearCache(ctx context.Context) (int, error)
	CacheStats() (string, cache.Stats)
}

// Pinger reports event store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ComponentChecker reports the health of the messaging router.
type ComponentChecker interface {
	HealthCheck(ctx context.Context) eventprocessor.ComponentHealth
}

// HandlerOptions wires a Handler. DB, Messaging and Performance are optional.
type HandlerOptions struct {
	Service          Analyzer
	DB               Pinger
	Messaging        ComponentChecker
	Transport        string
	InsightsProvider string
	Version          string
	Performance      *middleware.PerformanceMonitor
	MaxBulkBodyBytes int64
}

// Handler serves the HTTP API.
//
// Handler methods are split across files:
//   - handlers_health.go: liveness, readiness and performance
//   - handlers_events.go: bulk upload and event store summary
//   - handlers_analysis.go: analysis, views, inactive users and cache
type Handler struct {
	svc              Analyzer
	db               Pinger
	messaging        ComponentChecker
	transport        string
	insightsProvider string
	version          string
	perf             *middleware.PerformanceMonitor
	maxBulkBodyBytes int64
	startTime        time.Time
}

// NewHandler creates a Handler.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.MaxBulkBodyBytes <= 0 {
		opts.MaxBulkBodyBytes = DefaultMaxBulkBodyBytes
	}
	if opts.Transport == "" {
		opts.Transport = "disabled"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Handler{
		svc:              opts.Service,
		db:               opts.DB,
		messaging:        opts.Messaging,
		transport:        opts.Transport,
		insightsProvider: opts.InsightsProvider,
		version:          opts.Version,
		perf:             opts.Performance,
		maxBulkBodyBytes: opts.MaxBulkBodyBytes,
		startTime:        time.Now(),
	}
}

// Performance returns the monitor the router installs, or nil.
func (h *Handler) Performance() *middleware.PerformanceMonitor {
	return h.perf
}

func logCanceled(r *http.Request, err error) {
	logging.Ctx(r.Context()).Debug().Err(err).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg("Request canceled by client")
}
