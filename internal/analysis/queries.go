// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/churnscope/internal/cache"
	"github.com/tomtom215/churnscope/internal/churn"
	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/models"
	"github.com/tomtom215/churnscope/internal/validation"
)

// Inactive-user listing bounds.
const (
	DefaultInactiveLimit = 100
	MaxInactiveLimit     = 10000
)

type rangeKey struct {
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Dimensions []string `json:"dimensions,omitempty"`
	MinEvents  int      `json:"min_events"`
	Generation uint64   `json:"generation"`
}

// Segments returns the per-dimension breakdown over the configured dimensions.
func (s *Service) Segments(ctx context.Context, startMonth, endMonth string) (*models.SegmentsResult, error) {
	startP, endP, err := s.parseRange(startMonth, endMonth)
	if err != nil {
		return nil, err
	}
	names := s.dimensionNames(nil)
	gen := s.generation.Load()
	key := cache.GenerateKey(cache.NamespaceSegments, s.rangeKey(startP, endP, names, gen))

	var out models.SegmentsResult
	if s.lookup(ctx, cache.NamespaceSegments, key, &out) {
		out.Cached = true
		metrics.RecordAnalysis("segments", "cached", 0)
		return &out, nil
	}

	a, err := s.computeView(ctx, "segments", s.viewConfig(startP, endP, s.dimensions(names)))
	if err != nil {
		return nil, err
	}
	out = models.SegmentsResult{StartMonth: startP.String(), EndMonth: endP.String(), Segments: a.Segments}
	s.remember(ctx, gen, cache.NamespaceSegments, key, out, s.ttl.SegmentsTTL)
	return &out, nil
}

// Trends returns one trend point per month-over-month transition of the range.
func (s *Service) Trends(ctx context.Context, startMonth, endMonth string) (*models.TrendsResult, error) {
	startP, endP, err := s.parseRange(startMonth, endMonth)
	if err != nil {
		return nil, err
	}
	gen := s.generation.Load()
	key := cache.GenerateKey(cache.NamespaceTrends, s.rangeKey(startP, endP, nil, gen))

	var out models.TrendsResult
	if s.lookup(ctx, cache.NamespaceTrends, key, &out) {
		out.Cached = true
		metrics.RecordAnalysis("trends", "cached", 0)
		return &out, nil
	}

	a, err := s.computeView(ctx, "trends", s.viewConfig(startP, endP, nil))
	if err != nil {
		return nil, err
	}
	out = models.TrendsResult{StartMonth: startP.String(), EndMonth: endP.String(), Trends: a.Trends}
	if out.Trends == nil {
		out.Trends = []models.TrendPoint{}
	}
	s.remember(ctx, gen, cache.NamespaceTrends, key, out, s.ttl.TrendsTTL)
	return &out, nil
}

// Metrics returns the headline metrics for the transition from the previous month into month.
func (s *Service) Metrics(ctx context.Context, month string) (*models.MonthlyMetrics, error) {
	p, err := churn.ParsePeriod(month)
	if err != nil {
		return nil, validation.NewRequestValidationError("month", "yearmonth", err.Error(), month)
	}
	gen := s.generation.Load()
	key := cache.GenerateKey(cache.NamespaceMetrics, s.rangeKey(p.Prev(), p, nil, gen))

	var out models.MonthlyMetrics
	if s.lookup(ctx, cache.NamespaceMetrics, key, &out) {
		out.Cached = true
		metrics.RecordAnalysis("metrics", "cached", 0)
		return &out, nil
	}

	a, err := s.computeView(ctx, "metrics", s.viewConfig(p.Prev(), p, nil))
	if err != nil {
		return nil, err
	}
	out = models.MonthlyMetrics{Month: p.String(), PreviousMonth: p.Prev().String(), Metrics: a.Metrics}
	s.remember(ctx, gen, cache.NamespaceMetrics, key, out, s.ttl.MetricsTTL)
	return &out, nil
}

// InactiveUsers lists users whose last activity at or before ref is more than
// days old. Zero days uses the primary configured threshold; a nil ref means now.
func (s *Service) InactiveUsers(ctx context.Context, days, limit int, ref *time.Time) (*models.InactiveUsersResult, error) {
	if days < 0 {
		return nil, validation.NewRequestValidationError("days", "gt", "days must be greater than 0", days)
	}
	if days == 0 {
		days = churn.DefaultInactivityDays
		if len(s.cfg.InactivityDays) > 0 {
			days = s.cfg.InactivityDays[0]
		}
	}
	switch {
	case limit < 0:
		return nil, validation.NewRequestValidationError("limit", "gte", "limit must be 0 or greater", limit)
	case limit == 0:
		limit = DefaultInactiveLimit
	case limit > MaxInactiveLimit:
		limit = MaxInactiveLimit
	}

	reference := s.now().UTC()
	if ref != nil {
		reference = ref.UTC()
	}

	start := s.now()
	last, err := s.store.LoadLastActivity(ctx, reference)
	if err != nil {
		metrics.RecordAnalysis("inactive_users", "error", 0)
		return nil, fmt.Errorf("load last activity: %w", err)
	}

	all := churn.InactiveUsers(last, reference, days, 0)
	listed := all
	if len(listed) > limit {
		listed = listed[:limit]
	}
	if listed == nil {
		listed = []models.InactiveUser{}
	}
	metrics.RecordAnalysis("inactive_users", "computed", s.now().Sub(start))

	return &models.InactiveUsersResult{
		InactiveUsers: listed,
		TotalCount:    len(all),
		Days:          days,
		ReferenceDate: reference,
	}, nil
}

// History returns the most recent persisted analysis runs.
func (s *Service) History(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	runs, err := s.store.ListAnalysisRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list analysis runs: %w", err)
	}
	if runs == nil {
		runs = []models.AnalysisRun{}
	}
	return runs, nil
}

// Summary describes the stored event history.
func (s *Service) Summary(ctx context.Context) (*models.EventStoreSummary, error) {
	summary, err := s.store.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize events: %w", err)
	}
	return summary, nil
}

func (s *Service) rangeKey(start, end churn.Period, dims []string, gen uint64) rangeKey {
	return rangeKey{
		Start:      start.String(),
		End:        end.String(),
		Dimensions: dims,
		MinEvents:  s.minEvents(),
		Generation: gen,
	}
}

// viewConfig is the engine configuration of the partial views, using configured defaults.
func (s *Service) viewConfig(start, end churn.Period, dims []churn.Dimension) churn.Config {
	return churn.Config{
		Start:                start,
		End:                  end,
		Dimensions:           dims,
		InactivityThresholds: s.cfg.InactivityDays,
		UncertaintyThreshold: s.cfg.UncertaintyThreshold,
		ReactivationGapDays:  s.cfg.ReactivationGapDays,
		MinEventsPerPeriod:   s.minEvents(),
	}
}

// computeView runs the engine for a partial view. Views are neither published nor given insights.
func (s *Service) computeView(ctx context.Context, kind string, cfg churn.Config) (*models.ChurnAnalysis, error) {
	start := s.now()

	events, err := s.store.LoadEvents(ctx, snapshotBound(cfg))
	if err != nil {
		metrics.RecordAnalysis(kind, "error", 0)
		return nil, fmt.Errorf("load events: %w", err)
	}
	a, err := s.engine.Compute(ctx, events, cfg)
	if err != nil {
		metrics.RecordAnalysis(kind, "error", 0)
		return nil, err
	}

	metrics.RecordAnalysis(kind, "computed", s.now().Sub(start))
	return a, nil
}
