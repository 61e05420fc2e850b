// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/churnscope/internal/cache"
	"github.com/tomtom215/churnscope/internal/churn"
	"github.com/tomtom215/churnscope/internal/config"
	"github.com/tomtom215/churnscope/internal/insights"
	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/models"
	"github.com/tomtom215/churnscope/internal/validation"
)

// ErrRangeTooLarge is returned when a request spans more months than allowed.
var ErrRangeTooLarge = errors.New("analysis range too large")

// ErrTooManyEvents is returned when a bulk upload exceeds the configured limit.
var ErrTooManyEvents = errors.New("too many events in one upload")

// EventStore is the persistence the service reads from and writes to.
type EventStore interface {
	InsertEvents(ctx context.Context, events []models.Event) (int, error)
	LoadEvents(ctx context.Context, until time.Time) ([]models.Event, error)
	LoadLastActivity(ctx context.Context, ref time.Time) ([]models.Event, error)
	Summary(ctx context.Context) (*models.EventStoreSummary, error)
	ListAnalysisRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error)
}

// CompletionPublisher announces freshly computed analyses.
type CompletionPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, a *models.ChurnAnalysis) error
}

// Options wires the service's collaborators. Cache, Insights and Publisher are optional.
type Options struct {
	Store     EventStore
	Cache     cache.Store
	Insights  insights.Generator
	Publisher CompletionPublisher
	Analysis  config.AnalysisConfig
	CacheTTL  config.CacheConfig
	Clock     func() time.Time

	// ComputeTimeout bounds a shared analysis computation. Zero means no bound.
	ComputeTimeout time.Duration
}

// Service orchestrates cache lookups, snapshot loads, the churn engine,
// insight generation and completion events.
type Service struct {
	store     EventStore
	cache     cache.Store
	insights  insights.Generator
	publisher CompletionPublisher
	engine    *churn.Engine
	cfg       config.AnalysisConfig
	ttl       config.CacheConfig
	now       func() time.Time
	timeout   time.Duration
	flight    singleflight.Group

	// generation advances whenever cached results become stale. It is part of
	// every cache and flight key.
	generation atomic.Uint64
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("analysis service requires an event store")
	}
	if opts.Cache == nil {
		opts.Cache = cache.NopStore{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		store:     opts.Store,
		cache:     opts.Cache,
		insights:  opts.Insights,
		publisher: opts.Publisher,
		engine:    churn.NewEngine(opts.Clock),
		cfg:       opts.Analysis,
		ttl:       opts.CacheTTL,
		now:       opts.Clock,
		timeout:   opts.ComputeTimeout,
	}, nil
}

// analysisKey holds every input that changes an analysis result.
type analysisKey struct {
	Start                string    `json:"start"`
	End                  string    `json:"end"`
	Dimensions           []string  `json:"dimensions"`
	InactivityDays       []int     `json:"inactivity_days"`
	ReferenceDate        time.Time `json:"reference_date"`
	ReactivationGapDays  int       `json:"reactivation_gap_days"`
	UncertaintyThreshold int       `json:"uncertainty_threshold"`
	MinEventsPerPeriod   int       `json:"min_events_per_period"`
	Insights             bool      `json:"insights"`
	Generation           uint64    `json:"generation"`
}

// plan is a validated request ready for the engine.
type plan struct {
	cfg      churn.Config
	key      analysisKey
	insights bool
}

// Run returns the full analysis for req, from cache when possible.
// Concurrent identical requests share one computation. A caller that gives up
// returns its own context error; the shared computation carries on for the others.
func (s *Service) Run(ctx context.Context, req *models.AnalysisRequest) (*models.ChurnAnalysis, error) {
	p, err := s.planRequest(req)
	if err != nil {
		return nil, err
	}
	gen := s.generation.Load()
	p.key.Generation = gen
	key := cache.GenerateKey(cache.NamespaceAnalysis, p.key)

	var cached models.ChurnAnalysis
	if s.lookup(ctx, cache.NamespaceAnalysis, key, &cached) {
		cached.Cached = true
		metrics.RecordAnalysis("run", "cached", 0)
		return &cached, nil
	}

	ch := s.flight.DoChan(key, func() (interface{}, error) {
		fctx, cancel := s.detach(ctx)
		defer cancel()
		return s.compute(fctx, p, key, gen)
	})

	select {
	case <-ctx.Done():
		metrics.RecordAnalysis("run", "canceled", 0)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordAnalysis("run", "error", 0)
			return nil, res.Err
		}
		// callers sharing a flight must not share the result value
		shared := *res.Val.(*models.ChurnAnalysis)
		return &shared, nil
	}
}

// detach derives the context of a shared computation: the caller's values
// without its cancellation, bounded by the compute timeout.
func (s *Service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) compute(ctx context.Context, p plan, key string, gen uint64) (*models.ChurnAnalysis, error) {
	start := s.now()
	analysisID := uuid.NewString()
	ctx = logging.ContextWithAnalysisID(ctx, analysisID)
	logger := logging.Ctx(ctx)

	events, err := s.store.LoadEvents(ctx, snapshotBound(p.cfg))
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	result, err := s.engine.Compute(ctx, events, p.cfg)
	if err != nil {
		return nil, err
	}
	result.AnalysisID = analysisID

	if len(result.Warnings) > 0 {
		logger.Warn().Strs("warnings", result.Warnings).
			Str("start_month", result.Config.StartMonth).
			Str("end_month", result.Config.EndMonth).
			Msg("Analysis completed with warnings")
	}

	if p.insights && s.insights != nil {
		out, err := s.insights.Generate(ctx, result)
		if err != nil {
			logger.Warn().Err(err).Msg("Insight generation failed, returning analysis without insights")
		} else {
			result.Insights = out
		}
	}

	s.remember(ctx, gen, cache.NamespaceAnalysis, key, result, s.ttl.AnalysisTTL)

	if s.publisher != nil {
		if err := s.publisher.PublishAnalysisCompleted(ctx, result); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish analysis completion")
		}
	}

	duration := s.now().Sub(start)
	metrics.RecordAnalysis("run", "computed", duration)
	metrics.RecordHeadline(result.Metrics.ChurnRate, result.Metrics.ActiveUsers)

	logger.Info().
		Str("start_month", result.Config.StartMonth).
		Str("end_month", result.Config.EndMonth).
		Int("events", result.EventCount).
		Float64("churn_rate", result.Metrics.ChurnRate).
		Dur("duration", duration).
		Msg("Analysis computed")

	return result, nil
}

// planRequest validates req and resolves defaults.
func (s *Service) planRequest(req *models.AnalysisRequest) (plan, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return plan{}, verr
	}

	startP, endP, err := s.parseRange(req.StartMonth, req.EndMonth)
	if err != nil {
		return plan{}, err
	}

	names := s.dimensionNames(req.Segments)
	thresholds := req.InactivityDays
	if len(thresholds) == 0 {
		thresholds = s.cfg.InactivityDays
	}
	gap := req.ReactivationGapDays
	if gap == 0 {
		gap = s.cfg.ReactivationGapDays
	}
	uncertainty := req.UncertaintyThreshold
	if uncertainty == 0 {
		uncertainty = s.cfg.UncertaintyThreshold
	}
	minEvents := req.MinEventsPerPeriod
	if minEvents == 0 {
		minEvents = s.minEvents()
	}
	var ref time.Time
	if req.ReferenceDate != nil {
		ref = req.ReferenceDate.UTC()
	}

	cfg := churn.Config{
		Start:                startP,
		End:                  endP,
		Dimensions:           s.dimensions(names),
		InactivityThresholds: thresholds,
		ReferenceInstant:     ref,
		UncertaintyThreshold: uncertainty,
		ReactivationGapDays:  gap,
		MinEventsPerPeriod:   minEvents,
	}

	return plan{
		cfg: cfg,
		key: analysisKey{
			Start:                startP.String(),
			End:                  endP.String(),
			Dimensions:           names,
			InactivityDays:       thresholds,
			ReferenceDate:        ref,
			ReactivationGapDays:  gap,
			UncertaintyThreshold: uncertainty,
			MinEventsPerPeriod:   minEvents,
			Insights:             !req.SkipInsights,
		},
		insights: !req.SkipInsights,
	}, nil
}

// parseRange parses and bounds a YYYY-MM range.
func (s *Service) parseRange(startMonth, endMonth string) (churn.Period, churn.Period, error) {
	startP, err := churn.ParsePeriod(startMonth)
	if err != nil {
		return churn.Period{}, churn.Period{}, validation.NewRequestValidationError("start_month", "yearmonth", err.Error(), startMonth)
	}
	endP, err := churn.ParsePeriod(endMonth)
	if err != nil {
		return churn.Period{}, churn.Period{}, validation.NewRequestValidationError("end_month", "yearmonth", err.Error(), endMonth)
	}

	periods, err := churn.PeriodsBetween(startP, endP)
	if err != nil {
		return churn.Period{}, churn.Period{}, err
	}
	if s.cfg.MaxRangeMonths > 0 && len(periods) > s.cfg.MaxRangeMonths {
		return churn.Period{}, churn.Period{}, fmt.Errorf("%w: %d months requested, at most %d allowed",
			ErrRangeTooLarge, len(periods), s.cfg.MaxRangeMonths)
	}
	return startP, endP, nil
}

// snapshotBound is the exclusive upper bound of the events an analysis needs:
// everything through the last period and through the reference instant.
func snapshotBound(cfg churn.Config) time.Time {
	bound := cfg.End.End()
	if ref := cfg.ReferenceInstant; !ref.IsZero() && !ref.Before(bound) {
		bound = ref.Add(time.Nanosecond)
	}
	return bound
}

// lookup reads a cached value. Cache failures count as misses.
func (s *Service) lookup(ctx context.Context, namespace, key string, dst interface{}) bool {
	hit, err := cache.GetJSON(ctx, s.cache, key, dst)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("get").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Cache read failed")
		hit = false
	}
	metrics.RecordCacheLookup(namespace, hit)
	return hit
}

// minEvents is the configured activity threshold, at least one event.
func (s *Service) minEvents() int {
	if s.cfg.MinEventsPerPeriod < 1 {
		return 1
	}
	return s.cfg.MinEventsPerPeriod
}

// remember writes a value computed under generation gen. Values that went stale
// while computing are dropped; write failures are logged and otherwise ignored.
func (s *Service) remember(ctx context.Context, gen uint64, namespace, key string, value interface{}, ttl time.Duration) {
	if s.generation.Load() != gen {
		logging.Ctx(ctx).Debug().Str("namespace", namespace).Msg("Skipping cache write for result computed before new data")
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, ttl); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("namespace", namespace).Msg("Cache write failed")
	}
}
