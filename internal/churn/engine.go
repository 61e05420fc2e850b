// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/churnscope/internal/models"
)

// DefaultReactivationGapDays is the dormancy gap of the gap-based reactivation count.
const DefaultReactivationGapDays = 30

// WarningEmptyInput is reported when Compute receives no events at all.
const WarningEmptyInput = "empty_input"

// WarningNoEventsInRange is reported when no valid event falls inside the period range.
const WarningNoEventsInRange = "no_events_in_range"

// StandardAttributes are the attributes checked for Unknown values when the
// configuration names no dimensions.
var StandardAttributes = []string{models.AttrGender, models.AttrAgeBand, models.AttrChannel}

// DefaultInactivityThresholds puts the headline threshold first; the rest are
// reported as an informational breakdown.
var DefaultInactivityThresholds = []int{DefaultInactivityDays, 30, 60}

// Config parameterizes one computation.
type Config struct {
	Start      Period
	End        Period
	Dimensions []Dimension

	// InactivityThresholds lists day counts. Only the first feeds the headline
	// LongTermInactive metric.
	InactivityThresholds []int

	// ReferenceInstant anchors inactivity cutoffs. Zero means the first instant
	// after End.
	ReferenceInstant time.Time

	UncertaintyThreshold int
	ReactivationGapDays  int

	// MinEventsPerPeriod is the number of events that makes a user active in a
	// period. Zero or one means any event.
	MinEventsPerPeriod int
}

// Engine computes churn analyses. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an engine. A nil clock uses time.Now.
func NewEngine(clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{now: clock}
}

// Compute runs the full analysis over an immutable batch of events.
func (e *Engine) Compute(ctx context.Context, events []models.Event, cfg Config) (*models.ChurnAnalysis, error) {
	started := e.now()

	periods, err := PeriodsBetween(cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}
	cfg = withDefaults(cfg)

	idx := NewActivityIndex(events, cfg.Dimensions, WithMinEventsPerPeriod(cfg.MinEventsPerPeriod))

	totals, err := AggregateTransitions(ctx, idx, periods, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate transitions: %w", err)
	}

	firstPeriod, lastPeriod := periods[0], periods[len(periods)-1]
	first := idx.ActiveUsers(firstPeriod, nil)
	last := idx.ActiveUsers(lastPeriod, nil)

	lastActivity := LastActivity(events, cfg.ReferenceInstant)
	primary := cfg.InactivityThresholds[0]

	result := &models.ChurnAnalysis{
		Config: echoConfig(cfg),
		Metrics: models.ChurnMetrics{
			ChurnRate:           totals.ChurnRate,
			ActiveUsers:         last.Len(),
			PreviousActiveUsers: first.Len(),
			ReactivatedUsers:    last.DifferenceLen(first),
			LongTermInactive:    countBefore(lastActivity, Cutoff(cfg.ReferenceInstant, primary)),
			ChurnedUsers:        totals.ChurnedTotal,
			RetainedUsers:       totals.RetainedTotal,
			RetentionRate:       totals.RetentionRate,
		},
		Trends:     trendPoints(totals.Transitions),
		Segments:   make(map[string][]models.SegmentResult, len(cfg.Dimensions)),
		Inactivity: breakdown(lastActivity, cfg.ReferenceInstant, NormalizeThresholds(cfg.InactivityThresholds)),
		Reactivation: models.ReactivationAnalysis{
			ReactivatedUsers: gapReactivated(events, lastPeriod, cfg.ReactivationGapDays),
			GapDays:          cfg.ReactivationGapDays,
		},
		DataQuality: dataQuality(events, firstPeriod, lastPeriod, qualityAttributes(cfg.Dimensions)),
		EventCount:  len(events),
	}

	for _, d := range cfg.Dimensions {
		segs, err := AnalyzeSegments(ctx, idx, periods, d, cfg.UncertaintyThreshold)
		if err != nil {
			return nil, fmt.Errorf("analyze dimension %s: %w", d.Name, err)
		}
		result.Segments[d.Name] = segs
	}

	switch {
	case len(events) == 0:
		result.Warnings = append(result.Warnings, WarningEmptyInput)
	case result.DataQuality.ValidEvents == 0:
		result.Warnings = append(result.Warnings, WarningNoEventsInRange)
	}

	result.GeneratedAt = e.now().UTC()
	result.ExecutionTimeMs = result.GeneratedAt.Sub(started).Milliseconds()
	return result, nil
}

func withDefaults(cfg Config) Config {
	if cfg.ReferenceInstant.IsZero() {
		cfg.ReferenceInstant = cfg.End.End()
	}
	if cfg.UncertaintyThreshold <= 0 {
		cfg.UncertaintyThreshold = DefaultUncertaintyThreshold
	}
	if cfg.ReactivationGapDays <= 0 {
		cfg.ReactivationGapDays = DefaultReactivationGapDays
	}
	if cfg.MinEventsPerPeriod < 1 {
		cfg.MinEventsPerPeriod = 1
	}

	thresholds := make([]int, 0, len(cfg.InactivityThresholds))
	for _, d := range cfg.InactivityThresholds {
		if d > 0 {
			thresholds = append(thresholds, d)
		}
	}
	if len(thresholds) == 0 {
		thresholds = append(thresholds, DefaultInactivityThresholds...)
	}
	cfg.InactivityThresholds = thresholds
	return cfg
}

func echoConfig(cfg Config) models.AnalysisConfig {
	names := make([]string, len(cfg.Dimensions))
	for i, d := range cfg.Dimensions {
		names[i] = d.Name
	}
	return models.AnalysisConfig{
		StartMonth:           cfg.Start.String(),
		EndMonth:             cfg.End.String(),
		Dimensions:           names,
		InactivityDays:       cfg.InactivityThresholds,
		ReferenceDate:        cfg.ReferenceInstant.UTC(),
		UncertaintyThreshold: cfg.UncertaintyThreshold,
		ReactivationGapDays:  cfg.ReactivationGapDays,
		MinEventsPerPeriod:   cfg.MinEventsPerPeriod,
	}
}

func trendPoints(transitions []Transition) []models.TrendPoint {
	points := make([]models.TrendPoint, 0, len(transitions))
	for _, tr := range transitions {
		points = append(points, models.TrendPoint{
			Month:          tr.To.String(),
			PreviousMonth:  tr.From.String(),
			ChurnRate:      tr.ChurnRate,
			RetentionRate:  tr.RetentionRate,
			ActiveUsers:    tr.CurrentActive,
			PreviousActive: tr.PreviousActive,
			ChurnedUsers:   tr.Churned,
			RetainedUsers:  tr.Retained,
			NewlyActive:    tr.NewlyActive,
		})
	}
	return points
}

// gapReactivated counts users active in period p whose latest activity before p
// is older than gapDays before p starts. Users with no earlier activity are new,
// not reactivated.
func gapReactivated(events []models.Event, p Period, gapDays int) int {
	start := p.Start()
	cutoff := Cutoff(start, gapDays)

	active := make(UserSet)
	before := make(map[string]time.Time)
	for _, e := range events {
		if !validEvent(e) {
			continue
		}
		switch {
		case p.Contains(e.Timestamp):
			active[e.UserID] = struct{}{}
		case e.Timestamp.Before(start):
			if t, ok := before[e.UserID]; !ok || e.Timestamp.After(t) {
				before[e.UserID] = e.Timestamp
			}
		}
	}

	n := 0
	for id := range active {
		if t, ok := before[id]; ok && t.Before(cutoff) {
			n++
		}
	}
	return n
}

func qualityAttributes(dimensions []Dimension) []string {
	seen := make(map[string]struct{})
	var attrs []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		attrs = append(attrs, name)
	}
	for _, d := range dimensions {
		if d.IsDerived() {
			continue
		}
		if d.IsCombined() {
			for _, c := range d.Components {
				add(c)
			}
			continue
		}
		add(d.Name)
	}
	if len(attrs) == 0 {
		return StandardAttributes
	}
	return attrs
}

// dataQuality summarizes events inside [first, last]. Events without a timestamp
// cannot be placed in a period and are counted as invalid.
func dataQuality(events []models.Event, first, last Period, attrs []string) models.DataQuality {
	var q models.DataQuality
	users := make(UserSet)

	for _, e := range events {
		if e.Timestamp.IsZero() {
			q.TotalEvents++
			continue
		}
		p := PeriodOf(e.Timestamp)
		if p.Before(first) || last.Before(p) {
			continue
		}
		q.TotalEvents++
		if e.UserID == "" {
			continue
		}
		q.ValidEvents++
		users[e.UserID] = struct{}{}
		for _, a := range attrs {
			if e.Attribute(a, Unknown) == Unknown {
				q.UnknownValues++
				break
			}
		}
	}

	q.InvalidEvents = q.TotalEvents - q.ValidEvents
	q.UniqueUsers = users.Len()
	q.DataCompleteness = Rate(q.ValidEvents, q.TotalEvents)
	q.UnknownRatio = Rate(q.UnknownValues, q.TotalEvents)
	return q
}
