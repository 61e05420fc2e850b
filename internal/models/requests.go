// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package models

import "time"

// SegmentSelection chooses the segment breakdowns of an analysis.
// A nil selection on a request means the configured default dimensions.
type SegmentSelection struct {
	Gender     bool `json:"gender"`
	AgeBand    bool `json:"age_band"`
	Channel    bool `json:"channel"`
	Combined   bool `json:"combined"`
	ActionType bool `json:"action_type"`

	// WeekdayPattern and TimePattern segment users by when they are active
	WeekdayPattern bool `json:"weekday_pattern"`
	TimePattern    bool `json:"time_pattern"`
}

// AnalysisRequest is the body of POST /api/v1/analysis/run.
type AnalysisRequest struct {
	StartMonth string            `json:"start_month" validate:"required,yearmonth"`
	EndMonth   string            `json:"end_month" validate:"required,yearmonth"`
	Segments   *SegmentSelection `json:"segments,omitempty"`

	// InactivityDays lists thresholds; the first one drives the headline metric
	InactivityDays []int `json:"inactivity_days,omitempty" validate:"omitempty,max=10,dive,gt=0,lte=3650"`

	ReferenceDate        *time.Time `json:"reference_date,omitempty"`
	ReactivationGapDays  int        `json:"reactivation_gap_days,omitempty" validate:"omitempty,gt=0,lte=365"`
	UncertaintyThreshold int        `json:"uncertainty_threshold,omitempty" validate:"omitempty,gt=0,lte=100000"`

	// MinEventsPerPeriod is the number of events that makes a user active in a month
	MinEventsPerPeriod int `json:"min_events_per_period,omitempty" validate:"omitempty,gt=0,lte=10000"`

	// SkipInsights leaves Insights empty
	SkipInsights bool `json:"skip_insights,omitempty"`
}

// MonthlyMetrics is the headline metric set for the transition into Month.
type MonthlyMetrics struct {
	Month         string       `json:"month"`
	PreviousMonth string       `json:"previous_month"`
	Metrics       ChurnMetrics `json:"metrics"`
	Cached        bool         `json:"cached"`
}

// SegmentsResult is the response body of the segments endpoint.
type SegmentsResult struct {
	StartMonth string                     `json:"start_month"`
	EndMonth   string                     `json:"end_month"`
	Segments   map[string][]SegmentResult `json:"segments"`
	Cached     bool                       `json:"cached"`
}

// TrendsResult is the response body of the trends endpoint.
type TrendsResult struct {
	StartMonth string       `json:"start_month"`
	EndMonth   string       `json:"end_month"`
	Trends     []TrendPoint `json:"trends"`
	Cached     bool         `json:"cached"`
}
