// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package models

import "time"

// Event is a single user activity record supplied by the event store.
// Attributes maps a dimension name (gender, age_band, channel, action, ...) to a
// categorical value. A missing attribute is read as "Unknown".
type Event struct {
	UserID     string            `json:"user_id"`
	Timestamp  time.Time         `json:"created_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attribute returns the value of the named attribute, or fallback when absent or empty.
func (e Event) Attribute(name, fallback string) string {
	if v, ok := e.Attributes[name]; ok && v != "" {
		return v
	}
	return fallback
}

// ChurnMetrics is the range-level headline metric set.
type ChurnMetrics struct {
	// ChurnRate is the aggregate churn percentage across all transitions of the range
	ChurnRate float64 `json:"churn_rate"`

	// ActiveUsers is the cohort size in the last period of the range
	ActiveUsers int `json:"active_users"`

	// PreviousActiveUsers is the cohort size in the first period of the range
	PreviousActiveUsers int `json:"previous_active_users"`

	// ReactivatedUsers counts users active in the last period who were not active in the first
	ReactivatedUsers int `json:"reactivated_users"`

	// LongTermInactive counts users whose last activity precedes the primary inactivity cutoff
	LongTermInactive int `json:"long_term_inactive"`

	// ChurnedUsers is the sum of churned users over all transitions
	ChurnedUsers int `json:"churned_users"`

	// RetainedUsers is the sum of retained users over all transitions
	RetainedUsers int `json:"retained_users"`

	// RetentionRate is the aggregate retention percentage across all transitions
	RetentionRate float64 `json:"retention_rate"`
}

// SegmentResult is the churn breakdown for one value of one segment dimension.
// PreviousActive is the sum of every transition baseline across the range, not the
// size of a single cohort.
type SegmentResult struct {
	Dimension      string  `json:"dimension"`
	SegmentValue   string  `json:"segment_value"`
	CurrentActive  int     `json:"current_active"`
	PreviousActive int     `json:"previous_active"`
	ChurnedUsers   int     `json:"churned_users"`
	ChurnRate      float64 `json:"churn_rate"`
	IsUncertain    bool    `json:"is_uncertain"`
}

// TrendPoint is the churn outcome of a single month-over-month transition.
type TrendPoint struct {
	Month          string  `json:"month"`
	PreviousMonth  string  `json:"previous_month"`
	ChurnRate      float64 `json:"churn_rate"`
	RetentionRate  float64 `json:"retention_rate"`
	ActiveUsers    int     `json:"active_users"`
	PreviousActive int     `json:"previous_active"`
	ChurnedUsers   int     `json:"churned_users"`
	RetainedUsers  int     `json:"retained_users"`
	NewlyActive    int     `json:"newly_active"`
}

// InactivityBucket is the long-term-inactive count for one threshold.
type InactivityBucket struct {
	ThresholdDays int       `json:"threshold_days"`
	Cutoff        time.Time `json:"cutoff"`
	InactiveUsers int       `json:"inactive_users"`
}

// InactiveUser is a single long-term-inactive user.
type InactiveUser struct {
	UserID       string    `json:"user_id"`
	LastActivity time.Time `json:"last_activity"`
	InactiveDays int       `json:"inactive_days"`
}

// ReactivationAnalysis counts users who came back after a dormancy gap.
// This is informational; ChurnMetrics.ReactivatedUsers is the canonical figure.
type ReactivationAnalysis struct {
	ReactivatedUsers int `json:"reactivated_users"`
	GapDays          int `json:"gap_days"`
}

// DataQuality summarizes the events that fell inside the analysis range.
type DataQuality struct {
	TotalEvents      int     `json:"total_events"`
	ValidEvents      int     `json:"valid_events"`
	InvalidEvents    int     `json:"invalid_events"`
	UnknownValues    int     `json:"unknown_values"`
	UniqueUsers      int     `json:"unique_users"`
	DataCompleteness float64 `json:"data_completeness"`
	UnknownRatio     float64 `json:"unknown_ratio"`
}

// AnalysisConfig echoes the effective parameters of an analysis run.
type AnalysisConfig struct {
	StartMonth           string    `json:"start_month"`
	EndMonth             string    `json:"end_month"`
	Dimensions           []string  `json:"dimensions"`
	InactivityDays       []int     `json:"inactivity_days"`
	ReferenceDate        time.Time `json:"reference_date"`
	UncertaintyThreshold int       `json:"uncertainty_threshold"`
	ReactivationGapDays  int       `json:"reactivation_gap_days"`
	MinEventsPerPeriod   int       `json:"min_events_per_period"`
}

// Insights holds narrative findings produced by an insight generator.
type Insights struct {
	Insights    []string  `json:"insights"`
	Actions     []string  `json:"actions"`
	GeneratedBy string    `json:"generated_by"`
	Model       string    `json:"model,omitempty"`
	Fallback    bool      `json:"fallback"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ChurnAnalysis is the complete result of one analysis run.
type ChurnAnalysis struct {
	AnalysisID   string                     `json:"analysis_id"`
	Config       AnalysisConfig             `json:"config"`
	Metrics      ChurnMetrics               `json:"metrics"`
	Trends       []TrendPoint               `json:"trends"`
	Segments     map[string][]SegmentResult `json:"segments"`
	Inactivity   []InactivityBucket         `json:"inactivity"`
	Reactivation ReactivationAnalysis       `json:"reactivation"`
	DataQuality  DataQuality                `json:"data_quality"`
	Warnings     []string                   `json:"warnings,omitempty"`
	Insights     *Insights                  `json:"insights,omitempty"`

	GeneratedAt     time.Time `json:"generated_at"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	EventCount      int       `json:"event_count"`
	Cached          bool      `json:"cached"`
}

// AnalysisRun is a persisted summary of a completed analysis.
type AnalysisRun struct {
	AnalysisID       string    `json:"analysis_id"`
	StartMonth       string    `json:"start_month"`
	EndMonth         string    `json:"end_month"`
	ChurnRate        float64   `json:"churn_rate"`
	ActiveUsers      int       `json:"active_users"`
	ChurnedUsers     int       `json:"churned_users"`
	ReactivatedUsers int       `json:"reactivated_users"`
	LongTermInactive int       `json:"long_term_inactive"`
	ExecutionTimeMs  int64     `json:"execution_time_ms"`
	ConfigJSON       string    `json:"config,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
