// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/churnscope/internal/models"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to AnalysisCompletedEvent.
const SchemaVersion = 1

// TopicAnalysisCompleted is the default topic for completed analyses.
const TopicAnalysisCompleted = "analysis.completed"

// AnalysisCompletedEvent announces a freshly computed (not cached) analysis.
type AnalysisCompletedEvent struct {
	SchemaVersion int `json:"schema_version,omitempty"`

	AnalysisID string `json:"analysis_id"`
	StartMonth string `json:"start_month"`
	EndMonth   string `json:"end_month"`

	ChurnRate        float64 `json:"churn_rate"`
	ActiveUsers      int     `json:"active_users"`
	ChurnedUsers     int     `json:"churned_users"`
	ReactivatedUsers int     `json:"reactivated_users"`
	LongTermInactive int     `json:"long_term_inactive"`

	ExecutionTimeMs int64     `json:"execution_time_ms"`
	GeneratedAt     time.Time `json:"generated_at"`

	// Config is the effective analysis configuration
	Config models.AnalysisConfig `json:"config"`
}

// NewAnalysisCompletedEvent summarizes an analysis for publication.
func NewAnalysisCompletedEvent(a *models.ChurnAnalysis) *AnalysisCompletedEvent {
	return &AnalysisCompletedEvent{
		SchemaVersion:    SchemaVersion,
		AnalysisID:       a.AnalysisID,
		StartMonth:       a.Config.StartMonth,
		EndMonth:         a.Config.EndMonth,
		ChurnRate:        a.Metrics.ChurnRate,
		ActiveUsers:      a.Metrics.ActiveUsers,
		ChurnedUsers:     a.Metrics.ChurnedUsers,
		ReactivatedUsers: a.Metrics.ReactivatedUsers,
		LongTermInactive: a.Metrics.LongTermInactive,
		ExecutionTimeMs:  a.ExecutionTimeMs,
		GeneratedAt:      a.GeneratedAt,
		Config:           a.Config,
	}
}

// Validate checks required fields.
func (e *AnalysisCompletedEvent) Validate() error {
	if e.AnalysisID == "" {
		return fmt.Errorf("%w: analysis_id is required", ErrInvalidEvent)
	}
	if e.StartMonth == "" || e.EndMonth == "" {
		return fmt.Errorf("%w: start_month and end_month are required", ErrInvalidEvent)
	}
	if e.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: unsupported schema version %d", ErrInvalidEvent, e.SchemaVersion)
	}
	return nil
}

// ToRun converts the event to a persisted analysis run.
func (e *AnalysisCompletedEvent) ToRun() (*models.AnalysisRun, error) {
	cfg, err := json.Marshal(e.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	createdAt := e.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &models.AnalysisRun{
		AnalysisID:       e.AnalysisID,
		StartMonth:       e.StartMonth,
		EndMonth:         e.EndMonth,
		ChurnRate:        e.ChurnRate,
		ActiveUsers:      e.ActiveUsers,
		ChurnedUsers:     e.ChurnedUsers,
		ReactivatedUsers: e.ReactivatedUsers,
		LongTermInactive: e.LongTermInactive,
		ExecutionTimeMs:  e.ExecutionTimeMs,
		ConfigJSON:       string(cfg),
		CreatedAt:        createdAt,
	}, nil
}

// SerializeEvent validates and encodes an event.
func SerializeEvent(event *AnalysisCompletedEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DeserializeEvent decodes and validates an event.
func DeserializeEvent(data []byte) (*AnalysisCompletedEvent, error) {
	var event AnalysisCompletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}
