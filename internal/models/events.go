// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package models

import "time"

// Standard event attribute names. They have dedicated columns in the event store.
const (
	AttrAction  = "action"
	AttrGender  = "gender"
	AttrAgeBand = "age_band"
	AttrChannel = "channel"
)

// EventInput is one event in a bulk upload body.
type EventInput struct {
	UserID     string            `json:"user_id" validate:"required,max=256"`
	CreatedAt  time.Time         `json:"created_at" validate:"required"`
	Action     string            `json:"action" validate:"required,oneof=post comment"`
	Gender     string            `json:"gender,omitempty" validate:"omitempty,oneof=M F Unknown"`
	AgeBand    string            `json:"age_band,omitempty"`
	Channel    string            `json:"channel,omitempty" validate:"omitempty,oneof=web app Unknown"`
	Attributes map[string]string `json:"attributes,omitempty" validate:"omitempty,max=32"`
}

// IngestError describes one rejected event of a bulk upload.
type IngestError struct {
	Index   int    `json:"index"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// BulkIngestResult reports the outcome of a bulk upload.
type BulkIngestResult struct {
	TotalEvents      int           `json:"total_events"`
	SuccessfulEvents int           `json:"successful_events"`
	FailedEvents     int           `json:"failed_events"`
	Errors           []IngestError `json:"errors,omitempty"`
	InvalidatedKeys  int           `json:"invalidated_cache_keys"`
}

// EventStoreSummary describes the stored event history.
type EventStoreSummary struct {
	TotalEvents  int64            `json:"total_events"`
	UniqueUsers  int64            `json:"unique_users"`
	FirstEventAt *time.Time       `json:"first_event_at,omitempty"`
	LastEventAt  *time.Time       `json:"last_event_at,omitempty"`
	ByAction     map[string]int64 `json:"by_action"`
	ByChannel    map[string]int64 `json:"by_channel"`
}

// InactiveUsersResult is the response body of the inactive-user listing.
type InactiveUsersResult struct {
	InactiveUsers []InactiveUser `json:"inactive_users"`
	TotalCount    int            `json:"total_count"`
	Days          int            `json:"days"`
	ReferenceDate time.Time      `json:"reference_date"`
}
