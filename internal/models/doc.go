// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package models defines the data structures shared by the churn engine, the
event store and the HTTP API.

Model Categories:

 1. Events (events.go, analytics_churn.go):
    - EventInput: one record of a bulk upload, before validation
    - Event: a stored activity event with categorical attributes
    - BulkIngestResult and IngestError: per-upload outcome

 2. Analysis results (analytics_churn.go):
    - ChurnAnalysis: the full result of one run
    - ChurnMetrics, SegmentResult, TrendPoint, InactivityBucket
    - ReactivationAnalysis and DataQuality
    - Insights: generated commentary attached to an analysis

 3. Requests (requests.go):
    - AnalysisRequest with SegmentSelection, validated with go-playground tags

 4. API envelope (api_responses.go):
    - APIResponse, Metadata and APIError
    - HealthStatus

JSON field names are snake_case and timestamps are RFC 3339 in UTC.
Every categorical dimension of an Event lives in its Attributes map. A
missing or empty value is read through a fallback:

	gender := e.Attribute(models.AttrGender, "Unknown")
*/
package models
