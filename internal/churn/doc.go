// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

// Package churn implements cohort-based churn and retention computation over a
// finite batch of user activity events.
//
// # Overview
//
// Time is partitioned into calendar months (UTC). For every consecutive pair of
// months the previous cohort is split into retained and churned users, and users
// only present in the later month are newly active. Totals are accumulated over
// the whole range and broken down per categorical dimension.
//
// Components, leaves first:
//   - period.go: Period keys, parsing and contiguous ranges
//   - activity.go: single-pass grouping of users by period, dimension and value
//   - pattern.go: weekday and time-of-day classifiers for derived dimensions
//   - transition.go: churned, retained and newly active counts per transition
//   - segment.go: per-value breakdowns with small-sample flagging
//   - inactivity.go: last activity and long-term inactivity classification
//   - engine.go: Engine.Compute composing the headline metrics
//
// # Semantics
//
// Churn rate is 100 * churned / previous-active, rounded to one decimal place
// half away from zero, and 0 when there is no baseline. Segment values whose
// summed baseline is below DefaultUncertaintyThreshold are flagged IsUncertain.
// Missing attributes read as Unknown, and Unknown users are left out of segment
// breakdowns while still counting in the headline metrics.
//
// Derived dimensions classify each user per period from their own activity. A
// user whose pattern changes between months is retained, not churned. With
// WithMinEventsPerPeriod a user needs that many events in a month to be active.
//
// Reactivated users in the headline metrics are the users active in the last
// period but not in the first. The gap-based count in ChurnAnalysis.Reactivation
// is informational.
//
// # Thread Safety
//
// The package holds no global mutable state. An Engine may be shared between
// goroutines; ActivityIndex values are read-only once built.
package churn
