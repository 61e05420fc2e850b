// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"sort"
	"time"

	"github.com/tomtom215/churnscope/internal/models"
)

// DefaultInactivityDays is the long-term inactivity threshold used when none is given.
const DefaultInactivityDays = 90

const day = 24 * time.Hour

// LastActivity maps every user to their most recent event timestamp at or before
// reference. Events after reference are ignored.
func LastActivity(events []models.Event, reference time.Time) map[string]time.Time {
	last := make(map[string]time.Time)
	for _, e := range events {
		if !validEvent(e) || e.Timestamp.After(reference) {
			continue
		}
		if t, ok := last[e.UserID]; !ok || e.Timestamp.After(t) {
			last[e.UserID] = e.Timestamp
		}
	}
	return last
}

// Cutoff returns the instant before which a user counts as long-term inactive.
func Cutoff(reference time.Time, thresholdDays int) time.Time {
	return reference.Add(-time.Duration(thresholdDays) * day)
}

// LongTermInactive counts users whose last activity at or before reference is
// strictly earlier than reference minus thresholdDays. A non-positive threshold
// falls back to DefaultInactivityDays.
func LongTermInactive(events []models.Event, reference time.Time, thresholdDays int) int {
	if thresholdDays <= 0 {
		thresholdDays = DefaultInactivityDays
	}
	return countBefore(LastActivity(events, reference), Cutoff(reference, thresholdDays))
}

// InactivityBreakdown reports the long-term-inactive count for every threshold,
// in ascending threshold order.
func InactivityBreakdown(events []models.Event, reference time.Time, thresholds []int) []models.InactivityBucket {
	return breakdown(LastActivity(events, reference), reference, NormalizeThresholds(thresholds))
}

// InactiveUsers lists users inactive for longer than thresholdDays, longest
// inactivity first. A positive limit truncates the list.
func InactiveUsers(events []models.Event, reference time.Time, thresholdDays, limit int) []models.InactiveUser {
	if thresholdDays <= 0 {
		thresholdDays = DefaultInactivityDays
	}
	cutoff := Cutoff(reference, thresholdDays)

	var users []models.InactiveUser
	for id, t := range LastActivity(events, reference) {
		if !t.Before(cutoff) {
			continue
		}
		users = append(users, models.InactiveUser{
			UserID:       id,
			LastActivity: t,
			InactiveDays: int(reference.Sub(t) / day),
		})
	}

	sort.Slice(users, func(i, j int) bool {
		if !users[i].LastActivity.Equal(users[j].LastActivity) {
			return users[i].LastActivity.Before(users[j].LastActivity)
		}
		return users[i].UserID < users[j].UserID
	})

	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users
}

// NormalizeThresholds sorts thresholds ascending and drops duplicates and
// non-positive entries. An empty result becomes {DefaultInactivityDays}.
func NormalizeThresholds(thresholds []int) []int {
	out := make([]int, 0, len(thresholds))
	seen := make(map[int]struct{}, len(thresholds))
	for _, d := range thresholds {
		if d <= 0 {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		return []int{DefaultInactivityDays}
	}
	sort.Ints(out)
	return out
}

func breakdown(last map[string]time.Time, reference time.Time, thresholds []int) []models.InactivityBucket {
	buckets := make([]models.InactivityBucket, 0, len(thresholds))
	for _, d := range thresholds {
		cutoff := Cutoff(reference, d)
		buckets = append(buckets, models.InactivityBucket{
			ThresholdDays: d,
			Cutoff:        cutoff,
			InactiveUsers: countBefore(last, cutoff),
		})
	}
	return buckets
}

func countBefore(last map[string]time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range last {
		if t.Before(cutoff) {
			n++
		}
	}
	return n
}
