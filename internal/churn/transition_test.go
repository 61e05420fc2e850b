// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/churnscope/internal/models"
)

func TestRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		num, den int
		want     float64
	}{
		{1, 3, 33.3},
		{2, 3, 66.7},
		{2, 10, 20.0},
		{1, 16, 6.3}, // 6.25 rounds half away from zero
		{1, 8, 12.5},
		{0, 5, 0},
		{5, 0, 0},
		{7, 7, 100},
	}

	for _, tt := range tests {
		if got := Rate(tt.num, tt.den); got != tt.want {
			t.Errorf("Rate(%d, %d) = %v, want %v", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestAggregateTransitionsScenarioA(t *testing.T) {
	t.Parallel()

	var events []models.Event
	events = append(events, cohort("2025-07-10", []string{"u1", "u2", "u3"})...)
	events = append(events, cohort("2025-08-10", []string{"u1", "u2"})...)

	idx := NewActivityIndex(events, nil)
	totals, err := AggregateTransitions(context.Background(), idx, mustPeriods("2025-07", "2025-08"), nil)
	if err != nil {
		t.Fatalf("AggregateTransitions() error = %v", err)
	}

	if totals.PreviousActiveTotal != 3 {
		t.Errorf("PreviousActiveTotal = %d, want 3", totals.PreviousActiveTotal)
	}
	if totals.ChurnedTotal != 1 {
		t.Errorf("ChurnedTotal = %d, want 1", totals.ChurnedTotal)
	}
	if totals.ChurnRate != 33.3 {
		t.Errorf("ChurnRate = %v, want 33.3", totals.ChurnRate)
	}
	if totals.CurrentActive != 2 {
		t.Errorf("CurrentActive = %d, want 2", totals.CurrentActive)
	}
}

func TestAggregateTransitionsSinglePeriod(t *testing.T) {
	t.Parallel()

	events := cohort("2025-07-10", []string{"u1", "u2"})
	idx := NewActivityIndex(events, nil)

	totals, err := AggregateTransitions(context.Background(), idx, mustPeriods("2025-07", "2025-07"), nil)
	if err != nil {
		t.Fatalf("AggregateTransitions() error = %v", err)
	}
	if totals.PreviousActiveTotal != 0 || totals.ChurnRate != 0 {
		t.Errorf("Expected no baseline, got %+v", totals)
	}
	if len(totals.Transitions) != 0 {
		t.Errorf("Expected no transitions, got %d", len(totals.Transitions))
	}
	if totals.CurrentActive != 2 {
		t.Errorf("CurrentActive = %d, want 2", totals.CurrentActive)
	}
}

func TestAggregateTransitionsPartitionIdentity(t *testing.T) {
	t.Parallel()

	var events []models.Event
	events = append(events, cohort("2025-01-05", userRange("u", 0, 40))...)
	events = append(events, cohort("2025-02-05", userRange("u", 10, 55))...)
	events = append(events, cohort("2025-03-05", userRange("u", 30, 45))...)
	// April is empty, May restarts
	events = append(events, cohort("2025-05-05", userRange("u", 0, 5))...)
	events = append(events, cohort("2025-06-05", userRange("u", 3, 20))...)

	idx := NewActivityIndex(events, nil)
	totals, err := AggregateTransitions(context.Background(), idx, mustPeriods("2025-01", "2025-06"), nil)
	if err != nil {
		t.Fatalf("AggregateTransitions() error = %v", err)
	}

	if len(totals.Transitions) != 5 {
		t.Fatalf("Expected 5 transitions, got %d", len(totals.Transitions))
	}

	var prevSum, churnSum, retainSum int
	for _, tr := range totals.Transitions {
		if tr.Churned+tr.Retained != tr.PreviousActive {
			t.Errorf("%s->%s: churned %d + retained %d != previous %d",
				tr.From, tr.To, tr.Churned, tr.Retained, tr.PreviousActive)
		}
		if tr.Retained+tr.NewlyActive != tr.CurrentActive {
			t.Errorf("%s->%s: retained %d + new %d != current %d",
				tr.From, tr.To, tr.Retained, tr.NewlyActive, tr.CurrentActive)
		}
		prevSum += tr.PreviousActive
		churnSum += tr.Churned
		retainSum += tr.Retained
	}

	if totals.ChurnedTotal+totals.RetainedTotal != totals.PreviousActiveTotal {
		t.Errorf("Totals do not partition: %d + %d != %d",
			totals.ChurnedTotal, totals.RetainedTotal, totals.PreviousActiveTotal)
	}
	if prevSum != totals.PreviousActiveTotal || churnSum != totals.ChurnedTotal || retainSum != totals.RetainedTotal {
		t.Errorf("Totals disagree with transitions: %+v", totals)
	}

	// Mar->Apr churns everyone, Apr->May has no baseline
	if got := totals.Transitions[2].ChurnRate; got != 100 {
		t.Errorf("Mar->Apr churn rate = %v, want 100", got)
	}
	if got := totals.Transitions[3]; got.PreviousActive != 0 || got.ChurnRate != 0 || got.NewlyActive != 5 {
		t.Errorf("Apr->May transition = %+v", got)
	}
}

func TestAggregateTransitionsCancelled(t *testing.T) {
	t.Parallel()

	events := append(cohort("2025-01-05", []string{"a"}), cohort("2025-02-05", []string{"a"})...)
	idx := NewActivityIndex(events, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AggregateTransitions(ctx, idx, mustPeriods("2025-01", "2025-02"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestActivityIndexMissingLookups(t *testing.T) {
	t.Parallel()

	idx := NewActivityIndex(cohort("2025-01-05", []string{"a"}, "gender", "F"), []Dimension{{Name: "gender"}})

	if n := idx.ActiveUsers(mustParsePeriod("2030-01"), nil).Len(); n != 0 {
		t.Errorf("Expected empty cohort for absent period, got %d", n)
	}
	if n := idx.ActiveUsers(mustParsePeriod("2025-01"), &Segment{Dimension: "gender", Value: "M"}).Len(); n != 0 {
		t.Errorf("Expected empty cohort for absent value, got %d", n)
	}
	if n := idx.ActiveUsers(mustParsePeriod("2025-01"), &Segment{Dimension: "channel", Value: "web"}).Len(); n != 0 {
		t.Errorf("Expected empty cohort for unindexed dimension, got %d", n)
	}
}

func TestActivityIndexSkipsInvalidEvents(t *testing.T) {
	t.Parallel()

	events := []models.Event{
		ev("", "2025-01-05"),
		{UserID: "zero-time"},
		ev("ok", "2025-01-05"),
	}
	idx := NewActivityIndex(events, nil)

	if idx.Skipped() != 2 {
		t.Errorf("Skipped() = %d, want 2", idx.Skipped())
	}
	if n := idx.ActiveUsers(mustParsePeriod("2025-01"), nil).Len(); n != 1 {
		t.Errorf("Expected 1 active user, got %d", n)
	}
}
