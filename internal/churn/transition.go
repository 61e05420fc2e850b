// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"context"
	"math"
)

// Transition is the classification of one consecutive period pair.
type Transition struct {
	From           Period
	To             Period
	PreviousActive int
	CurrentActive  int
	Retained       int
	Churned        int
	NewlyActive    int
	ChurnRate      float64
	RetentionRate  float64
}

// TransitionTotals accumulates transitions over a period range. Only transitions
// with a non-empty previous cohort contribute to the totals; Transitions lists all of them.
type TransitionTotals struct {
	PreviousActiveTotal int
	ChurnedTotal        int
	RetainedTotal       int
	CurrentActive       int
	ChurnRate           float64
	RetentionRate       float64
	Transitions         []Transition
}

// Rate returns 100 * numerator / denominator rounded to one decimal place, half
// away from zero. A zero denominator yields 0.
func Rate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	// scale before dividing: one rounding step, so 6.25 becomes 6.3
	return math.Round(float64(numerator)*1000/float64(denominator)) / 10
}

// AggregateTransitions classifies every consecutive pair of periods, optionally
// restricted to a segment, and sums churned and retained users over the range.
func AggregateTransitions(ctx context.Context, idx *ActivityIndex, periods []Period, filter *Segment) (TransitionTotals, error) {
	var totals TransitionTotals
	if len(periods) == 0 {
		return totals, nil
	}

	totals.CurrentActive = idx.ActiveUsers(periods[len(periods)-1], filter).Len()
	if len(periods) < 2 {
		return totals, nil
	}

	totals.Transitions = make([]Transition, 0, len(periods)-1)
	for i := 1; i < len(periods); i++ {
		if err := ctx.Err(); err != nil {
			return TransitionTotals{}, err
		}

		prev := idx.ActiveUsers(periods[i-1], filter)
		curr := idx.ActiveUsers(periods[i], filter)

		// derived segment members are retained when active at all
		stayed := curr
		if filter != nil && idx.IsDerived(filter.Dimension) {
			stayed = idx.ActiveUsers(periods[i], nil)
		}

		retained := prev.IntersectionLen(stayed)
		tr := Transition{
			From:           periods[i-1],
			To:             periods[i],
			PreviousActive: prev.Len(),
			CurrentActive:  curr.Len(),
			Retained:       retained,
			Churned:        prev.Len() - retained,
			NewlyActive:    curr.Len() - prev.IntersectionLen(curr),
		}
		tr.ChurnRate = Rate(tr.Churned, tr.PreviousActive)
		tr.RetentionRate = Rate(tr.Retained, tr.PreviousActive)
		totals.Transitions = append(totals.Transitions, tr)

		if tr.PreviousActive == 0 {
			continue
		}
		totals.PreviousActiveTotal += tr.PreviousActive
		totals.ChurnedTotal += tr.Churned
		totals.RetainedTotal += tr.Retained
	}

	totals.ChurnRate = Rate(totals.ChurnedTotal, totals.PreviousActiveTotal)
	totals.RetentionRate = Rate(totals.RetainedTotal, totals.PreviousActiveTotal)
	return totals, nil
}
