// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/churnscope/internal/models"
)

// DefaultUncertaintyThreshold is the minimum summed baseline below which a segment
// is flagged as uncertain.
const DefaultUncertaintyThreshold = 30

// AnalyzeSegments runs the transition aggregation once per value of dimension.
// Values without any baseline across the range are omitted. Results follow the
// supplied order for ordered dimensions and descending churn rate otherwise.
func AnalyzeSegments(ctx context.Context, idx *ActivityIndex, periods []Period, dimension Dimension, threshold int) ([]models.SegmentResult, error) {
	if threshold <= 0 {
		threshold = DefaultUncertaintyThreshold
	}

	values := segmentValues(idx, dimension)
	results := make([]models.SegmentResult, 0, len(values))

	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		totals, err := AggregateTransitions(ctx, idx, periods, &Segment{Dimension: dimension.Name, Value: v})
		if err != nil {
			return nil, fmt.Errorf("segment %s=%s: %w", dimension.Name, v, err)
		}
		if totals.PreviousActiveTotal == 0 {
			continue
		}

		results = append(results, models.SegmentResult{
			Dimension:      dimension.Name,
			SegmentValue:   v,
			CurrentActive:  totals.CurrentActive,
			PreviousActive: totals.PreviousActiveTotal,
			ChurnedUsers:   totals.ChurnedTotal,
			ChurnRate:      totals.ChurnRate,
			IsUncertain:    totals.PreviousActiveTotal < threshold,
		})
	}

	if !dimension.Ordered {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].ChurnRate > results[j].ChurnRate
		})
	}
	return results, nil
}

// segmentValues resolves the value domain of a dimension, dropping Unknown and
// duplicate entries while keeping the first occurrence's position.
func segmentValues(idx *ActivityIndex, dimension Dimension) []string {
	candidates := dimension.Values
	if len(candidates) == 0 {
		candidates = idx.Values(dimension.Name)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if v == Unknown || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
