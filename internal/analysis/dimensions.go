// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package analysis

import (
	"github.com/tomtom215/churnscope/internal/churn"
	"github.com/tomtom215/churnscope/internal/models"
)

// Dimension names that are not plain event attributes.
const (
	// DimensionCombined is the gender/age_band/channel cross segment
	DimensionCombined = "combined"

	// DimensionWeekdayPattern segments users by weekday versus weekend activity
	DimensionWeekdayPattern = "weekday_pattern"

	// DimensionTimePattern segments users by the hour band they are most active in
	DimensionTimePattern = "time_pattern"
)

// combinedComponents are joined with "/" to form a combined segment value.
var combinedComponents = []string{models.AttrGender, models.AttrAgeBand, models.AttrChannel}

// dimension builds the engine dimension for a configured name. Age bands keep
// their natural order; everything else is ranked by churn rate.
func (s *Service) dimension(name string) churn.Dimension {
	switch name {
	case models.AttrAgeBand:
		if len(s.cfg.AgeBands) > 0 {
			return churn.Dimension{Name: name, Values: s.cfg.AgeBands, Ordered: true}
		}
		return churn.Dimension{Name: name}
	case DimensionCombined:
		return churn.Dimension{Name: name, Components: combinedComponents}
	case DimensionWeekdayPattern:
		return churn.Dimension{Name: name, Pattern: &churn.WeekdayPattern}
	case DimensionTimePattern:
		return churn.Dimension{Name: name, Pattern: &churn.TimeOfDayPattern}
	default:
		return churn.Dimension{Name: name}
	}
}

// dimensionNames resolves a segment selection. Nil selects the configured defaults.
func (s *Service) dimensionNames(sel *models.SegmentSelection) []string {
	if sel == nil {
		return append([]string(nil), s.cfg.Dimensions...)
	}

	var names []string
	if sel.Gender {
		names = append(names, models.AttrGender)
	}
	if sel.AgeBand {
		names = append(names, models.AttrAgeBand)
	}
	if sel.Channel {
		names = append(names, models.AttrChannel)
	}
	if sel.Combined {
		names = append(names, DimensionCombined)
	}
	if sel.WeekdayPattern {
		names = append(names, DimensionWeekdayPattern)
	}
	if sel.TimePattern {
		names = append(names, DimensionTimePattern)
	}
	if sel.ActionType {
		names = append(names, models.AttrAction)
	}
	return names
}

func (s *Service) dimensions(names []string) []churn.Dimension {
	dims := make([]churn.Dimension, 0, len(names))
	for _, n := range names {
		dims = append(dims, s.dimension(n))
	}
	return dims
}
