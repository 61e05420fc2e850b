// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import "time"

// Pattern derives a dimension value from a user's own activity within a period
// instead of reading it from an event attribute. Each event increments one of
// Buckets counters kept per user and period; Classify turns the counters into
// the value once indexing is done.
type Pattern struct {
	Buckets  int
	Bucket   func(t time.Time) int
	Classify func(counts []int) string
}

// Weekday pattern values.
const (
	WeekdayHeavy = "weekday_heavy"
	WeekendHeavy = "weekend_heavy"
	WeekMixed    = "mixed"
)

// Time-of-day pattern values.
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
	Night     = "night"
)

const (
	weekdayBucket = iota
	weekendBucket
)

// WeekdayPattern classifies a user by the share of weekday (Monday to Friday,
// UTC) activity: at least 70% weekday is weekday_heavy, otherwise at least 50%
// weekend is weekend_heavy, anything else is mixed.
var WeekdayPattern = Pattern{
	Buckets: 2,
	Bucket: func(t time.Time) int {
		switch t.UTC().Weekday() {
		case time.Saturday, time.Sunday:
			return weekendBucket
		default:
			return weekdayBucket
		}
	},
	Classify: func(counts []int) string {
		total := counts[weekdayBucket] + counts[weekendBucket]
		switch {
		case total == 0:
			return Unknown
		case counts[weekdayBucket]*10 >= total*7:
			return WeekdayHeavy
		case counts[weekendBucket]*2 >= total:
			return WeekendHeavy
		default:
			return WeekMixed
		}
	},
}

// timeOfDayValues is indexed by bucket; ties go to the earliest band in this order.
var timeOfDayValues = []string{Morning, Afternoon, Evening, Night}

// TimeOfDayPattern classifies a user by the UTC hour band holding most of the
// activity: morning 06-11, afternoon 12-17, evening 18-23, night 00-05.
var TimeOfDayPattern = Pattern{
	Buckets: len(timeOfDayValues),
	Bucket: func(t time.Time) int {
		switch h := t.UTC().Hour(); {
		case h < 6:
			return 3
		case h < 12:
			return 0
		case h < 18:
			return 1
		default:
			return 2
		}
	},
	Classify: func(counts []int) string {
		best := -1
		for i, n := range counts {
			if n > 0 && (best < 0 || n > counts[best]) {
				best = i
			}
		}
		if best < 0 {
			return Unknown
		}
		return timeOfDayValues[best]
	},
}
