// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"fmt"
	"time"

	"github.com/tomtom215/churnscope/internal/models"
)

// ev builds an event at the given UTC date (YYYY-MM-DD) with attribute pairs.
func ev(user, date string, attrs ...string) models.Event {
	ts, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	e := models.Event{UserID: user, Timestamp: ts.Add(12 * time.Hour)}
	if len(attrs) > 0 {
		e.Attributes = make(map[string]string, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			e.Attributes[attrs[i]] = attrs[i+1]
		}
	}
	return e
}

// cohort creates one event per user on the given date.
func cohort(date string, users []string, attrs ...string) []models.Event {
	out := make([]models.Event, 0, len(users))
	for _, u := range users {
		out = append(out, ev(u, date, attrs...))
	}
	return out
}

// userRange returns prefix0..prefix(n-1).
func userRange(prefix string, from, to int) []string {
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

// mustParsePeriod is ParsePeriod for literals.
func mustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

func mustPeriods(start, end string) []Period {
	periods, err := PeriodsBetween(mustParsePeriod(start), mustParsePeriod(end))
	if err != nil {
		panic(err)
	}
	return periods
}
