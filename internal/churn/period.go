// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is matched by every InvalidRangeError.
var ErrInvalidRange = errors.New("invalid period range")

// InvalidRangeError reports a period range whose end precedes its start.
type InvalidRangeError struct {
	Start Period
	End   Period
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid period range: end %s precedes start %s", e.End, e.Start)
}

// Is makes errors.Is(err, ErrInvalidRange) succeed.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// Period is a calendar month. All truncation happens in UTC so that period keys do
// not drift with the deployment's local time zone.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf truncates t to its calendar month in UTC.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// ParsePeriod parses a "YYYY-MM" period key.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// String returns the "YYYY-MM" key.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant after the period in UTC.
func (p Period) End() time.Time {
	return p.Next().Start()
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// Prev returns the preceding calendar month.
func (p Period) Prev() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	return p.index() < o.index()
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return PeriodOf(t) == p
}

func (p Period) index() int {
	return p.Year*12 + int(p.Month) - 1
}

// PeriodsBetween returns every period from start to end inclusive, one month apart.
func PeriodsBetween(start, end Period) ([]Period, error) {
	if end.Before(start) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	periods := make([]Period, 0, end.index()-start.index()+1)
	for p := start; !end.Before(p); p = p.Next() {
		periods = append(periods, p)
	}
	return periods, nil
}
