// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package churn

import (
	"errors"
	"testing"
	"time"
)

func TestPeriodsBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{"single period", "2025-07", "2025-07", []string{"2025-07"}},
		{"same year", "2025-07", "2025-09", []string{"2025-07", "2025-08", "2025-09"}},
		{"year boundary", "2024-11", "2025-02", []string{"2024-11", "2024-12", "2025-01", "2025-02"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PeriodsBetween(mustParsePeriod(tt.start), mustParsePeriod(tt.end))
			if err != nil {
				t.Fatalf("PeriodsBetween() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("PeriodsBetween() returned %d periods, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.String() != tt.want[i] {
					t.Errorf("period[%d] = %s, want %s", i, p, tt.want[i])
				}
			}
		})
	}
}

func TestPeriodsBetweenInvalidRange(t *testing.T) {
	t.Parallel()

	_, err := PeriodsBetween(mustParsePeriod("2025-08"), mustParsePeriod("2025-07"))
	if err == nil {
		t.Fatal("Expected error for end before start")
	}
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}

	var rangeErr *InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("Expected *InvalidRangeError, got %T", err)
	}
	if rangeErr.Start.String() != "2025-08" || rangeErr.End.String() != "2025-07" {
		t.Errorf("Unexpected range in error: %s..%s", rangeErr.Start, rangeErr.End)
	}
}

func TestPeriodOfUsesUTC(t *testing.T) {
	t.Parallel()

	// 2025-08-01 01:00 in UTC+9 is still July in UTC
	loc := time.FixedZone("UTC+9", 9*60*60)
	ts := time.Date(2025, time.August, 1, 1, 0, 0, 0, loc)

	if got := PeriodOf(ts).String(); got != "2025-07" {
		t.Errorf("PeriodOf() = %s, want 2025-07", got)
	}
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	p, err := ParsePeriod("2025-12")
	if err != nil {
		t.Fatalf("ParsePeriod() error = %v", err)
	}
	if p.Year != 2025 || p.Month != time.December {
		t.Errorf("ParsePeriod() = %+v", p)
	}
	if p.Next().String() != "2026-01" {
		t.Errorf("Next() = %s, want 2026-01", p.Next())
	}
	if p.Prev().String() != "2025-11" {
		t.Errorf("Prev() = %s, want 2025-11", p.Prev())
	}

	for _, bad := range []string{"", "2025", "2025-13", "25-01", "2025/01"} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Errorf("ParsePeriod(%q) expected error", bad)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	t.Parallel()

	p := mustParsePeriod("2024-02")
	if !p.Start().Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start() = %v", p.Start())
	}
	if !p.End().Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End() = %v", p.End())
	}
	if !p.Contains(time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)) {
		t.Error("Expected leap day to be contained")
	}
	if p.Contains(p.End()) {
		t.Error("End() must lie outside the period")
	}
}
