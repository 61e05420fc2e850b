// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package insights

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/churnscope/internal/models"
)

func sampleAnalysis() *models.ChurnAnalysis {
	return &models.ChurnAnalysis{
		AnalysisID: "a-1",
		Config: models.AnalysisConfig{
			StartMonth:     "2025-01",
			EndMonth:       "2025-03",
			InactivityDays: []int{90, 30},
		},
		Metrics: models.ChurnMetrics{
			ChurnRate:        25,
			ActiveUsers:      80,
			LongTermInactive: 20,
		},
		Trends: []models.TrendPoint{
			{Month: "2025-02", ChurnRate: 20},
			{Month: "2025-03", ChurnRate: 30},
		},
		Segments: map[string][]models.SegmentResult{
			"gender": {
				{Dimension: "gender", SegmentValue: "F", ChurnRate: 35, IsUncertain: true},
				{Dimension: "gender", SegmentValue: "M", ChurnRate: 15},
			},
			"channel": {
				{Dimension: "channel", SegmentValue: "app", ChurnRate: 22},
				{Dimension: "channel", SegmentValue: "web", ChurnRate: 20},
			},
		},
	}
}

func TestRuleGenerator(t *testing.T) {
	t.Parallel()

	g := NewRuleGenerator()
	fixed := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	out, err := g.Generate(context.Background(), sampleAnalysis())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if out.GeneratedBy != ProviderRules || !out.GeneratedAt.Equal(fixed) || out.Fallback {
		t.Errorf("metadata = %+v", out)
	}
	if len(out.Insights) != 3 {
		t.Fatalf("insights = %v, want 3", out.Insights)
	}
	if !strings.Contains(out.Insights[0], "rose 10.0") {
		t.Errorf("trend insight = %q", out.Insights[0])
	}
	// channel spread is 2pp and stays below the threshold
	if !strings.Contains(out.Insights[1], "gender F") || !strings.Contains(out.Insights[1], "Uncertain") {
		t.Errorf("segment insight = %q", out.Insights[1])
	}
	if !strings.Contains(out.Insights[2], "20.0%") || !strings.Contains(out.Insights[2], "90+") {
		t.Errorf("inactivity insight = %q", out.Insights[2])
	}

	if len(out.Actions) != 3 {
		t.Fatalf("actions = %v, want 3", out.Actions)
	}
	if out.Actions[2] != ReengagementAction {
		t.Errorf("last action = %q, want re-engagement", out.Actions[2])
	}
}

func TestRuleGeneratorQuietData(t *testing.T) {
	t.Parallel()

	a := &models.ChurnAnalysis{
		Config:  models.AnalysisConfig{StartMonth: "2025-01", EndMonth: "2025-02"},
		Metrics: models.ChurnMetrics{ChurnRate: 5, ActiveUsers: 100, LongTermInactive: 1},
		Trends:  []models.TrendPoint{{Month: "2025-02", ChurnRate: 5}},
	}

	out, err := NewRuleGenerator().Generate(context.Background(), a)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(out.Insights) != 1 || !strings.Contains(out.Insights[0], "5.0%") {
		t.Errorf("insights = %v", out.Insights)
	}
	if len(out.Actions) != 1 || out.Actions[0] != ReengagementAction {
		t.Errorf("actions = %v", out.Actions)
	}
}

func TestTrendInsight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		trends []models.TrendPoint
		want   string
	}{
		{"single point", []models.TrendPoint{{ChurnRate: 10}}, ""},
		{"rise", []models.TrendPoint{{ChurnRate: 10}, {Month: "2025-03", ChurnRate: 12.5}}, "rose 2.5"},
		{"drop", []models.TrendPoint{{ChurnRate: 10}, {Month: "2025-03", ChurnRate: 4}}, "improved by 6.0"},
		{"flat", []models.TrendPoint{{ChurnRate: 10}, {ChurnRate: 12}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := trendInsight(tt.trends)
			if tt.want == "" {
				if ok {
					t.Errorf("trendInsight() = %q, want none", got)
				}
				return
			}
			if !ok || !strings.Contains(got, tt.want) {
				t.Errorf("trendInsight() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuleActionsCap(t *testing.T) {
	t.Parallel()

	segments := map[string][]models.SegmentResult{
		"age_band": {{SegmentValue: "60s", ChurnRate: 40}},
		"channel":  {{SegmentValue: "app", ChurnRate: 30}},
		"gender":   {{SegmentValue: "F", ChurnRate: 25}},
	}

	actions := ruleActions(segments)
	if len(actions) != MaxItems {
		t.Fatalf("actions = %v", actions)
	}
	if actions[MaxItems-1] != ReengagementAction {
		t.Errorf("re-engagement action dropped: %v", actions)
	}
	if !strings.Contains(actions[0], "50") {
		t.Errorf("first action = %q, want the age_band action", actions[0])
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	got := clean([]string{"  ", "short", "  a useful finding  ", strings.Repeat("x", 501), "b second finding", "c third finding", "d fourth finding"}, 10, 500)
	want := []string{"a useful finding", "b second finding", "c third finding"}
	if len(got) != len(want) {
		t.Fatalf("clean() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("clean()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
