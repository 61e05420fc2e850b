// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/churnscope/internal/models"
)

// Rule thresholds, in percentage points or percent.
const (
	TrendChangeThreshold   = 2.0
	SegmentSpreadThreshold = 5.0
	InactiveRatioThreshold = 15.0
	HighSegmentChurn       = 20.0
)

// ReengagementAction is always recommended.
const ReengagementAction = "Run a re-engagement campaign with personalized content for long-term inactive users"

// RuleGenerator derives insights from fixed thresholds. It never fails.
type RuleGenerator struct {
	now func() time.Time
}

// NewRuleGenerator creates a RuleGenerator.
func NewRuleGenerator() *RuleGenerator {
	return &RuleGenerator{now: time.Now}
}

// Name returns "rules".
func (g *RuleGenerator) Name() string { return ProviderRules }

// Generate applies the trend, segment spread and inactivity rules.
func (g *RuleGenerator) Generate(_ context.Context, a *models.ChurnAnalysis) (*models.Insights, error) {
	var found []string

	if s, ok := trendInsight(a.Trends); ok {
		found = append(found, s)
	}
	for _, dim := range sortedDimensions(a.Segments) {
		if s, ok := spreadInsight(dim, a.Segments[dim]); ok {
			found = append(found, s)
		}
	}
	if s, ok := inactivityInsight(a.Metrics, a.Config.InactivityDays); ok {
		found = append(found, s)
	}
	if len(found) == 0 {
		found = append(found, fmt.Sprintf(
			"Churn was %.1f%% from %s to %s with no trend or segment difference above the alert thresholds.",
			a.Metrics.ChurnRate, a.Config.StartMonth, a.Config.EndMonth))
	}

	return &models.Insights{
		Insights:    clean(found, 1, 500),
		Actions:     clean(ruleActions(a.Segments), 1, 500),
		GeneratedBy: ProviderRules,
		GeneratedAt: g.now().UTC(),
	}, nil
}

// trendInsight compares the last two trend points.
func trendInsight(trends []models.TrendPoint) (string, bool) {
	if len(trends) < 2 {
		return "", false
	}
	cur, prev := trends[len(trends)-1], trends[len(trends)-2]
	change := cur.ChurnRate - prev.ChurnRate
	switch {
	case change > TrendChangeThreshold:
		return fmt.Sprintf("Churn in %s rose %.1f percentage points over the previous month and needs attention.", cur.Month, change), true
	case change < -TrendChangeThreshold:
		return fmt.Sprintf("Churn in %s improved by %.1f percentage points over the previous month.", cur.Month, -change), true
	}
	return "", false
}

// spreadInsight reports the gap between the highest and lowest churn value of a dimension.
func spreadInsight(dim string, results []models.SegmentResult) (string, bool) {
	if len(results) < 2 {
		return "", false
	}
	high, low := results[0], results[0]
	for _, r := range results[1:] {
		if r.ChurnRate > high.ChurnRate {
			high = r
		}
		if r.ChurnRate < low.ChurnRate {
			low = r
		}
	}
	diff := high.ChurnRate - low.ChurnRate
	if diff <= SegmentSpreadThreshold {
		return "", false
	}
	note := ""
	if high.IsUncertain {
		note = " (Uncertain: small baseline)"
	}
	return fmt.Sprintf("%s %s churns %.1f percentage points more than %s%s.",
		dim, high.SegmentValue, diff, low.SegmentValue, note), true
}

// inactivityInsight flags a high share of long-term inactive users.
func inactivityInsight(m models.ChurnMetrics, thresholds []int) (string, bool) {
	total := m.ActiveUsers + m.LongTermInactive
	if m.LongTermInactive == 0 || total == 0 {
		return "", false
	}
	ratio := float64(m.LongTermInactive) / float64(total) * 100
	if ratio <= InactiveRatioThreshold {
		return "", false
	}
	days := 90
	if len(thresholds) > 0 {
		days = thresholds[0]
	}
	return fmt.Sprintf("%.1f%% of users have been inactive for %d+ days.", ratio, days), true
}

// ruleActions suggests dimension-specific actions for high-churn values, then re-engagement.
func ruleActions(segments map[string][]models.SegmentResult) []string {
	var actions []string
	for _, dim := range sortedDimensions(segments) {
		results := segments[dim]
		if len(results) == 0 {
			continue
		}
		high := results[0]
		for _, r := range results[1:] {
			if r.ChurnRate > high.ChurnRate {
				high = r
			}
		}
		if high.ChurnRate <= HighSegmentChurn {
			continue
		}
		if a, ok := segmentAction(dim, high.SegmentValue); ok {
			actions = append(actions, a)
		}
	}

	// keep room for the re-engagement action
	if len(actions) > MaxItems-1 {
		actions = actions[:MaxItems-1]
	}
	return append(actions, ReengagementAction)
}

func segmentAction(dim, value string) (string, bool) {
	switch {
	case dim == "gender" && value == "F":
		return "Strengthen tailored content and community programs for female users", true
	case dim == "age_band" && (value == "50s" || value == "60s" || value == "70s"):
		return "Improve usability and publish onboarding guides for users aged 50 and over", true
	case dim == "channel" && value == "app":
		return "Improve the mobile app experience and tune push notifications", true
	case dim == "channel" && value == "web":
		return "Review the web experience for friction in posting and commenting", true
	}
	return "", false
}

func sortedDimensions(segments map[string][]models.SegmentResult) []string {
	dims := make([]string, 0, len(segments))
	for d := range segments {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}
