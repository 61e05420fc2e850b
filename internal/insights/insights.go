// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/churnscope/internal/config"
	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/models"
)

// MaxItems caps both insights and actions.
const MaxItems = 3

// Provider names reported in Insights.GeneratedBy.
const (
	ProviderRules  = "rules"
	ProviderOpenAI = "openai"
)

// ErrNotConfigured is returned by a generator that lacks credentials.
var ErrNotConfigured = errors.New("insight provider not configured")

// Generator produces narrative insights for a computed analysis.
// The analysis must not be modified.
type Generator interface {
	Generate(ctx context.Context, analysis *models.ChurnAnalysis) (*models.Insights, error)
	Name() string
}

// New builds the generator selected by cfg.Provider. A remote provider is
// always wrapped so failures fall back to rule-based insights.
func New(cfg config.InsightsConfig) (Generator, error) {
	rules := NewRuleGenerator()

	switch cfg.Provider {
	case "", ProviderRules:
		return rules, nil
	case ProviderOpenAI:
		client, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewFallbackGenerator(client, rules), nil
	default:
		return nil, fmt.Errorf("unknown insights provider %q", cfg.Provider)
	}
}

// FallbackGenerator tries a primary generator and falls back to a secondary one.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
}

// NewFallbackGenerator wraps primary with fallback.
func NewFallbackGenerator(primary, fallback Generator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback}
}

// Name returns the primary generator's name.
func (f *FallbackGenerator) Name() string { return f.primary.Name() }

// Generate returns the primary result, or the fallback result marked Fallback on failure.
func (f *FallbackGenerator) Generate(ctx context.Context, analysis *models.ChurnAnalysis) (*models.Insights, error) {
	out, err := f.primary.Generate(ctx, analysis)
	if err == nil {
		metrics.InsightsGenerated.WithLabelValues(f.primary.Name(), "success").Inc()
		return out, nil
	}
	if ctx.Err() != nil {
		metrics.InsightsGenerated.WithLabelValues(f.primary.Name(), "error").Inc()
		return nil, ctx.Err()
	}

	logging.Ctx(ctx).Warn().Err(err).
		Str("provider", f.primary.Name()).
		Str("fallback", f.fallback.Name()).
		Msg("Insight generation failed, using fallback")
	metrics.InsightsGenerated.WithLabelValues(f.primary.Name(), "fallback").Inc()

	out, fbErr := f.fallback.Generate(ctx, analysis)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback insights: %w (primary: %v)", fbErr, err)
	}
	out.Fallback = true
	return out, nil
}

// clean trims items, drops empty or out-of-bounds ones and caps the list at MaxItems.
func clean(items []string, minLen, maxLen int) []string {
	out := make([]string, 0, MaxItems)
	for _, s := range items {
		s = strings.TrimSpace(s)
		if len(s) < minLen || len(s) > maxLen {
			continue
		}
		out = append(out, s)
		if len(out) == MaxItems {
			break
		}
	}
	return out
}
