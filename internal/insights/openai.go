// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package insights

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/churnscope/internal/config"
	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/models"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o-mini"
	defaultTimeout  = 20 * time.Second

	// item length bounds for model output
	minItemLen = 10
	maxItemLen = 500

	maxResponseBytes = 1 << 20
)

const systemPrompt = `You are a retention analyst for a community service where users post and comment.
Given monthly churn metrics, respond with a JSON object of the form
{"insights": ["..."], "actions": ["..."]} containing at most 3 concise, data-grounded insights
and at most 3 concrete actions. Mention when a segment is marked uncertain. Do not invent numbers.`

// OpenAIClient generates insights with an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	breaker     *gobreaker.CircuitBreaker[*models.Insights]
	now         func() time.Time
}

// NewOpenAIClient creates a client. An empty API key returns ErrNotConfigured.
func NewOpenAIClient(cfg config.InsightsConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAIClient{
		httpClient:  &http.Client{Timeout: timeout},
		endpoint:    endpoint,
		apiKey:      cfg.APIKey,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		breaker:     newBreaker("insights-openai", cfg.BreakerFailures, cfg.BreakerTimeout),
		now:         time.Now,
	}, nil
}

// Name returns "openai".
func (c *OpenAIClient) Name() string { return ProviderOpenAI }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type insightPayload struct {
	Insights []string `json:"insights"`
	Actions  []string `json:"actions"`
}

// Generate sends a summary of the analysis to the model through the circuit breaker.
func (c *OpenAIClient) Generate(ctx context.Context, a *models.ChurnAnalysis) (*models.Insights, error) {
	out, err := c.breaker.Execute(func() (*models.Insights, error) {
		return c.complete(ctx, a)
	})
	recordBreakerResult(c.breaker.Name(), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OpenAIClient) complete(ctx context.Context, a *models.ChurnAnalysis) (*models.Insights, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(a)},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("insights API returned status %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("insights API returned no choices")
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}

	insights := clean(payload.Insights, minItemLen, maxItemLen)
	if len(insights) == 0 {
		return nil, fmt.Errorf("model returned no usable insights")
	}

	logging.Ctx(ctx).Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Int("insights", len(insights)).
		Msg("Generated insights")

	return &models.Insights{
		Insights:    insights,
		Actions:     clean(payload.Actions, minItemLen, maxItemLen),
		GeneratedBy: ProviderOpenAI,
		Model:       c.model,
		GeneratedAt: c.now().UTC(),
	}, nil
}

// BuildPrompt renders the analysis as a compact text summary for the model.
func BuildPrompt(a *models.ChurnAnalysis) string {
	var b strings.Builder
	m := a.Metrics

	fmt.Fprintf(&b, "Period: %s to %s\n", a.Config.StartMonth, a.Config.EndMonth)
	fmt.Fprintf(&b, "Churn rate: %.1f%%, retention rate: %.1f%%\n", m.ChurnRate, m.RetentionRate)
	fmt.Fprintf(&b, "Active users: %d (previous month %d), churned: %d, reactivated: %d, long-term inactive: %d\n",
		m.ActiveUsers, m.PreviousActiveUsers, m.ChurnedUsers, m.ReactivatedUsers, m.LongTermInactive)

	if len(a.Trends) > 0 {
		b.WriteString("\nMonthly trend:\n")
		for _, t := range a.Trends {
			fmt.Fprintf(&b, "- %s: churn %.1f%%, active %d\n", t.Month, t.ChurnRate, t.ActiveUsers)
		}
	}

	for _, dim := range sortedDimensions(a.Segments) {
		results := append([]models.SegmentResult(nil), a.Segments[dim]...)
		sort.SliceStable(results, func(i, j int) bool { return results[i].ChurnRate > results[j].ChurnRate })
		fmt.Fprintf(&b, "\nChurn by %s:\n", dim)
		for _, r := range results {
			note := ""
			if r.IsUncertain {
				note = " (uncertain)"
			}
			fmt.Fprintf(&b, "- %s: %.1f%% of %d%s\n", r.SegmentValue, r.ChurnRate, r.PreviousActive, note)
		}
	}

	if len(a.Inactivity) > 0 {
		b.WriteString("\nInactive users:\n")
		for _, bucket := range a.Inactivity {
			fmt.Fprintf(&b, "- %d+ days: %d\n", bucket.ThresholdDays, bucket.InactiveUsers)
		}
	}
	return b.String()
}
