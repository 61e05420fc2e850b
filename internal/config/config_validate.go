// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/churnscope/internal/logging"
)

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateCache,
		c.validateNATS,
		c.validateInsights,
		c.validateAnalysis,
		c.validateRateLimits,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	if c.Database.MaxEventsPerLoad < 0 {
		return fmt.Errorf("DUCKDB_MAX_EVENTS must not be negative")
	}
	return nil
}

// validCacheBackends lists the supported result cache backends
var validCacheBackends = map[string]bool{
	"memory": true,
	"redis":  true,
	"badger": true,
	"none":   true,
}

func (c *Config) validateCache() error {
	if !validCacheBackends[c.Cache.Backend] {
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, redis, badger, none")
	}

	switch c.Cache.Backend {
	case "redis":
		u, err := url.Parse(c.Cache.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("REDIS_URL must be a redis:// or rediss:// URL when CACHE_BACKEND=redis")
		}
	case "badger":
		if c.Cache.BadgerPath == "" {
			return fmt.Errorf("CACHE_BADGER_PATH is required when CACHE_BACKEND=badger")
		}
	}

	for name, ttl := range map[string]time.Duration{
		"CACHE_ANALYSIS_TTL": c.Cache.AnalysisTTL,
		"CACHE_METRICS_TTL":  c.Cache.MetricsTTL,
		"CACHE_SEGMENTS_TTL": c.Cache.SegmentsTTL,
		"CACHE_TRENDS_TTL":   c.Cache.TrendsTTL,

		"CACHE_MAINTENANCE_INTERVAL": c.Cache.MaintenanceInterval,
	} {
		if ttl < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.NATS.Topic == "" {
		return fmt.Errorf("NATS_TOPIC is required")
	}
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if c.NATS.RouterRetryCount < 0 {
		return fmt.Errorf("NATS_ROUTER_RETRY_COUNT must not be negative")
	}
	return nil
}

func (c *Config) validateInsights() error {
	switch c.Insights.Provider {
	case "rules":
		return nil
	case "openai":
	default:
		return fmt.Errorf("INSIGHTS_PROVIDER must be one of: rules, openai")
	}

	if c.Insights.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when INSIGHTS_PROVIDER=openai")
	}
	if _, err := url.ParseRequestURI(c.Insights.Endpoint); err != nil {
		return fmt.Errorf("OPENAI_API_URL is invalid: %w", err)
	}
	if c.Insights.Timeout <= 0 {
		return fmt.Errorf("INSIGHTS_TIMEOUT must be positive")
	}
	if c.Insights.Temperature < 0 || c.Insights.Temperature > 2 {
		return fmt.Errorf("INSIGHTS_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	for _, d := range c.Analysis.InactivityDays {
		if d <= 0 {
			return fmt.Errorf("ANALYSIS_INACTIVITY_DAYS must contain positive day counts, got %d", d)
		}
	}
	if c.Analysis.UncertaintyThreshold < 1 {
		return fmt.Errorf("ANALYSIS_UNCERTAINTY_THRESHOLD must be at least 1")
	}
	if c.Analysis.ReactivationGapDays < 1 {
		return fmt.Errorf("ANALYSIS_REACTIVATION_GAP_DAYS must be at least 1")
	}
	if c.Analysis.MinEventsPerPeriod < 0 {
		return fmt.Errorf("ANALYSIS_MIN_EVENTS_PER_PERIOD must not be negative")
	}
	if c.Analysis.MaxRangeMonths < 1 {
		return fmt.Errorf("ANALYSIS_MAX_RANGE_MONTHS must be at least 1")
	}
	if c.Analysis.MaxBulkEvents < 1 {
		return fmt.Errorf("ANALYSIS_MAX_BULK_EVENTS must be at least 1")
	}
	return nil
}

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
