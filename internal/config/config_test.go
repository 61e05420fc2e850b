// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Cache.AnalysisTTL != time.Hour || cfg.Cache.TrendsTTL != 2*time.Hour {
		t.Errorf("Cache TTLs = %v/%v", cfg.Cache.AnalysisTTL, cfg.Cache.TrendsTTL)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be false by default")
	}
	if cfg.NATS.Topic != "analysis.completed" {
		t.Errorf("NATS.Topic = %q", cfg.NATS.Topic)
	}
	if cfg.Insights.Provider != "rules" {
		t.Errorf("Insights.Provider = %q, want rules", cfg.Insights.Provider)
	}
	if len(cfg.Analysis.InactivityDays) == 0 || cfg.Analysis.InactivityDays[0] != 90 {
		t.Errorf("Analysis.InactivityDays = %v, want 90 first", cfg.Analysis.InactivityDays)
	}
	if cfg.Analysis.UncertaintyThreshold != 30 {
		t.Errorf("Analysis.UncertaintyThreshold = %d, want 30", cfg.Analysis.UncertaintyThreshold)
	}
	if cfg.Analysis.MinEventsPerPeriod != 1 {
		t.Errorf("Analysis.MinEventsPerPeriod = %d, want 1", cfg.Analysis.MinEventsPerPeriod)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadWithKoanfEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CACHE_BACKEND", "none")
	t.Setenv("CACHE_ANALYSIS_TTL", "10m")
	t.Setenv("ANALYSIS_INACTIVITY_DAYS", "60, 30")
	t.Setenv("ANALYSIS_DIMENSIONS", "gender,channel")
	t.Setenv("ANALYSIS_MIN_EVENTS_PER_PERIOD", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "none" {
		t.Errorf("Cache.Backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Cache.AnalysisTTL != 10*time.Minute {
		t.Errorf("Cache.AnalysisTTL = %v, want 10m", cfg.Cache.AnalysisTTL)
	}
	if len(cfg.Analysis.InactivityDays) != 2 || cfg.Analysis.InactivityDays[0] != 60 || cfg.Analysis.InactivityDays[1] != 30 {
		t.Errorf("Analysis.InactivityDays = %v, want [60 30]", cfg.Analysis.InactivityDays)
	}
	if strings.Join(cfg.Analysis.Dimensions, ",") != "gender,channel" {
		t.Errorf("Analysis.Dimensions = %v", cfg.Analysis.Dimensions)
	}
	if cfg.Analysis.MinEventsPerPeriod != 3 {
		t.Errorf("Analysis.MinEventsPerPeriod = %d, want 3", cfg.Analysis.MinEventsPerPeriod)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.HasWildcardCORS() {
		t.Error("HasWildcardCORS() should be false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7000
cache:
  backend: badger
  badger_path: /tmp/churnscope-cache
analysis:
  dimensions: [gender, age_band]
  uncertainty_threshold: 50
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	// env still wins over the file
	t.Setenv("HTTP_PORT", "7100")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 7100 {
		t.Errorf("Server.Port = %d, want 7100", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "badger" || cfg.Cache.BadgerPath != "/tmp/churnscope-cache" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Analysis.UncertaintyThreshold != 50 {
		t.Errorf("Analysis.UncertaintyThreshold = %d, want 50", cfg.Analysis.UncertaintyThreshold)
	}
	if len(cfg.Analysis.Dimensions) != 2 {
		t.Errorf("Analysis.Dimensions = %v", cfg.Analysis.Dimensions)
	}
	// untouched sections keep their defaults
	if cfg.NATS.Topic != "analysis.completed" {
		t.Errorf("NATS.Topic = %q", cfg.NATS.Topic)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "CACHE_BACKEND"},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisURL = "http://x" }, "REDIS_URL"},
		{"badger without path", func(c *Config) { c.Cache.Backend = "badger"; c.Cache.BadgerPath = "" }, "CACHE_BADGER_PATH"},
		{"nats without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }, "NATS_URL"},
		{"openai without key", func(c *Config) { c.Insights.Provider = "openai" }, "OPENAI_API_KEY"},
		{"unknown insights provider", func(c *Config) { c.Insights.Provider = "magic" }, "INSIGHTS_PROVIDER"},
		{"non-positive inactivity days", func(c *Config) { c.Analysis.InactivityDays = []int{90, 0} }, "ANALYSIS_INACTIVITY_DAYS"},
		{"negative min events", func(c *Config) { c.Analysis.MinEventsPerPeriod = -1 }, "ANALYSIS_MIN_EVENTS_PER_PERIOD"},
		{"zero uncertainty threshold", func(c *Config) { c.Analysis.UncertaintyThreshold = 0 }, "ANALYSIS_UNCERTAINTY_THRESHOLD"},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRateLimitDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.RateLimitDisabled = true
	cfg.Security.RateLimitReqs = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with disabled rate limiting error = %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":      "server.port",
		"REDIS_URL":      "cache.redis_url",
		"OPENAI_API_KEY": "insights.api_key",
		"log_level":      "logging.level",
		"PATH":           "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
