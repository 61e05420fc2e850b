// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/churnscope/config.yaml",
	"/etc/churnscope/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:         "/data/churnscope.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			QueryTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Backend:     "memory",
			KeyPrefix:   "churnscope",
			AnalysisTTL: time.Hour,
			MetricsTTL:  30 * time.Minute,
			SegmentsTTL: time.Hour,
			TrendsTTL:   2 * time.Hour,
			RedisURL:    "redis://localhost:6379/0",
			BadgerPath:  "/data/cache",

			MaintenanceInterval: 10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:                    false,
			URL:                        "nats://127.0.0.1:4222",
			DurableName:                "churnscope-runs",
			QueueGroup:                 "churnscope",
			Topic:                      "analysis.completed",
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterPoisonQueueTopic:     "analysis.poison",
			RouterCloseTimeout:         30 * time.Second,
		},
		Insights: InsightsConfig{
			Provider:        "rules",
			Endpoint:        "https://api.openai.com/v1/chat/completions",
			Model:           "gpt-4o-mini",
			Timeout:         20 * time.Second,
			MaxTokens:       800,
			Temperature:     0.3,
			BreakerFailures: 3,
			BreakerTimeout:  60 * time.Second,
		},
		Analysis: AnalysisConfig{
			Dimensions:           []string{"gender", "age_band", "channel"},
			AgeBands:             []string{"10s", "20s", "30s", "40s", "50s", "60s", "70s"},
			InactivityDays:       []int{90, 30, 60},
			UncertaintyThreshold: 30,
			ReactivationGapDays:  30,
			MinEventsPerPeriod:   1,
			MaxRangeMonths:       36,
			MaxBulkEvents:        50000,
			PersistRuns:          true,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers (defaults, optional YAML
// file, environment) and validates the result. Precedence: ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings
var sliceConfigPaths = []string{
	"analysis.dimensions",
	"analysis.age_bands",
	"analysis.inactivity_days",
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Database
	"duckdb_path":          "database.path",
	"duckdb_max_memory":    "database.max_memory",
	"duckdb_threads":       "database.threads",
	"duckdb_query_timeout": "database.query_timeout",
	"duckdb_max_events":    "database.max_events_per_load",

	// Cache
	"cache_backend":      "cache.backend",
	"cache_key_prefix":   "cache.key_prefix",
	"cache_analysis_ttl": "cache.analysis_ttl",
	"cache_metrics_ttl":  "cache.metrics_ttl",
	"cache_segments_ttl": "cache.segments_ttl",
	"cache_trends_ttl":   "cache.trends_ttl",
	"redis_url":          "cache.redis_url",
	"cache_badger_path":  "cache.badger_path",

	"cache_maintenance_interval": "cache.maintenance_interval",

	// NATS
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.url",
	"nats_durable_name":          "nats.durable_name",
	"nats_queue_group":           "nats.queue_group",
	"nats_topic":                 "nats.topic",
	"nats_router_retry_count":    "nats.router_retry_count",
	"nats_router_retry_interval": "nats.router_retry_initial_interval",
	"nats_router_poison_topic":   "nats.router_poison_queue_topic",
	"nats_router_close_timeout":  "nats.router_close_timeout",

	// Insights
	"insights_provider":         "insights.provider",
	"openai_api_url":            "insights.endpoint",
	"openai_api_key":            "insights.api_key",
	"openai_model":              "insights.model",
	"insights_timeout":          "insights.timeout",
	"insights_max_tokens":       "insights.max_tokens",
	"insights_temperature":      "insights.temperature",
	"insights_breaker_failures": "insights.breaker_failures",
	"insights_breaker_timeout":  "insights.breaker_timeout",

	// Analysis
	"analysis_dimensions":            "analysis.dimensions",
	"analysis_age_bands":             "analysis.age_bands",
	"analysis_inactivity_days":       "analysis.inactivity_days",
	"analysis_uncertainty_threshold": "analysis.uncertainty_threshold",
	"analysis_reactivation_gap_days": "analysis.reactivation_gap_days",
	"analysis_min_events_per_period": "analysis.min_events_per_period",
	"analysis_max_range_months":      "analysis.max_range_months",
	"analysis_max_bulk_events":       "analysis.max_bulk_events",
	"analysis_persist_runs":          "analysis.persist_runs",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path, or ""
// to skip it.
//
//   - HTTP_PORT -> server.port
//   - REDIS_URL -> cache.redis_url
//   - OPENAI_API_KEY -> insights.api_key
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
