// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package config

import (
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config file: optional YAML (config.yaml, or the path in CONFIG_PATH)
//  3. Environment variables: override any setting
//
// Sections:
//   - Server: HTTP listener and timeouts
//   - Database: DuckDB event store
//   - Cache: analysis result cache (memory, redis, badger or none)
//   - NATS: completed-analysis events over Watermill
//   - Insights: narrative insight generation
//   - Analysis: engine defaults applied to requests
//   - Security: CORS and rate limiting
//   - Logging: zerolog output
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	NATS     NATSConfig     `koanf:"nats"`
	Insights InsightsConfig `koanf:"insights"`
	Analysis AnalysisConfig `koanf:"analysis"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	// Path is the DuckDB file, or ":memory:" for an ephemeral store
	Path string `koanf:"path"`

	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker count; 0 uses runtime.NumCPU()
	Threads int `koanf:"threads"`

	// QueryTimeout bounds queries issued without a caller deadline
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// MaxEventsPerLoad caps the snapshot loaded for one analysis; 0 means no cap
	MaxEventsPerLoad int `koanf:"max_events_per_load"`
}

// CacheConfig holds analysis result cache settings
type CacheConfig struct {
	// Backend is memory, redis, badger or none
	Backend string `koanf:"backend"`

	// KeyPrefix namespaces every key (useful on a shared Redis)
	KeyPrefix string `koanf:"key_prefix"`

	AnalysisTTL time.Duration `koanf:"analysis_ttl"`
	MetricsTTL  time.Duration `koanf:"metrics_ttl"`
	SegmentsTTL time.Duration `koanf:"segments_ttl"`
	TrendsTTL   time.Duration `koanf:"trends_ttl"`

	RedisURL   string `koanf:"redis_url"`
	BadgerPath string `koanf:"badger_path"`

	// MaintenanceInterval is the badger value log GC period
	MaintenanceInterval time.Duration `koanf:"maintenance_interval"`
}

// NATSConfig holds Watermill/NATS JetStream settings.
// With Enabled false, completion events travel over an in-process Go channel.
type NATSConfig struct {
	Enabled     bool   `koanf:"enabled"`
	URL         string `koanf:"url"`
	DurableName string `koanf:"durable_name"`
	QueueGroup  string `koanf:"queue_group"`

	// Topic receives one message per completed analysis
	Topic string `koanf:"topic"`

	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// InsightsConfig holds insight generator settings
type InsightsConfig struct {
	// Provider is rules or openai
	Provider string `koanf:"provider"`

	Endpoint    string        `koanf:"endpoint"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`

	// BreakerFailures consecutive failures open the circuit for BreakerTimeout
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// AnalysisConfig holds engine defaults applied when a request leaves them out
type AnalysisConfig struct {
	Dimensions           []string `koanf:"dimensions"`
	AgeBands             []string `koanf:"age_bands"`
	InactivityDays       []int    `koanf:"inactivity_days"`
	UncertaintyThreshold int      `koanf:"uncertainty_threshold"`
	ReactivationGapDays  int      `koanf:"reactivation_gap_days"`

	// MinEventsPerPeriod is the number of events that makes a user active in a month
	MinEventsPerPeriod int `koanf:"min_events_per_period"`

	// MaxRangeMonths rejects requests spanning more periods
	MaxRangeMonths int `koanf:"max_range_months"`

	// MaxBulkEvents caps one bulk upload
	MaxBulkEvents int `koanf:"max_bulk_events"`

	// PersistRuns records a summary of every completed analysis
	PersistRuns bool `koanf:"persist_runs"`
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds zerolog settings
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error. Default: info
	Level string `koanf:"level"`

	// Format is json or console. Default: json
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
