// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package config provides layered configuration loading for Churnscope.

# Configuration Sources

Values are resolved with Koanf v2 in increasing priority:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, ./config.yaml or /etc/churnscope/config.yaml
 3. Environment variables, through an explicit name mapping

Only mapped environment variables are read. List settings (ANALYSIS_DIMENSIONS,
ANALYSIS_INACTIVITY_DAYS, CORS_ORIGINS) accept comma-separated values.

# Key Environment Variables

	HTTP_PORT=8000
	DUCKDB_PATH=/data/churnscope.duckdb
	CACHE_BACKEND=memory|redis|badger|none
	REDIS_URL=redis://localhost:6379/0
	NATS_ENABLED=false
	INSIGHTS_PROVIDER=rules|openai
	OPENAI_API_KEY=...
	ANALYSIS_INACTIVITY_DAYS=90,30,60
	LOG_LEVEL=info

The first entry of ANALYSIS_INACTIVITY_DAYS is the headline long-term
inactivity threshold; the others are reported as a breakdown.

# Validation

Load returns an error when a value is out of range or a backend is selected
without the settings it needs (for example CACHE_BACKEND=redis with a malformed
REDIS_URL).
*/
package config
