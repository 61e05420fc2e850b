// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package main is the entry point for the Churnscope server.

Churnscope ingests user activity events, stores them in DuckDB and answers
churn and retention questions over monthly periods: churn rate, segment
breakdowns, monthly trends, inactive users and generated insights.

# Application Architecture

	RootSupervisor ("churnscope")
	├── DataSupervisor ("data-layer")
	│   └── Cache maintenance (CACHE_BACKEND=badger)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Analysis run recorder (ANALYSIS_PERSIST_RUNS=true)
	└── APISupervisor ("api-layer")
	    └── HTTP server (Chi)

Initialization order:

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog with JSON or console output
 3. Database: DuckDB event store with versioned migrations
 4. Cache: memory, Redis or Badger result cache
 5. Insights: rule-based generator, optionally an OpenAI-compatible API
 6. Messaging: Watermill over NATS JetStream or an in-process channel
 7. Supervisor tree: suture v4
 8. HTTP server: Chi router with CORS, rate limiting and Prometheus metrics

# Configuration

Common environment variables:

	HTTP_PORT=8000
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	DUCKDB_PATH=/data/churnscope.duckdb
	CACHE_BACKEND=memory         # memory, redis, badger, none
	REDIS_URL=redis://localhost:6379/0
	NATS_ENABLED=false
	INSIGHTS_PROVIDER=rules      # rules or openai
	OPENAI_API_KEY=<key>
	CORS_ORIGINS=https://dash.example.com

A YAML file is read from CONFIG_PATH or ./config.yaml when present.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
connections for SHUTDOWN_TIMEOUT, the message router stops, then the event
bus, cache and database are closed.
*/
package main
