// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

// Package database is the DuckDB-backed event store for Churnscope.
//
// # Overview
//
// The store holds two tables:
//
//   - events: one row per user activity event. The standard attributes
//     (action, gender, age_band, channel) have their own columns; any other
//     attributes are kept as a JSON object in the attributes column.
//   - analysis_runs: a summary row per completed analysis, written by the
//     analysis.completed consumer and read by the history endpoint.
//
// # Files
//
//   - database.go: lifecycle (New, Ping, Close)
//   - database_schema.go: table DDL
//   - migrations.go: versioned, append-only migrations tracked in schema_migrations
//   - database_connection.go: pool configuration and conflict detection
//   - database_utils.go: ensureContext and Checkpoint
//   - events.go: bulk insert, snapshot loads, last-activity aggregation, summary
//   - runs.go: analysis run persistence
//
// # Timestamps
//
// Timestamps are stored as TIMESTAMP values in UTC and returned in UTC, so
// month bucketing downstream never depends on the server time zone.
//
// # Context and Timeouts
//
// Every method takes a context. When the caller's context has no deadline,
// DatabaseConfig.QueryTimeout (default 30s) is applied.
//
// # Testing
//
// Tests open ":memory:" databases. An in-memory DuckDB database is private to
// its connection, so the pool is pinned to a single connection for that path.
package database
