// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package database

import (
	"context"
	"fmt"
	"time"
)

// Table names
const (
	tableEvents       = "events"
	tableAnalysisRuns = "analysis_runs"
)

// Timestamps are stored as TIMESTAMP in UTC; TIMESTAMPTZ needs the ICU extension.
const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
	event_id    VARCHAR PRIMARY KEY,
	user_id     VARCHAR NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	action      VARCHAR NOT NULL DEFAULT 'Unknown',
	gender      VARCHAR NOT NULL DEFAULT 'Unknown',
	age_band    VARCHAR NOT NULL DEFAULT 'Unknown',
	channel     VARCHAR NOT NULL DEFAULT 'Unknown',
	attributes  VARCHAR,
	ingested_at TIMESTAMP NOT NULL DEFAULT current_timestamp
);
`

const createAnalysisRunsTable = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	analysis_id        VARCHAR PRIMARY KEY,
	start_month        VARCHAR NOT NULL,
	end_month          VARCHAR NOT NULL,
	churn_rate         DOUBLE NOT NULL,
	active_users       INTEGER NOT NULL,
	churned_users      INTEGER NOT NULL,
	reactivated_users  INTEGER NOT NULL,
	long_term_inactive INTEGER NOT NULL,
	execution_time_ms  BIGINT NOT NULL,
	config             VARCHAR,
	created_at         TIMESTAMP NOT NULL
);
`

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for name, ddl := range map[string]string{
		tableEvents:       createEventsTable,
		tableAnalysisRuns: createAnalysisRunsTable,
	} {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
	}
	return nil
}
