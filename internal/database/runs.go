// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// SaveAnalysisRun records a completed analysis. It reports false when a run
// with the same id already exists, so redelivered messages are harmless.
func (db *DB) SaveAnalysisRun(ctx context.Context, run *models.AnalysisRun) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	start := time.Now()
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			analysis_id, start_month, end_month, churn_rate, active_users, churned_users,
			reactivated_users, long_term_inactive, execution_time_ms, config, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		run.AnalysisID, run.StartMonth, run.EndMonth, run.ChurnRate, run.ActiveUsers, run.ChurnedUsers,
		run.ReactivatedUsers, run.LongTermInactive, run.ExecutionTimeMs, nullableString(run.ConfigJSON),
		createdAt.UTC(),
	)
	metrics.RecordDBQuery("insert", tableAnalysisRuns, time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("failed to save analysis run %s: %w", run.AnalysisID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListAnalysisRuns returns the most recent runs, newest first.
func (db *DB) ListAnalysisRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT analysis_id, start_month, end_month, churn_rate, active_users, churned_users,
			reactivated_users, long_term_inactive, execution_time_ms, config, created_at
		FROM analysis_runs
		ORDER BY created_at DESC, analysis_id
		LIMIT ?`, limit)
	if err != nil {
		metrics.RecordDBQuery("select", tableAnalysisRuns, time.Since(start), err)
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.AnalysisRun, 0, limit)
	for rows.Next() {
		var (
			r   models.AnalysisRun
			cfg sql.NullString
		)
		if err := rows.Scan(&r.AnalysisID, &r.StartMonth, &r.EndMonth, &r.ChurnRate, &r.ActiveUsers,
			&r.ChurnedUsers, &r.ReactivatedUsers, &r.LongTermInactive, &r.ExecutionTimeMs, &cfg, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		r.ConfigJSON = cfg.String
		r.CreatedAt = r.CreatedAt.UTC()
		runs = append(runs, r)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", tableAnalysisRuns, time.Since(start), err)
	return runs, err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
