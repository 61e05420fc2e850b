// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/models"
)

const (
	unknownValue      = "Unknown"
	maxInsertAttempts = 3
)

// columnAttributes are stored in their own columns rather than the attributes JSON
var columnAttributes = []string{models.AttrAction, models.AttrGender, models.AttrAgeBand, models.AttrChannel}

// InsertEvents stores events in a single transaction and returns the number inserted.
// Either every event is stored or none is. A transaction conflict is retried.
func (db *DB) InsertEvents(ctx context.Context, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var err error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		err = db.insertEventsTx(ctx, events)
		if err == nil || !isTransactionConflict(err) {
			break
		}
		logging.Warn().Err(err).Int("attempt", attempt).Msg("Event insert conflicted, retrying")
	}
	metrics.RecordDBQuery("insert", tableEvents, time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

func (db *DB) insertEventsTx(ctx context.Context, events []models.Event) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (
		event_id, user_id, created_at, action, gender, age_band, channel, attributes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range events {
		e := &events[i]
		extra, encErr := encodeExtraAttributes(e.Attributes)
		if encErr != nil {
			return fmt.Errorf("event %d: %w", i, encErr)
		}
		if _, err = stmt.ExecContext(ctx,
			uuid.NewString(),
			e.UserID,
			e.Timestamp.UTC(),
			e.Attribute(models.AttrAction, unknownValue),
			e.Attribute(models.AttrGender, unknownValue),
			e.Attribute(models.AttrAgeBand, unknownValue),
			e.Attribute(models.AttrChannel, unknownValue),
			extra,
		); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// encodeExtraAttributes returns the non-column attributes as JSON, or nil when there are none
func encodeExtraAttributes(attrs map[string]string) (interface{}, error) {
	extra := make(map[string]string)
	for k, v := range attrs {
		if !isColumnAttribute(k) {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return string(data), nil
}

func isColumnAttribute(name string) bool {
	for _, c := range columnAttributes {
		if c == name {
			return true
		}
	}
	return false
}

// LoadEvents returns every event with created_at before until, oldest first.
// A zero until loads the whole history. The load fails with ErrSnapshotTooLarge
// when it would exceed MaxEventsPerLoad.
func (db *DB) LoadEvents(ctx context.Context, until time.Time) ([]models.Event, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		where strings.Builder
		args  []interface{}
	)
	if !until.IsZero() {
		where.WriteString(" WHERE created_at < ?")
		args = append(args, until.UTC())
	}

	query := `SELECT user_id, created_at, action, gender, age_band, channel, attributes
		FROM events` + where.String() + ` ORDER BY created_at, user_id`
	limit := db.cfg.MaxEventsPerLoad
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit+1)
	}

	start := time.Now()
	events, err := db.queryEvents(ctx, query, args...)
	metrics.RecordDBQuery("select", tableEvents, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		return nil, fmt.Errorf("%w: more than %d events", ErrSnapshotTooLarge, limit)
	}
	metrics.EventsLoaded.Observe(float64(len(events)))
	return events, nil
}

// LoadLastActivity returns one event per user carrying that user's latest
// timestamp at or before ref. Attributes are not populated.
func (db *DB) LoadLastActivity(ctx context.Context, ref time.Time) ([]models.Event, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, MAX(created_at) AS last_activity
		FROM events
		WHERE created_at <= ?
		GROUP BY user_id
		ORDER BY last_activity, user_id`, ref.UTC())
	if err != nil {
		metrics.RecordDBQuery("last_activity", tableEvents, time.Since(start), err)
		return nil, fmt.Errorf("failed to query last activity: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.UserID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan last activity: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	err = rows.Err()
	metrics.RecordDBQuery("last_activity", tableEvents, time.Since(start), err)
	return events, err
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			e                                models.Event
			action, gender, ageBand, channel string
			extra                            sql.NullString
		)
		if err := rows.Scan(&e.UserID, &e.Timestamp, &action, &gender, &ageBand, &channel, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		e.Attributes = map[string]string{
			models.AttrAction:  action,
			models.AttrGender:  gender,
			models.AttrAgeBand: ageBand,
			models.AttrChannel: channel,
		}
		if extra.Valid && extra.String != "" {
			var more map[string]string
			if err := json.Unmarshal([]byte(extra.String), &more); err != nil {
				return nil, fmt.Errorf("failed to decode attributes for %s: %w", e.UserID, err)
			}
			for k, v := range more {
				e.Attributes[k] = v
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// Summary describes the stored event history.
func (db *DB) Summary(ctx context.Context) (*models.EventStoreSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	summary := &models.EventStoreSummary{
		ByAction:  make(map[string]int64),
		ByChannel: make(map[string]int64),
	}

	var first, last sql.NullTime
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT user_id), MIN(created_at), MAX(created_at)
		FROM events`).Scan(&summary.TotalEvents, &summary.UniqueUsers, &first, &last)
	if err != nil {
		metrics.RecordDBQuery("summary", tableEvents, time.Since(start), err)
		return nil, fmt.Errorf("failed to summarize events: %w", err)
	}
	if first.Valid {
		t := first.Time.UTC()
		summary.FirstEventAt = &t
	}
	if last.Valid {
		t := last.Time.UTC()
		summary.LastEventAt = &t
	}

	if err := db.countBy(ctx, "action", summary.ByAction); err != nil {
		return nil, err
	}
	if err := db.countBy(ctx, "channel", summary.ByChannel); err != nil {
		return nil, err
	}
	metrics.RecordDBQuery("summary", tableEvents, time.Since(start), nil)
	return summary, nil
}

// countBy fills out with event counts grouped by a fixed column name
func (db *DB) countBy(ctx context.Context, column string, out map[string]int64) error {
	if !isColumnAttribute(column) {
		return fmt.Errorf("cannot group by %q", column)
	}
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM events GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("failed to count events by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			value string
			n     int64
		)
		if err := rows.Scan(&value, &n); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		out[value] = n
	}
	return rows.Err()
}
