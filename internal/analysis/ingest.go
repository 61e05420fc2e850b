// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/churnscope/internal/cache"
	"github.com/tomtom215/churnscope/internal/churn"
	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/models"
	"github.com/tomtom215/churnscope/internal/validation"
)

// IngestEvents validates each input, stores the valid ones and invalidates
// cached results. Invalid events are reported, not fatal.
func (s *Service) IngestEvents(ctx context.Context, inputs []models.EventInput) (*models.BulkIngestResult, error) {
	if s.cfg.MaxBulkEvents > 0 && len(inputs) > s.cfg.MaxBulkEvents {
		return nil, fmt.Errorf("%w: %d events, at most %d allowed", ErrTooManyEvents, len(inputs), s.cfg.MaxBulkEvents)
	}

	result := &models.BulkIngestResult{TotalEvents: len(inputs), Errors: []models.IngestError{}}
	events := make([]models.Event, 0, len(inputs))

	for i := range inputs {
		in := &inputs[i]
		if verr := validation.ValidateStruct(in); verr != nil {
			result.Errors = append(result.Errors, models.IngestError{Index: i, UserID: in.UserID, Message: verr.Error()})
			continue
		}
		if strings.TrimSpace(in.UserID) == "" {
			result.Errors = append(result.Errors, models.IngestError{Index: i, Message: "user_id is required"})
			continue
		}
		events = append(events, s.toEvent(in))
	}

	if len(events) > 0 {
		n, err := s.store.InsertEvents(ctx, events)
		if err != nil {
			metrics.RecordIngest(0, len(inputs))
			return nil, fmt.Errorf("insert events: %w", err)
		}
		result.SuccessfulEvents = n
	}
	result.FailedEvents = len(result.Errors)
	metrics.RecordIngest(result.SuccessfulEvents, result.FailedEvents)

	if result.SuccessfulEvents > 0 {
		result.InvalidatedKeys = s.invalidate(ctx)
	}

	logging.Ctx(ctx).Info().
		Int("total", result.TotalEvents).
		Int("stored", result.SuccessfulEvents).
		Int("rejected", result.FailedEvents).
		Int("invalidated", result.InvalidatedKeys).
		Msg("Bulk event upload processed")

	return result, nil
}

// ClearCache removes every cached result and returns the number of removed entries.
// Computations still running keep their results out of the cache.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	s.generation.Add(1)
	n, err := cache.Clear(ctx, s.cache)
	metrics.CacheInvalidations.Add(float64(n))
	if err != nil {
		metrics.CacheErrors.WithLabelValues("clear").Inc()
		return n, fmt.Errorf("clear cache: %w", err)
	}
	return n, nil
}

// CacheStats reports cache backend counters.
func (s *Service) CacheStats() (string, cache.Stats) {
	return s.cache.Backend(), s.cache.Stats()
}

// invalidate clears cached results after new data arrived. Failures are logged.
func (s *Service) invalidate(ctx context.Context) int {
	n, err := s.ClearCache(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Cache invalidation after upload failed")
	}
	return n
}

// toEvent normalizes a validated input. Missing or unrecognized standard
// attributes become Unknown.
func (s *Service) toEvent(in *models.EventInput) models.Event {
	attrs := make(map[string]string, len(in.Attributes)+4)
	for k, v := range in.Attributes {
		if v = strings.TrimSpace(v); v != "" {
			attrs[k] = v
		}
	}

	attrs[models.AttrAction] = in.Action
	attrs[models.AttrGender] = orUnknown(in.Gender)
	attrs[models.AttrChannel] = orUnknown(in.Channel)
	attrs[models.AttrAgeBand] = s.normalizeAgeBand(in.AgeBand)

	return models.Event{
		UserID:     strings.TrimSpace(in.UserID),
		Timestamp:  in.CreatedAt.UTC(),
		Attributes: attrs,
	}
}

func (s *Service) normalizeAgeBand(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return churn.Unknown
	}
	if len(s.cfg.AgeBands) == 0 {
		return v
	}
	for _, band := range s.cfg.AgeBands {
		if v == band {
			return v
		}
	}
	return churn.Unknown
}

func orUnknown(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return churn.Unknown
	}
	return v
}
