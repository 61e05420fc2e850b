// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/churnscope/internal/cache"
	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/metrics"
)

// DefaultMaintenanceInterval is used when NewCacheMaintenanceService gets a non-positive interval.
const DefaultMaintenanceInterval = 10 * time.Minute

// CacheMaintenanceService runs Maintain on a cache backend at a fixed interval.
// Only backends with on-disk state (Badger value log GC) need it.
//
// A failed pass is logged and counted; the service keeps running.
type CacheMaintenanceService struct {
	target   cache.Maintainer
	interval time.Duration
	passes   atomic.Int64
	name     string
}

// NewCacheMaintenanceService creates a maintenance loop over target.
func NewCacheMaintenanceService(target cache.Maintainer, interval time.Duration) *CacheMaintenanceService {
	if interval <= 0 {
		interval = DefaultMaintenanceInterval
	}
	return &CacheMaintenanceService{
		target:   target,
		interval: interval,
		name:     "cache-maintenance",
	}
}

// Serve implements suture.Service.
func (s *CacheMaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger := logging.WithComponent(s.name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			err := s.target.Maintain(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.passes.Add(1)
			metrics.RecordCacheMaintenance(err)
			if err != nil {
				logger.Warn().Err(err).Msg("Cache maintenance failed")
				continue
			}
			logger.Debug().Dur("duration", time.Since(start)).Msg("Cache maintenance completed")
		}
	}
}

// Passes returns the number of completed maintenance passes.
func (s *CacheMaintenanceService) Passes() int64 {
	return s.passes.Load()
}

// String implements fmt.Stringer for suture's logs.
func (s *CacheMaintenanceService) String() string {
	return s.name
}
