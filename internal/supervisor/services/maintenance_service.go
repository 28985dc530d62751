// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package services

import (
	"context"
	"time"

	"github.com/FirstBright/goodmap/internal/logging"
)

// GarbageCollector matches the cache's value-log GC entry point.
type GarbageCollector interface {
	RunGC() error
}

// CacheMaintenanceService periodically runs badger value-log garbage
// collection on the post-list cache. With TTL'd entries the value log
// accumulates dead versions; without GC a file-backed cache grows without
// bound.
type CacheMaintenanceService struct {
	gc       GarbageCollector
	interval time.Duration
}

// NewCacheMaintenanceService creates the maintenance loop. A non-positive
// interval falls back to five minutes.
func NewCacheMaintenanceService(gc GarbageCollector, interval time.Duration) *CacheMaintenanceService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheMaintenanceService{
		gc:       gc,
		interval: interval,
	}
}

// Serve implements suture.Service. GC errors are logged, not returned:
// badger reports ErrNoRewrite when there was nothing to collect and a
// failed cycle is retried on the next tick anyway.
func (s *CacheMaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.gc.RunGC(); err != nil {
				logging.Debug().Err(err).Msg("Cache GC cycle finished without rewrite")
			}
		}
	}
}

// String identifies the service in supervisor log messages.
func (s *CacheMaintenanceService) String() string {
	return "cache-maintenance"
}
