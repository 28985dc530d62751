// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

// Package cache provides the per-marker post list cache backed by BadgerDB.
//
// Entries are stored under "posts:<markerID>" with a TTL (60s by default) so
// stale lists age out even if an invalidation is missed. Writes that change a
// marker's posts (create, delete, like) invalidate the entry explicitly.
//
// All Badger operations run through a circuit breaker. When the breaker is
// open every lookup reports a miss and every write is dropped, so the API
// keeps serving straight from the database.
//
// Cached values are the JSON-serializable view of posts: password hashes are
// excluded from serialization and therefore never enter the cache.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/FirstBright/goodmap/internal/config"
	"github.com/FirstBright/goodmap/internal/logging"
	"github.com/FirstBright/goodmap/internal/metrics"
	"github.com/FirstBright/goodmap/internal/models"
)

// postsKeyPrefix namespaces post list entries in BadgerDB
const postsKeyPrefix = "posts:"

// ErrMiss is returned by lookups when the key is absent, expired, or the
// circuit breaker is open.
var ErrMiss = errors.New("cache miss")

// PostsCache caches per-marker post lists in BadgerDB with entry TTLs.
type PostsCache struct {
	db  *badger.DB
	ttl time.Duration
	cb  *gobreaker.CircuitBreaker[[]models.Post]
}

// New opens the Badger store and wraps it with a circuit breaker.
// An empty cfg.Path opens an in-memory store.
func New(cfg *config.CacheConfig) (*PostsCache, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Badger's default logger writes straight to stderr; keep it quiet and
	// surface errors through our own logging instead.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	return &PostsCache{
		db:  db,
		ttl: cfg.PostsTTL,
		cb:  newBreaker("posts-cache"),
	}, nil
}

// newBreaker builds the cache circuit breaker:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func newBreaker(name string) *gobreaker.CircuitBreaker[[]models.Post] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	return gobreaker.NewCircuitBreaker[[]models.Post](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		// A miss is the normal state after any invalidation; only real
		// storage failures count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("Cache circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// GetPosts returns the cached post list for a marker.
// Returns ErrMiss on absence, expiry, or an open breaker - callers fall back
// to the database and repopulate with SetPosts.
func (c *PostsCache) GetPosts(markerID string) ([]models.Post, error) {
	posts, err := c.cb.Execute(func() ([]models.Post, error) {
		var result []models.Post
		err := c.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(postsKey(markerID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrMiss
			}
			if err != nil {
				return fmt.Errorf("get posts entry: %w", err)
			}
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &result)
			})
		})
		return result, err
	})

	if errors.Is(err, ErrMiss) {
		metrics.PostCacheMisses.Inc()
		return nil, ErrMiss
	}
	if err != nil {
		// Breaker rejections and storage failures both degrade to a miss
		metrics.PostCacheMisses.Inc()
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.PostCacheErrors.WithLabelValues("get").Inc()
			logging.Warn().Str("marker_id", markerID).Err(err).Msg("Post cache lookup failed")
		}
		return nil, ErrMiss
	}

	metrics.PostCacheHits.Inc()
	if result := posts; result != nil {
		return result, nil
	}
	return []models.Post{}, nil
}

// SetPosts stores a marker's post list with the configured TTL.
// Failures are logged and otherwise ignored: the cache is best-effort.
// Badger rounds TTLs to whole seconds; a PostsTTL under one second makes
// every entry expire immediately.
func (c *PostsCache) SetPosts(markerID string, posts []models.Post) {
	if posts == nil {
		posts = []models.Post{}
	}

	_, err := c.cb.Execute(func() ([]models.Post, error) {
		data, err := json.Marshal(posts)
		if err != nil {
			return nil, fmt.Errorf("marshal posts: %w", err)
		}
		err = c.db.Update(func(txn *badger.Txn) error {
			e := badger.NewEntry(postsKey(markerID), data).WithTTL(c.ttl)
			return txn.SetEntry(e)
		})
		return nil, err
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.PostCacheErrors.WithLabelValues("set").Inc()
			logging.Warn().Str("marker_id", markerID).Err(err).Msg("Post cache store failed")
		}
	}
}

// Invalidate drops the cached post list for a marker. Called after any write
// that changes the marker's posts. The delete deliberately bypasses the
// circuit breaker: an open breaker must never leave a stale entry behind for
// a later half-open read to serve.
func (c *PostsCache) Invalidate(markerID string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(postsKey(markerID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Already gone
		}
		return err
	})
	if err != nil {
		metrics.PostCacheErrors.WithLabelValues("invalidate").Inc()
		logging.Warn().Str("marker_id", markerID).Err(err).Msg("Post cache invalidation failed")
		return
	}
	metrics.PostCacheInvalidations.Inc()
}

// RunGC runs one round of Badger value log garbage collection.
// Returns badger.ErrNoRewrite when there was nothing to collect, which
// callers treat as success. No-op for in-memory stores.
func (c *PostsCache) RunGC() error {
	if c.db.Opts().InMemory {
		return nil
	}
	return c.db.RunValueLogGC(0.5)
}

// Close closes the underlying Badger store.
func (c *PostsCache) Close() error {
	return c.db.Close()
}

func postsKey(markerID string) []byte {
	return []byte(postsKeyPrefix + markerID)
}

// stateToString converts a gobreaker state to its metric label
func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts a gobreaker state to its metric gauge value
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
