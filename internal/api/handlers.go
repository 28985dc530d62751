// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

// Package api provides HTTP handlers and routing for the bulletin board:
// markers, posts, likes, admin console, and health endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/FirstBright/goodmap/internal/auth"
	"github.com/FirstBright/goodmap/internal/cache"
	"github.com/FirstBright/goodmap/internal/config"
	"github.com/FirstBright/goodmap/internal/database"
)

// Handlers holds dependencies for all HTTP handlers
type Handlers struct {
	db          *database.DB
	cache       *cache.PostsCache
	cfg         *config.Config
	jwtManager  *auth.JWTManager
	authMW      *auth.Middleware
	likeLimiter *auth.LikeLimiter
	startTime   time.Time
}

// NewHandlers creates the handler set. cache may be nil when caching is
// disabled; every cache use is guarded.
func NewHandlers(db *database.DB, postsCache *cache.PostsCache, cfg *config.Config, jwtManager *auth.JWTManager, authMW *auth.Middleware, likeLimiter *auth.LikeLimiter) *Handlers {
	return &Handlers{
		db:          db,
		cache:       postsCache,
		cfg:         cfg,
		jwtManager:  jwtManager,
		authMW:      authMW,
		likeLimiter: likeLimiter,
		startTime:   time.Now(),
	}
}

// requireDB guards handlers that need database access
func (h *Handlers) requireDB(w http.ResponseWriter) bool {
	if h.db == nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_ERROR", "Database not available", nil)
		return false
	}
	return true
}

// HealthLive reports liveness: the process is up and serving.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).String(),
	}, started, false)
}

// HealthReady reports readiness: the database answers a ping.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_ERROR", "Database not reachable", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
	}, started, false)
}

// Health reports overall service health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	dbStatus := "ok"
	status := http.StatusOK
	if h.db == nil {
		dbStatus = "unavailable"
		status = http.StatusServiceUnavailable
	} else if err := h.db.Ping(r.Context()); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	cacheStatus := "disabled"
	if h.cache != nil {
		cacheStatus = "ok"
	}

	respondSuccess(w, status, map[string]interface{}{
		"status":  map[string]string{"database": dbStatus, "cache": cacheStatus},
		"uptime":  time.Since(h.startTime).String(),
		"started": h.startTime.UTC().Format(time.RFC3339),
	}, started, false)
}
