// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FirstBright/goodmap/internal/auth"
	"github.com/FirstBright/goodmap/internal/cache"
	"github.com/FirstBright/goodmap/internal/database"
	"github.com/FirstBright/goodmap/internal/logging"
	"github.com/FirstBright/goodmap/internal/metrics"
	"github.com/FirstBright/goodmap/internal/models"
)

// GetPostsByMarker handles GET /api/v1/markers/{id}/posts.
// The post list is served from the cache when a fresh entry exists; misses
// fall through to DuckDB and repopulate the cache.
func (h *Handlers) GetPostsByMarker(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	markerID := chi.URLParam(r, "id")

	if h.cache != nil {
		posts, err := h.cache.GetPosts(markerID)
		if err == nil {
			respondSuccess(w, http.StatusOK, posts, started, true)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			logging.Warn().Err(err).Str("marker_id", sanitizeLogValue(markerID)).Msg("Post cache lookup failed, falling back to database")
		}
	}

	if _, err := h.db.GetMarker(r.Context(), markerID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Marker not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load marker", err)
		return
	}

	posts, err := h.db.GetPostsByMarker(r.Context(), markerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load posts", err)
		return
	}

	if h.cache != nil {
		h.cache.SetPosts(markerID, posts)
	}

	respondSuccess(w, http.StatusOK, posts, started, false)
}

// CreatePost handles POST /api/v1/markers/{id}/posts.
// The deletion password is bcrypt-hashed before it touches storage; the
// plaintext is never persisted or logged.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	markerID := chi.URLParam(r, "id")

	var req CreatePostRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process password", err)
		return
	}

	post, err := h.db.CreatePost(r.Context(), markerID, req.Title, req.Content, hash)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Marker not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create post", err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(markerID)
	}

	respondSuccess(w, http.StatusCreated, post, started, false)
}

// UpdatePost handles PATCH /api/v1/posts/{id}.
// The post password (or an admin token) authorizes the edit; a failed
// check leaves the post unchanged.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	id := chi.URLParam(r, "id")

	var req UpdatePostRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	post, err := h.db.GetPost(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Post not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load post", err)
		return
	}

	if !h.authorizedForPost(r, post, req.Password) {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Wrong password", nil)
		return
	}

	updated, err := h.db.UpdatePost(r.Context(), id, req.Title, req.Content)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Post not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update post", err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(post.MarkerID)
	}

	respondSuccess(w, http.StatusOK, updated, started, false)
}

// LikePost handles POST /api/v1/posts/{id}/likes.
// Likes are anonymous and unbounded per post, but throttled per client IP
// so a single browser cannot inflate a count in a tight loop.
func (h *Handlers) LikePost(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	if h.likeLimiter != nil && !h.likeLimiter.Allow(h.authMW.ClientIP(r)) {
		metrics.LikesRateLimited.Inc()
		respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many likes, slow down", nil)
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.db.IncrementLikes(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Post not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record like", err)
		return
	}
	metrics.LikesTotal.Inc()

	post, err := h.db.GetPost(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load post", err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(post.MarkerID)
	}

	respondSuccess(w, http.StatusOK, post, started, false)
}

// authorizedForPost reports whether the request may mutate the post:
// either the supplied password matches the post's hash, or the request
// carries a valid admin token.
func (h *Handlers) authorizedForPost(r *http.Request, post *models.Post, password string) bool {
	if password != "" && auth.CheckPassword(post.PasswordHash, password) {
		return true
	}
	if claims := h.authMW.OptionalClaims(r); claims != nil && claims.Role == models.RoleAdmin {
		return true
	}
	return false
}

// DeletePost handles DELETE /api/v1/posts/{id}.
// The caller must present the password chosen at creation time or an admin
// token; a failed check leaves the post untouched.
func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	id := chi.URLParam(r, "id")

	// Admin sessions may omit the body entirely.
	var req DeletePostRequest
	if !decodeOptionalJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	post, err := h.db.GetPost(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Post not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load post", err)
		return
	}

	if !h.authorizedForPost(r, post, req.Password) {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Wrong password", nil)
		return
	}

	if err := h.db.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Post not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete post", err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(post.MarkerID)
	}

	respondSuccess(w, http.StatusOK, models.PostRef{PostID: id, MarkerID: post.MarkerID}, started, false)
}
