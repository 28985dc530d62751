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

	"github.com/FirstBright/goodmap/internal/database"
	"github.com/FirstBright/goodmap/internal/logging"
	"github.com/FirstBright/goodmap/internal/models"
)

// AdminListPosts handles GET /api/v1/admin/posts.
// Returns every post across all markers, newest first, paginated with
// page/limit query parameters (page is 1-based).
func (h *Handlers) AdminListPosts(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	limit := clampPageSize(
		getIntParam(r, "limit", h.cfg.API.DefaultPageSize),
		h.cfg.API.DefaultPageSize,
		h.cfg.API.MaxPageSize,
	)
	page := getIntParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	result, err := h.db.ListPosts(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list posts", err)
		return
	}

	respondSuccess(w, http.StatusOK, result, started, false)
}

// AdminDeletePost handles DELETE /api/v1/admin/posts/{id}.
// Moderation path: no post password required, only an admin token.
func (h *Handlers) AdminDeletePost(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	id := chi.URLParam(r, "id")

	post, err := h.db.GetPost(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Post not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load post", err)
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

	logging.Info().Str("post_id", sanitizeLogValue(id)).Msg("Post removed by admin")

	respondSuccess(w, http.StatusOK, models.PostRef{PostID: id, MarkerID: post.MarkerID}, started, false)
}

// AdminForceDeleteMarker handles DELETE /api/v1/admin/markers/{id}.
// Removes the marker and every post attached to it in one transaction,
// bypassing the has-posts guard on the public delete endpoint.
func (h *Handlers) AdminForceDeleteMarker(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	id := chi.URLParam(r, "id")

	postIDs, err := h.db.ForceDeleteMarker(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Marker not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete marker", err)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(id)
	}

	logging.Info().
		Str("marker_id", sanitizeLogValue(id)).
		Int("deleted_posts", len(postIDs)).
		Msg("Marker force-deleted by admin")

	w.WriteHeader(http.StatusNoContent)
}
