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
	"github.com/FirstBright/goodmap/internal/models"
)

// duplicateLocationMessage matches the client-facing wording for rejected
// duplicate placements.
const duplicateLocationMessage = "이미 해당 위치에 마커가 있습니다."

// ListMarkers handles GET /api/v1/markers.
// Optional query parameters:
//   - name: case-insensitive substring match on marker names
//   - tags: comma-separated tag filter; markers must carry every listed tag
func (h *Handlers) ListMarkers(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	var tags []models.Tag
	for _, raw := range parseCommaSeparated(r.URL.Query().Get("tags")) {
		if !models.ValidTag(raw) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown tag: "+sanitizeLogValue(raw), nil)
			return
		}
		tags = append(tags, models.Tag(raw))
	}

	markers, err := h.db.ListMarkers(r.Context(), tags, r.URL.Query().Get("name"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list markers", err)
		return
	}

	respondSuccess(w, http.StatusOK, markers, started, false)
}

// CreateMarker handles POST /api/v1/markers.
// Duplicate coordinates are rejected with 409 by the storage layer's unique
// index, so two concurrent submissions can never both succeed.
func (h *Handlers) CreateMarker(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	var req CreateMarkerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	tags := make([]models.Tag, 0, len(req.Tags))
	for _, t := range req.Tags {
		tags = append(tags, models.Tag(t))
	}

	marker, err := h.db.CreateMarker(r.Context(), req.Name, req.Latitude, req.Longitude, tags)
	if errors.Is(err, database.ErrDuplicateLocation) {
		respondError(w, http.StatusConflict, "CONFLICT", duplicateLocationMessage, nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create marker", err)
		return
	}

	respondSuccess(w, http.StatusCreated, marker, started, false)
}

// GetMarker handles GET /api/v1/markers/{id}
func (h *Handlers) GetMarker(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	id := chi.URLParam(r, "id")
	marker, err := h.db.GetMarker(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Marker not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load marker", err)
		return
	}

	respondSuccess(w, http.StatusOK, marker, started, false)
}

// UpdateMarkerTags handles PATCH /api/v1/markers/{id}, replacing the
// marker's tag set.
func (h *Handlers) UpdateMarkerTags(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}

	var req UpdateMarkerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	tags := make([]models.Tag, 0, len(req.Tags))
	for _, t := range req.Tags {
		tags = append(tags, models.Tag(t))
	}

	id := chi.URLParam(r, "id")
	marker, err := h.db.UpdateMarkerTags(r.Context(), id, tags)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Marker not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update marker", err)
		return
	}

	respondSuccess(w, http.StatusOK, marker, started, false)
}

// DeleteMarker handles DELETE /api/v1/markers/{id}.
// Anyone may delete an empty marker; one that still has posts is refused
// with 409 so discussions cannot be wiped anonymously.
func (h *Handlers) DeleteMarker(w http.ResponseWriter, r *http.Request) {
	if !h.requireDB(w) {
		return
	}

	id := chi.URLParam(r, "id")
	err := h.db.DeleteMarker(r.Context(), id)
	if errors.Is(err, database.ErrMarkerHasPosts) {
		respondError(w, http.StatusConflict, "CONFLICT", "Marker still has posts", nil)
		return
	}
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

	w.WriteHeader(http.StatusNoContent)
}
