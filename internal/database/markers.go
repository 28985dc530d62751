// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FirstBright/goodmap/internal/models"
)

// CreateMarker inserts a new marker and returns it with its generated ID.
// Returns ErrDuplicateLocation when a marker already exists at the exact
// coordinates - the unique index makes this atomic, there is no
// check-then-insert race.
func (db *DB) CreateMarker(ctx context.Context, name string, latitude, longitude float64, tags []models.Tag) (*models.Marker, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tags = models.NormalizeTags(tags)
	tagsJSON, err := encodeTags(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	marker := &models.Marker{
		ID:        uuid.New().String(),
		Name:      name,
		Latitude:  latitude,
		Longitude: longitude,
		Tags:      tags,
		PostIDs:   []string{},
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO markers (id, name, latitude, longitude, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := db.conn.ExecContext(ctx, query,
		marker.ID, marker.Name, marker.Latitude, marker.Longitude, tagsJSON, marker.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateLocation
		}
		return nil, fmt.Errorf("failed to insert marker: %w", err)
	}

	return marker, nil
}

// GetMarker returns a single marker by ID, including the IDs of its posts.
// Returns ErrNotFound if no marker exists with the given ID.
func (db *DB) GetMarker(ctx context.Context, id string) (*models.Marker, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	// UUID columns come back as raw bytes unless cast; parameters bound
	// against UUID columns need the inverse cast.
	query := `SELECT CAST(id AS VARCHAR) AS id, name, latitude, longitude, tags, created_at
		FROM markers WHERE id = CAST(? AS UUID)`

	marker, err := scanMarker(db.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	postIDs, err := db.postIDsForMarkers(ctx, []string{marker.ID})
	if err != nil {
		return nil, err
	}
	if ids, ok := postIDs[marker.ID]; ok {
		marker.PostIDs = ids
	}

	return marker, nil
}

// ListMarkers returns markers matching the optional filters, newest first.
// An empty tag list and empty search string return all markers. Tag
// filtering requires every requested tag to be present on the marker;
// the search string matches marker names case-insensitively.
func (db *DB) ListMarkers(ctx context.Context, tags []models.Tag, search string) ([]models.Marker, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT CAST(id AS VARCHAR) AS id, name, latitude, longitude, tags, created_at FROM markers`
	args := []interface{}{}

	if search != "" {
		query += ` WHERE lower(name) LIKE '%' || lower(?) || '%'`
		args = append(args, search)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query markers: %w", err)
	}
	defer closeWithLog(rows, "marker rows")

	markers := make([]models.Marker, 0)
	ids := make([]string, 0)
	for rows.Next() {
		marker, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		if !hasAllTags(marker.Tags, tags) {
			continue
		}
		markers = append(markers, *marker)
		ids = append(ids, marker.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate markers: %w", err)
	}

	postIDs, err := db.postIDsForMarkers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range markers {
		if pids, ok := postIDs[markers[i].ID]; ok {
			markers[i].PostIDs = pids
		}
	}

	return markers, nil
}

// UpdateMarkerTags replaces a marker's tags and returns the updated marker.
// Returns ErrNotFound if the marker does not exist.
func (db *DB) UpdateMarkerTags(ctx context.Context, id string, tags []models.Tag) (*models.Marker, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tags = models.NormalizeTags(tags)
	tagsJSON, err := encodeTags(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE markers SET tags = ? WHERE id = CAST(? AS UUID)`, tagsJSON, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update marker tags: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return db.GetMarker(ctx, id)
}

// DeleteMarker removes a marker that has no posts.
// Returns ErrMarkerHasPosts if posts are still attached, ErrNotFound if the
// marker does not exist. The check and delete run in one transaction.
func (db *DB) DeleteMarker(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	var postCount int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE marker_id = CAST(? AS UUID)`, id).Scan(&postCount); err != nil {
		return fmt.Errorf("failed to count posts: %w", err)
	}
	if postCount > 0 {
		return ErrMarkerHasPosts
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM markers WHERE id = CAST(? AS UUID)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete marker: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ForceDeleteMarker removes a marker and all of its posts in one transaction.
// Used by the admin console. Returns the IDs of the deleted posts so callers
// can invalidate caches, and ErrNotFound if the marker does not exist.
func (db *DB) ForceDeleteMarker(ctx context.Context, id string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	rows, err := tx.QueryContext(ctx,
		`SELECT CAST(id AS VARCHAR) FROM posts WHERE marker_id = CAST(? AS UUID)`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	postIDs := make([]string, 0)
	for rows.Next() {
		var postID string
		if err := rows.Scan(&postID); err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan post id: %w", err)
		}
		postIDs = append(postIDs, postID)
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	closeQuietly(rows)

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE marker_id = CAST(? AS UUID)`, id); err != nil {
		return nil, fmt.Errorf("failed to delete posts: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM markers WHERE id = CAST(? AS UUID)`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete marker: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return postIDs, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMarker scans one marker row. PostIDs are filled in separately.
func scanMarker(row rowScanner) (*models.Marker, error) {
	var marker models.Marker
	var tagsJSON string

	err := row.Scan(&marker.ID, &marker.Name, &marker.Latitude, &marker.Longitude, &tagsJSON, &marker.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan marker: %w", err)
	}

	tags, err := decodeTags(tagsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tags for marker %s: %w", marker.ID, err)
	}
	marker.Tags = tags
	marker.PostIDs = []string{}

	return &marker, nil
}

// postIDsForMarkers returns post IDs grouped by marker for the given markers.
func (db *DB) postIDsForMarkers(ctx context.Context, markerIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(markerIDs))
	if len(markerIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("CAST(? AS UUID),", len(markerIDs)), ",")
	args := make([]interface{}, len(markerIDs))
	for i, id := range markerIDs {
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT CAST(id AS VARCHAR), CAST(marker_id AS VARCHAR)
		FROM posts WHERE marker_id IN (%s) ORDER BY created_at DESC, id`,
		placeholders)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query post ids: %w", err)
	}
	defer closeWithLog(rows, "post id rows")

	for rows.Next() {
		var postID, markerID string
		if err := rows.Scan(&postID, &markerID); err != nil {
			return nil, fmt.Errorf("failed to scan post id: %w", err)
		}
		result[markerID] = append(result[markerID], postID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post ids: %w", err)
	}

	return result, nil
}

// hasAllTags reports whether marker tags contain every wanted tag.
// An empty want list matches everything.
func hasAllTags(have []models.Tag, want []models.Tag) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[models.Tag]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// rollbackQuietly rolls back a transaction, ignoring the error returned when
// the transaction was already committed.
func rollbackQuietly(tx *sql.Tx) {
	_ = tx.Rollback()
}
