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
	"time"

	"github.com/google/uuid"

	"github.com/FirstBright/goodmap/internal/models"
)

// postColumns is the shared select list for post rows. The UUID columns
// are cast to VARCHAR so they scan into Go strings as canonical hex.
const postColumns = `CAST(id AS VARCHAR) AS id, CAST(marker_id AS VARCHAR) AS marker_id,
		title, content, password_hash, likes, created_at`

// CreatePost inserts a new post under a marker. The password hash must
// already be bcrypt-hashed by the caller. Returns ErrNotFound when the
// marker does not exist.
func (db *DB) CreatePost(ctx context.Context, markerID, title, content, passwordHash string) (*models.Post, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var exists bool
	if err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM markers WHERE id = CAST(? AS UUID))`, markerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check marker existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	post := &models.Post{
		ID:           uuid.New().String(),
		MarkerID:     markerID,
		Title:        title,
		Content:      content,
		PasswordHash: passwordHash,
		Likes:        0,
		CreatedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO posts (id, marker_id, title, content, password_hash, likes, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`

	if _, err := db.conn.ExecContext(ctx, query,
		post.ID, post.MarkerID, post.Title, post.Content, post.PasswordHash, post.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	return post, nil
}

// GetPost returns a single post by ID, including the password hash for
// server-side verification. Returns ErrNotFound if no post exists.
func (db *DB) GetPost(ctx context.Context, id string) (*models.Post, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + postColumns + `
		FROM posts WHERE id = CAST(? AS UUID)`

	return scanPost(db.conn.QueryRowContext(ctx, query, id))
}

// GetPostsByMarker returns all posts for a marker, newest first.
// Returns an empty slice (not nil) when the marker has no posts.
func (db *DB) GetPostsByMarker(ctx context.Context, markerID string) ([]models.Post, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + postColumns + `
		FROM posts WHERE marker_id = CAST(? AS UUID)
		ORDER BY created_at DESC, id`

	rows, err := db.conn.QueryContext(ctx, query, markerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer closeWithLog(rows, "post rows")

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// ListPosts returns a page of all posts across markers, newest first, with
// the total count. Used by the admin console.
func (db *DB) ListPosts(ctx context.Context, limit, offset int) (*models.PostPage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `SELECT ` + postColumns + `
		FROM posts
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer closeWithLog(rows, "post rows")

	posts := make([]models.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return &models.PostPage{Posts: posts, Total: total}, nil
}

// UpdatePost replaces a post's title and content and returns the updated
// post. Password verification happens in the handler layer. Returns
// ErrNotFound if no post exists.
func (db *DB) UpdatePost(ctx context.Context, id, title, content string) (*models.Post, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ? WHERE id = CAST(? AS UUID)`, title, content, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return db.GetPost(ctx, id)
}

// IncrementLikes atomically increments a post's like counter and returns the
// new count. A single UPDATE..RETURNING means concurrent likes never lose
// increments. Returns ErrNotFound if the post does not exist.
func (db *DB) IncrementLikes(ctx context.Context, id string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `UPDATE posts SET likes = likes + 1 WHERE id = CAST(? AS UUID) RETURNING likes`

	var likes int64
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&likes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment likes: %w", err)
	}

	return likes, nil
}

// DeletePost removes a post by ID. Password verification happens in the
// handler layer before this is called. Returns ErrNotFound if no post exists.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = CAST(? AS UUID)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// scanPost scans one post row including the password hash
func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post

	err := row.Scan(&post.ID, &post.MarkerID, &post.Title, &post.Content,
		&post.PasswordHash, &post.Likes, &post.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	return &post, nil
}
