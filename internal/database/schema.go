// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

/*
schema.go - Database Schema Management

Tables:
  - markers: Map pins with a name, coordinates, and a JSON tag list.
    A unique index on (latitude, longitude) rejects duplicate placements
    at the storage layer.
  - posts: Password-gated anonymous posts attached to a marker. The
    password is stored as a bcrypt hash and never leaves this table.
  - admins: Seeded admin accounts for the management console.

Index Strategy:
  - posts(marker_id, created_at DESC) serves the per-marker post list,
    which is the hottest query (also fronted by the cache layer).
  - markers(latitude, longitude) UNIQUE backs duplicate detection.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS markers (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS posts (
			id UUID PRIMARY KEY,
			marker_id UUID NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			likes BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS admins (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

// createIndexes creates indexes for frequent query patterns
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		// Duplicate placement detection happens here, not in application code
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_markers_location ON markers(latitude, longitude)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_admins_username ON admins(username)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_marker_created ON posts(marker_id, created_at)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}
