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

// GetAdminByUsername returns the admin account with the given username.
// Returns ErrNotFound if no such account exists.
func (db *DB) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT CAST(id AS VARCHAR) AS id, username, password_hash, is_admin, created_at
		FROM admins WHERE username = ?`

	var admin models.Admin
	err := db.conn.QueryRowContext(ctx, query, username).Scan(
		&admin.ID, &admin.Username, &admin.PasswordHash, &admin.IsAdmin, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan admin: %w", err)
	}

	return &admin, nil
}

// CreateAdmin inserts a new admin account with an already-hashed password.
// Returns ErrUsernameTaken when the username exists.
func (db *DB) CreateAdmin(ctx context.Context, username, passwordHash string) (*models.Admin, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	admin := &models.Admin{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO admins (id, username, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, TRUE, ?)`

	if _, err := db.conn.ExecContext(ctx, query,
		admin.ID, admin.Username, admin.PasswordHash, admin.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to insert admin: %w", err)
	}

	return admin, nil
}

// UpdateAdminPassword replaces the stored password hash for an admin.
// Returns ErrNotFound if the admin does not exist.
func (db *DB) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET password_hash = ? WHERE id = CAST(? AS UUID)`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update admin password: %w", err)
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
