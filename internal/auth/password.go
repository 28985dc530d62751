// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/FirstBright/goodmap/internal/database"
	"github.com/FirstBright/goodmap/internal/logging"
	"github.com/FirstBright/goodmap/internal/models"
)

// DummyHash is a valid bcrypt hash of a random throwaway value. Login
// handlers compare against it when a username does not exist so the
// request still pays the bcrypt cost.
const DummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// Used both for post passwords and the seeded admin account.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the bcrypt
// hash. bcrypt's comparison is constant-time, so this does not leak timing
// information about the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// EnsureAdmin makes sure the configured admin account exists and matches the
// configured password. Called once at startup:
//   - no account: create it with a fresh hash
//   - account exists, password matches: leave the stored hash alone
//   - account exists, password changed: re-hash and update
func EnsureAdmin(ctx context.Context, db *database.DB, username, password string, cost int) (*models.Admin, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("admin username and password must not be empty")
	}

	existing, err := db.GetAdminByUsername(ctx, username)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}

	if existing != nil {
		if CheckPassword(existing.PasswordHash, password) {
			return existing, nil
		}
		hash, err := HashPassword(password, cost)
		if err != nil {
			return nil, err
		}
		if err := db.UpdateAdminPassword(ctx, existing.ID, hash); err != nil {
			return nil, fmt.Errorf("failed to update admin password: %w", err)
		}
		existing.PasswordHash = hash
		logging.Info().Str("username", username).Msg("Admin password updated from configuration")
		return existing, nil
	}

	hash, err := HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	admin, err := db.CreateAdmin(ctx, username, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}
	logging.Info().Str("username", username).Msg("Admin account seeded")
	return admin, nil
}
