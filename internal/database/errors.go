// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package database

import (
	"errors"
	"io"
	"strings"

	"github.com/FirstBright/goodmap/internal/logging"
)

// Sentinel errors returned by data access methods. HTTP handlers map these
// to response status codes.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateLocation is returned when a marker already exists at the
	// exact coordinates. Enforced by the unique index on (latitude, longitude).
	ErrDuplicateLocation = errors.New("a marker already exists at this location")

	// ErrMarkerHasPosts is returned when deleting a marker that still has posts.
	ErrMarkerHasPosts = errors.New("marker still has posts")

	// ErrUsernameTaken is returned when seeding an admin with a username that
	// belongs to a different account.
	ErrUsernameTaken = errors.New("username already taken")
)

// isUniqueViolation reports whether an error came from a unique constraint.
// DuckDB has no structured error codes over database/sql, so this matches on
// the message text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "Constraint Error")
}

// closeWithLog closes a resource and logs any error.
// Use this for cleanup operations where errors should be acknowledged but not
// fail the operation.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this for cleanup in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
