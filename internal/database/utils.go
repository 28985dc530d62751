// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package database

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/FirstBright/goodmap/internal/models"
)

// ensureContext creates a context with 30-second timeout if none provided
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}

	return ctx, func() {}
}

// encodeTags serializes a tag list to its JSON column representation.
// Nil slices encode as an empty array so the column is never NULL.
func encodeTags(tags []models.Tag) (string, error) {
	if tags == nil {
		tags = []models.Tag{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeTags parses the JSON tags column back into a tag list.
func decodeTags(raw string) ([]models.Tag, error) {
	if raw == "" {
		return []models.Tag{}, nil
	}
	var tags []models.Tag
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}
