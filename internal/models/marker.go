// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

// Package models defines the core domain types for GoodMap: markers placed
// on the map, the posts attached to them, and admin accounts, plus the
// standardized API response envelope shared by all HTTP endpoints.
package models

import "time"

// Tag is a marker category drawn from a fixed vocabulary.
// Order is irrelevant and duplicates are not meaningful; markers store
// tags as a set.
type Tag string

// The fixed tag vocabulary. Anything outside this list is rejected at
// validation time.
const (
	TagRestaurant    Tag = "restaurant"
	TagAccommodation Tag = "accommodation"
	TagTourismView   Tag = "tourism_view"
	TagCafe          Tag = "cafe"
	TagShopping      Tag = "shopping"
	TagIncident      Tag = "incident"
	TagOther         Tag = "other"
)

// AvailableTags lists every valid tag value, in display order.
var AvailableTags = []Tag{
	TagRestaurant,
	TagAccommodation,
	TagTourismView,
	TagCafe,
	TagShopping,
	TagIncident,
	TagOther,
}

// ValidTag reports whether s is part of the tag vocabulary.
func ValidTag(s string) bool {
	for _, t := range AvailableTags {
		if string(t) == s {
			return true
		}
	}
	return false
}

// NormalizeTags deduplicates a tag list while preserving first-seen order.
// It does not validate; call ValidTag (or the validation package) first.
func NormalizeTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return []Tag{}
	}
	seen := make(map[Tag]struct{}, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Marker is a named point on the map that owns zero or more posts.
//
// The (Latitude, Longitude) pair is unique among markers; the database
// enforces this with a unique constraint so concurrent creates at the same
// spot cannot both succeed.
//
// PostIDs carries the ids of the marker's posts so clients can decide
// locally whether a marker is deletable (a marker with posts cannot be
// deleted through the public API).
type Marker struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Tags      []Tag     `json:"tags"`
	PostIDs   []string  `json:"post_ids"`
	CreatedAt time.Time `json:"created_at"`
}
