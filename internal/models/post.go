// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package models

import "time"

// Post is an anonymous bulletin entry attached to a marker.
//
// Posts have no owning account. Mutation rights are carried by a per-post
// password chosen at creation: the bcrypt hash is stored, the plaintext is
// never persisted, and PasswordHash is excluded from JSON serialization so
// it can never leak through an API response.
//
// Likes only ever increases. The increment happens in a single atomic
// UPDATE at the storage layer, so concurrent likes cannot lose counts.
type Post struct {
	ID           string    `json:"id"`
	MarkerID     string    `json:"marker_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"` // May contain rich-text HTML from the external editor.
	PasswordHash string    `json:"-"`
	Likes        int64     `json:"likes"`
	CreatedAt    time.Time `json:"created_at"`
}

// PostRef identifies a deleted post and its owning marker. It is returned
// by the delete endpoint so clients can reconcile local state (and the
// marker's deletability) without a refetch.
type PostRef struct {
	PostID   string `json:"post_id"`
	MarkerID string `json:"marker_id"`
}

// PostPage is one page of the admin post listing.
type PostPage struct {
	Posts []Post `json:"posts"`
	Total int64  `json:"total"`
}
