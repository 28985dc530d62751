// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package api

// CreateMarkerRequest is the body for POST /api/v1/markers
type CreateMarkerRequest struct {
	Name      string   `json:"name" validate:"required,min=1,max=100"`
	Latitude  float64  `json:"latitude" validate:"latitude"`
	Longitude float64  `json:"longitude" validate:"longitude"`
	Tags      []string `json:"tags" validate:"omitempty,max=7,dive,markertag"`
}

// UpdateMarkerRequest is the body for PATCH /api/v1/markers/{id}.
// Only tags are mutable; name and coordinates are fixed at creation.
type UpdateMarkerRequest struct {
	Tags []string `json:"tags" validate:"required,max=7,dive,markertag"`
}

// CreatePostRequest is the body for POST /api/v1/markers/{id}/posts.
// The password gates later deletion of the post; it is hashed with bcrypt
// before storage and never returned.
type CreatePostRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Content  string `json:"content" validate:"required,min=1,max=5000"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

// UpdatePostRequest is the body for PATCH /api/v1/posts/{id}.
// The password must match the one chosen at creation unless the request
// carries an admin token.
type UpdatePostRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Content  string `json:"content" validate:"required,min=1,max=5000"`
	Password string `json:"password" validate:"omitempty,max=72"`
}

// DeletePostRequest is the body for DELETE /api/v1/posts/{id}.
// Password may be empty when the caller presents an admin token.
type DeletePostRequest struct {
	Password string `json:"password" validate:"omitempty,max=72"`
}

// LoginRequest is the body for POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
