// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/FirstBright/goodmap/internal/auth"
	"github.com/FirstBright/goodmap/internal/database"
	"github.com/FirstBright/goodmap/internal/logging"
	"github.com/FirstBright/goodmap/internal/models"
)

// Login handles POST /api/v1/auth/login.
// Unknown usernames and wrong passwords produce the identical response so
// the endpoint cannot be used to enumerate admin accounts.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if !h.requireDB(w) {
		return
	}
	if h.jwtManager == nil {
		// AUTH_MODE=none: admin endpoints are open and there is no
		// token to issue.
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Authentication is disabled", nil)
		return
	}

	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	admin, err := h.db.GetAdminByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to look up account", err)
			return
		}
		// Burn a bcrypt comparison anyway so missing and existing
		// usernames take comparable time.
		auth.CheckPassword(auth.DummyHash, req.Password)
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
		return
	}

	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Failed admin login attempt")
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
		return
	}

	role := models.RoleAdmin
	token, err := h.jwtManager.GenerateToken(admin.Username, role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", err)
		return
	}

	expiresAt := time.Now().Add(h.jwtManager.Timeout())
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(h.jwtManager.Timeout().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	logging.Info().Str("username", sanitizeLogValue(admin.Username)).Msg("Admin logged in")

	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  admin.Username,
		Role:      role,
	}, started, false)
}

// Logout handles POST /api/v1/auth/logout by expiring the token cookie.
// The JWT itself stays valid until its exp claim; the session simply loses
// its browser-side credential.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	respondSuccess(w, http.StatusOK, map[string]string{"status": "logged_out"}, started, false)
}
