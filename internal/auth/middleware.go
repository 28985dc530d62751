// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/FirstBright/goodmap/internal/logging"
	"github.com/FirstBright/goodmap/internal/models"
)

type contextKey string

// ClaimsContextKey is the request context key carrying validated JWT claims.
const ClaimsContextKey contextKey = "claims"

// TokenCookieName is the HTTP-only cookie holding the admin session token.
const TokenCookieName = "token"

// Middleware provides authentication middleware for admin routes
type Middleware struct {
	jwtManager     *JWTManager
	authMode       string
	trustedProxies map[string]bool
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(jwtManager *JWTManager, authMode string, trustedProxies []string) *Middleware {
	trustedMap := make(map[string]bool)
	for _, proxy := range trustedProxies {
		trustedMap[proxy] = true
	}

	return &Middleware{
		jwtManager:     jwtManager,
		authMode:       authMode,
		trustedProxies: trustedMap,
	}
}

// Authenticate is middleware that enforces admin authentication.
// The token is read from the "token" cookie or a Bearer Authorization header.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == "none" {
			next(w, r)
			return
		}

		token, err := m.extractToken(r)
		if err != nil {
			respondAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or malformed token")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Error().Err(err).Msg("Token validation failed")
			respondAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole is middleware that enforces a specific role on top of Authenticate
func (m *Middleware) RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == "none" {
			next(w, r)
			return
		}

		claims, ok := r.Context().Value(ClaimsContextKey).(*Claims)
		if !ok {
			respondAuthError(w, http.StatusForbidden, "FORBIDDEN", "Invalid claims")
			return
		}

		if claims.Role != role && claims.Role != "admin" {
			respondAuthError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}

		next(w, r)
	})
}

// respondAuthError writes the standard error envelope. Kept here because
// the api package depends on auth, not the other way around.
func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	data, err := json.Marshal(&models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	})
	if err != nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write auth error response")
	}
}

// extractToken extracts the JWT from the Authorization header or cookie
func (m *Middleware) extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil {
			return "", fmt.Errorf("unauthorized: missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}

	return parts[1], nil
}

// OptionalClaims returns the claims of a valid token carried by the
// request, or nil. Used on public endpoints where an admin token relaxes
// a requirement but anonymous access stays allowed.
func (m *Middleware) OptionalClaims(r *http.Request) *Claims {
	if m.jwtManager == nil {
		return nil
	}
	token, err := m.extractToken(r)
	if err != nil {
		return nil
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}

// ClientIP extracts the client IP address from the request, honoring
// X-Forwarded-For / X-Real-IP only when the connection comes from a
// configured trusted proxy.
func (m *Middleware) ClientIP(r *http.Request) string {
	remoteIP := strings.Split(r.RemoteAddr, ":")[0]

	if len(m.trustedProxies) == 0 || !m.trustedProxies[remoteIP] {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if clientIP := strings.TrimSpace(ips[0]); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return remoteIP
}

// LikeLimiter implements per-IP rate limiting for like submissions with
// automatic cleanup of idle entries. Likes are anonymous and not idempotent,
// so this is the only guard against one client inflating a counter.
type LikeLimiter struct {
	limiters  map[string]*likeLimiterEntry
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	stopClean chan struct{}
	stopOnce  sync.Once
}

// likeLimiterEntry wraps a rate limiter with last access time
type likeLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLikeLimiter creates a per-IP limiter allowing perSecond requests with
// the given burst, and starts a background cleanup loop.
func NewLikeLimiter(perSecond float64, burst int) *LikeLimiter {
	ll := &LikeLimiter{
		limiters:  make(map[string]*likeLimiterEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		stopClean: make(chan struct{}),
	}
	go ll.startCleanup(5 * time.Minute)
	return ll
}

// Allow checks if a like from the given IP is allowed
func (ll *LikeLimiter) Allow(ip string) bool {
	ll.mu.Lock()
	entry, exists := ll.limiters[ip]
	if !exists {
		entry = &likeLimiterEntry{
			limiter:    rate.NewLimiter(ll.rate, ll.burst),
			lastAccess: time.Now(),
		}
		ll.limiters[ip] = entry
	} else {
		entry.lastAccess = time.Now()
	}
	limiter := entry.limiter
	ll.mu.Unlock()

	return limiter.Allow()
}

// startCleanup periodically removes stale limiters
func (ll *LikeLimiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ll.cleanup()
		case <-ll.stopClean:
			return
		}
	}
}

// cleanup removes limiters that haven't been accessed in the last hour
func (ll *LikeLimiter) cleanup() {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	threshold := time.Now().Add(-1 * time.Hour)
	for ip, entry := range ll.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(ll.limiters, ip)
		}
	}
}

// Stop stops the cleanup goroutine
func (ll *LikeLimiter) Stop() {
	ll.stopOnce.Do(func() {
		close(ll.stopClean)
	})
}
