// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

// Package api provides the HTTP surface: Chi routing, middleware, and the
// request handlers for markers, posts, auth, and the admin console.
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FirstBright/goodmap/internal/auth"
	"github.com/FirstBright/goodmap/internal/models"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so the auth middleware works with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires handlers, middleware, and static assets into one http.Handler.
type Router struct {
	handler       *Handlers
	chiMiddleware *ChiMiddleware
	authMW        *auth.Middleware
	staticDir     string
}

// NewRouter creates a Router. staticDir may be empty to disable the
// built-in frontend (API-only deployments behind a separate web server).
func NewRouter(handler *Handlers, chiMW *ChiMiddleware, authMW *auth.Middleware, staticDir string) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		authMW:        authMW,
		staticDir:     staticDir,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order. CORS must be
	// global so OPTIONS preflights reach it.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Health endpoints: permissive rate limit for monitoring probes.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Authentication: login carries the strictest rate limit.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitLogin)).Post("/login", router.handler.Login)
		r.Post("/logout", router.handler.Logout)
	})

	// Public board API: reads are permissive, writes are throttled.
	// No authentication; posts are gated by their own passwords.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitRead))
			r.Get("/markers", router.handler.ListMarkers)
			r.Get("/markers/{id}", router.handler.GetMarker)
			r.Get("/markers/{id}/posts", router.handler.GetPostsByMarker)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWrite))
			r.Post("/markers", router.handler.CreateMarker)
			r.Patch("/markers/{id}", router.handler.UpdateMarkerTags)
			r.Delete("/markers/{id}", router.handler.DeleteMarker)
			r.Post("/markers/{id}/posts", router.handler.CreatePost)
			r.Patch("/posts/{id}", router.handler.UpdatePost)
			r.Delete("/posts/{id}", router.handler.DeletePost)
		})

		// Likes have their own per-IP token bucket inside the handler,
		// so the router only applies the read-tier limit.
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitRead)).
			Post("/posts/{id}/likes", router.handler.LikePost)
	})

	// Admin console: JWT with the admin role required.
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(func(next http.HandlerFunc) http.HandlerFunc {
			return router.authMW.RequireRole(models.RoleAdmin, next)
		}))

		r.Get("/posts", router.handler.AdminListPosts)
		r.Delete("/posts/{id}", router.handler.AdminDeletePost)
		r.Delete("/markers/{id}", router.handler.AdminForceDeleteMarker)
	})

	// Observability
	r.Handle("/metrics", promhttp.Handler())

	// Static frontend, catches all unmatched routes. Must be last.
	if router.staticDir != "" {
		r.Get("/*", router.serveStaticOrIndex)
	}

	return r
}

// serveStaticOrIndex serves files from the static directory, falling back to
// index.html for unknown paths so browser reloads on client-side routes work.
func (router *Router) serveStaticOrIndex(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".css") {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	} else if strings.HasSuffix(path, ".png") || strings.HasSuffix(path, ".svg") || strings.HasSuffix(path, ".webp") {
		w.Header().Set("Cache-Control", "public, max-age=604800")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=300")
	}

	if path != "/" && path != "/index.html" && router.fileExists(path) {
		http.FileServer(http.Dir(router.staticDir)).ServeHTTP(w, r)
		return
	}

	http.ServeFile(w, r, router.staticDir+"/index.html")
}

// fileExists reports whether path names a regular file under the static dir.
func (router *Router) fileExists(path string) bool {
	f, err := http.Dir(router.staticDir).Open(path)
	if err != nil {
		return false
	}
	defer closeQuietlyHTTP(f)

	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return !stat.IsDir()
}

func closeQuietlyHTTP(f http.File) {
	_ = f.Close()
}
