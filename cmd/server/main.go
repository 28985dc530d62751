// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

// Package main is the entry point for the GoodMap server.
//
// GoodMap is a self-hosted, map-based community bulletin board: anyone can
// drop a marker on the map, attach posts to it, and like posts. Posts are
// anonymous but carry a deletion password; a seeded admin account moderates
// through a separate console.
//
// # Initialization order
//
//  1. Configuration: Koanf v2 layered sources (env > config.yaml > defaults)
//  2. Logging: zerolog, json or console format
//  3. Database: DuckDB storage for markers, posts, and admins
//  4. Admin seeding: ADMIN_USERNAME/ADMIN_PASSWORD reconciled with storage
//  5. Cache: badger post-list cache with TTL'd entries (optional)
//  6. Authentication: JWT manager and middleware
//  7. HTTP server: Chi router under a suture supervision tree
//
// # Configuration
//
// For JWT authentication (default):
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_USERNAME: Admin username
//   - ADMIN_PASSWORD: Admin password
//
// Common settings:
//   - DUCKDB_PATH: database file (default /data/goodmap.duckdb)
//   - HTTP_PORT: listen port (default 3857)
//   - CACHE_POSTS_TTL: post-list cache lifetime (default 60s)
//   - CORS_ORIGINS: comma-separated allowed origins
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server stops accepting
// connections, in-flight requests get 10 seconds to finish, then the cache
// and database are closed.
//
// # Port 3857
//
// The default port references EPSG:3857 (Web Mercator), the projection the
// map frontend renders in.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FirstBright/goodmap/internal/api"
	"github.com/FirstBright/goodmap/internal/auth"
	"github.com/FirstBright/goodmap/internal/cache"
	"github.com/FirstBright/goodmap/internal/config"
	"github.com/FirstBright/goodmap/internal/database"
	"github.com/FirstBright/goodmap/internal/logging"
	"github.com/FirstBright/goodmap/internal/supervisor"
	"github.com/FirstBright/goodmap/internal/supervisor/services"
)

// staticDir holds the bundled map frontend.
const staticDir = "./web/static"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Msg("Starting GoodMap")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}

		seedCtx, seedCancel := context.WithTimeout(ctx, 30*time.Second)
		if _, err := auth.EnsureAdmin(seedCtx, db, cfg.Security.AdminUsername, cfg.Security.AdminPassword, cfg.Security.BcryptCost); err != nil {
			seedCancel()
			logging.Fatal().Err(err).Msg("Failed to seed admin account")
		}
		seedCancel()
		logging.Info().Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none); admin endpoints are open")
		logging.Warn().Msg("Use AUTH_MODE=none only for local development or isolated networks")
	}

	var postsCache *cache.PostsCache
	if cfg.Cache.Enabled {
		postsCache, err = cache.New(&cfg.Cache)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open post cache")
		}
		defer func() {
			if err := postsCache.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing post cache")
			}
		}()
		logging.Info().
			Dur("ttl", cfg.Cache.PostsTTL).
			Bool("in_memory", cfg.Cache.Path == "").
			Msg("Post cache enabled")
	} else {
		logging.Info().Msg("Post cache disabled; every read hits DuckDB")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS is configured with a wildcard origin while authentication is enabled")
		logging.Warn().Msg("Set explicit origins in production: CORS_ORIGINS=https://yourdomain.com")
	}

	authMW := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode, cfg.Security.TrustedProxies)
	likeLimiter := auth.NewLikeLimiter(cfg.Security.LikeRateLimit, cfg.Security.LikeRateBurst)
	defer likeLimiter.Stop()

	handlers := api.NewHandlers(db, postsCache, cfg, jwtManager, authMW, likeLimiter)
	chiMW := api.NewChiMiddlewareFromConfig(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	router := api.NewRouter(handlers, chiMW, authMW, staticDir)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	if postsCache != nil && cfg.Cache.Path != "" {
		tree.AddDataService(services.NewCacheMaintenanceService(postsCache, cfg.Cache.GCInterval))
		logging.Info().Dur("interval", cfg.Cache.GCInterval).Msg("Cache maintenance service added")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("GoodMap stopped gracefully")
}
