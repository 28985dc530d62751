// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

// Package config handles application configuration loaded from defaults,
// an optional YAML file, and environment variables (highest priority).
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds DuckDB connection settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // Database file path, or ":memory:" for in-memory
	MaxMemory string `koanf:"max_memory"` // DuckDB memory limit (e.g. "2GB")
	Threads   int    `koanf:"threads"`    // 0 = use runtime.NumCPU()
}

// CacheConfig holds settings for the per-marker post list cache.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`     // Master toggle for the Badger cache
	Path       string        `koanf:"path"`        // Badger data directory; empty = in-memory
	PostsTTL   time.Duration `koanf:"posts_ttl"`   // TTL for cached post lists
	GCInterval time.Duration `koanf:"gc_interval"` // Badger value log GC interval
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`     // Read/write timeout
	Environment string        `koanf:"environment"` // "development" or "production"
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	AuthMode       string        `koanf:"auth_mode"`       // "jwt" or "none"
	JWTSecret      string        `koanf:"jwt_secret"`      // Required when auth_mode=jwt (min 32 chars)
	SessionTimeout time.Duration `koanf:"session_timeout"` // Admin JWT lifetime
	AdminUsername  string        `koanf:"admin_username"`  // Seeded admin account
	AdminPassword  string        `koanf:"admin_password"`
	BcryptCost     int           `koanf:"bcrypt_cost"` // Cost for post passwords and admin seeding

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`   // Global per-IP request limit
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"` // Window for the global limit
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	LikeRateLimit  float64  `koanf:"like_rate_limit"` // Like requests per second per IP
	LikeRateBurst  int      `koanf:"like_rate_burst"` // Burst size for the like limiter
	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"` // Include caller file:line
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
