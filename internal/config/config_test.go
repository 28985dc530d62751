// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package config

import (
	"strings"
	"testing"
	"time"
)

// validTestConfig returns a config that passes Validate, for mutation in tests.
func validTestConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPassword = "hunter2hunter2"
	return cfg
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	t.Parallel()

	if err := validTestConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "DUCKDB_PATH",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "short JWT secret",
			mutate:  func(c *Config) { c.Security.JWTSecret = "short" },
			wantErr: "JWT_SECRET",
		},
		{
			name: "placeholder JWT secret",
			mutate: func(c *Config) {
				c.Security.JWTSecret = "CHANGEME-CHANGEME-CHANGEME-CHANGEME"
			},
			wantErr: "placeholder",
		},
		{
			name:    "missing admin credentials",
			mutate:  func(c *Config) { c.Security.AdminPassword = "" },
			wantErr: "ADMIN_USERNAME",
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.Security.AuthMode = "oauth" },
			wantErr: "AUTH_MODE",
		},
		{
			name:    "bcrypt cost too high",
			mutate:  func(c *Config) { c.Security.BcryptCost = 99 },
			wantErr: "BCRYPT_COST",
		},
		{
			name:    "zero cache TTL",
			mutate:  func(c *Config) { c.Cache.PostsTTL = 0 },
			wantErr: "CACHE_POSTS_TTL",
		},
		{
			name:    "max page size below default",
			mutate:  func(c *Config) { c.API.MaxPageSize = 5 },
			wantErr: "API_MAX_PAGE_SIZE",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name: "wildcard CORS in production",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Security.CORSOrigins = []string{"*"}
			},
			wantErr: "CORS_ORIGINS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAuthModeNoneSkipsJWTChecks(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Security.AuthMode = "none"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("auth_mode=none should not require JWT settings: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env  string
		want string
	}{
		{"DUCKDB_PATH", "database.path"},
		{"HTTP_PORT", "server.port"},
		{"CACHE_POSTS_TTL", "cache.posts_ttl"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"LIKE_RATE_LIMIT", "security.like_rate_limit"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},     // unmapped vars are skipped
		{"HOSTNAME", ""}, // unmapped vars are skipped
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadWithKoanfEnvOverrides(t *testing.T) {
	t.Setenv("DUCKDB_PATH", ":memory:")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "hunter2hunter2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CACHE_POSTS_TTL", "90s")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Database.Path != ":memory:" {
		t.Errorf("database path = %q, want :memory:", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.PostsTTL != 90*time.Second {
		t.Errorf("posts TTL = %v, want 90s", cfg.Cache.PostsTTL)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v, want two trimmed entries", cfg.Security.CORSOrigins)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.Server.Port != 3857 {
		t.Errorf("default port = %d, want 3857", cfg.Server.Port)
	}
	if cfg.Cache.PostsTTL != 60*time.Second {
		t.Errorf("default posts TTL = %v, want 60s", cfg.Cache.PostsTTL)
	}
	if cfg.Security.BcryptCost != 10 {
		t.Errorf("default bcrypt cost = %d, want 10", cfg.Security.BcryptCost)
	}
	if cfg.Security.SessionTimeout != time.Hour {
		t.Errorf("default session timeout = %v, want 1h", cfg.Security.SessionTimeout)
	}
}
