// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package config loads layered application configuration.
//
// Precedence, lowest to highest:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML config file (CONFIG_PATH, ./config.yaml, /etc/rookery/config.yaml)
//  3. Environment variables listed in envMappings
//
// Unknown environment variables are ignored.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Logging      LoggingConfig      `koanf:"logging"`
	Security     SecurityConfig     `koanf:"security"`
	Lichess      LichessConfig      `koanf:"lichess"`
	ChessCom     ChessComConfig     `koanf:"chesscom"`
	ArchiveCache ArchiveCacheConfig `koanf:"archive_cache"`
	AutoSync     AutoSyncConfig     `koanf:"autosync"`
	Import       ImportConfig       `koanf:"import"`
	StatsCache   StatsCacheConfig   `koanf:"stats_cache"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SecurityConfig holds authentication and HTTP edge settings
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // "jwt" or "none"
	JWTSecret         string        `koanf:"jwt_secret"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// DefaultUserID is the user every request acts as when AuthMode is none.
	DefaultUserID string `koanf:"default_user_id"`
}

// LichessConfig configures the streaming export provider.
type LichessConfig struct {
	BaseURL  string        `koanf:"base_url"`
	Timeout  time.Duration `koanf:"timeout"`
	MaxGames int           `koanf:"max_games"`
}

// ChessComConfig configures the monthly archive provider.
//
// Every HTTP call is retried on 429 or network failure up to MaxAttempts
// times with exponential backoff between BaseDelay and MaxDelay. Consecutive
// requests are spaced at least RequestDelay apart.
type ChessComConfig struct {
	BaseURL      string        `koanf:"base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxGames     int           `koanf:"max_games"`
	MaxAttempts  int           `koanf:"max_attempts"`
	BaseDelay    time.Duration `koanf:"base_delay"`
	MaxDelay     time.Duration `koanf:"max_delay"`
	RequestDelay time.Duration `koanf:"request_delay"`
	UserAgent    string        `koanf:"user_agent"`
}

// ArchiveCacheConfig controls the on-disk cache of immutable past-month
// archives. When disabled, an in-memory cache is used.
type ArchiveCacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// AutoSyncConfig drives the background scheduler.
type AutoSyncConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Interval        time.Duration `koanf:"interval"`
	DueAfter        time.Duration `koanf:"due_after"`
	BatchSize       int           `koanf:"batch_size"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ImportConfig holds opening detection depths.
type ImportConfig struct {
	MaxPlies     int `koanf:"max_plies"`
	VariantDepth int `koanf:"variant_depth"`
}

// StatsCacheConfig configures the per-user statistics cache.
type StatsCacheConfig struct {
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
