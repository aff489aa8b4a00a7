// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateSecurity,
		c.validateProviders,
		c.validateArchiveCache,
		c.validateAutoSync,
		c.validateImport,
		c.validateStatsCache,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	case "none":
		// M-02: never run unauthenticated in production
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
		}
		if strings.TrimSpace(c.Security.DefaultUserID) == "" {
			return fmt.Errorf("DEFAULT_USER_ID is required when AUTH_MODE is none")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none")
	}

	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

func (c *Config) validateProviders() error {
	if err := validateBaseURL("LICHESS_BASE_URL", c.Lichess.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("CHESSCOM_BASE_URL", c.ChessCom.BaseURL); err != nil {
		return err
	}
	if c.Lichess.Timeout <= 0 || c.ChessCom.Timeout <= 0 {
		return fmt.Errorf("provider timeouts must be positive")
	}
	if c.Lichess.MaxGames < 0 || c.ChessCom.MaxGames < 0 {
		return fmt.Errorf("provider max games must not be negative")
	}

	cc := c.ChessCom
	if cc.MaxAttempts < 1 || cc.MaxAttempts > 10 {
		return fmt.Errorf("CHESSCOM_MAX_ATTEMPTS must be between 1 and 10")
	}
	if cc.BaseDelay < 0 || cc.MaxDelay < cc.BaseDelay {
		return fmt.Errorf("CHESSCOM_MAX_DELAY (%v) must be >= CHESSCOM_BASE_DELAY (%v) and both non-negative", cc.MaxDelay, cc.BaseDelay)
	}
	if cc.RequestDelay < 0 {
		return fmt.Errorf("CHESSCOM_REQUEST_DELAY must not be negative")
	}
	if strings.TrimSpace(cc.UserAgent) == "" {
		return fmt.Errorf("CHESSCOM_USER_AGENT is required")
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

func (c *Config) validateArchiveCache() error {
	if c.ArchiveCache.Enabled && strings.TrimSpace(c.ArchiveCache.Path) == "" {
		return fmt.Errorf("ARCHIVE_CACHE_PATH is required when ARCHIVE_CACHE_ENABLED is true")
	}
	return nil
}

func (c *Config) validateAutoSync() error {
	if !c.AutoSync.Enabled {
		return nil
	}
	if c.AutoSync.Interval < time.Minute {
		return fmt.Errorf("AUTOSYNC_INTERVAL must be at least 1m")
	}
	if c.AutoSync.DueAfter < 0 {
		return fmt.Errorf("AUTOSYNC_DUE_AFTER must not be negative")
	}
	if c.AutoSync.BatchSize < 1 {
		return fmt.Errorf("AUTOSYNC_BATCH_SIZE must be at least 1")
	}
	if c.AutoSync.ShutdownTimeout <= 0 {
		return fmt.Errorf("AUTOSYNC_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.MaxPlies < 1 || c.Import.MaxPlies > 40 {
		return fmt.Errorf("IMPORT_MAX_PLIES must be between 1 and 40")
	}
	if c.Import.VariantDepth < 1 || c.Import.VariantDepth > 40 {
		return fmt.Errorf("IMPORT_VARIANT_DEPTH must be between 1 and 40")
	}
	return nil
}

func (c *Config) validateStatsCache() error {
	if c.StatsCache.TTL < 0 {
		return fmt.Errorf("STATS_CACHE_TTL must not be negative")
	}
	if c.StatsCache.Capacity < 0 {
		return fmt.Errorf("STATS_CACHE_CAPACITY must not be negative")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	}
	return fmt.Errorf("LOG_FORMAT must be json or console")
}

var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
