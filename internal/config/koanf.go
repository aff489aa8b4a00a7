// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rookery/config.yaml",
	"/etc/rookery/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/rookery.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			DefaultUserID:   "local",
		},
		Lichess: LichessConfig{
			BaseURL:  "https://lichess.org",
			Timeout:  2 * time.Minute, // exports stream for a long time
			MaxGames: 300,
		},
		ChessCom: ChessComConfig{
			BaseURL:      "https://api.chess.com",
			Timeout:      30 * time.Second,
			MaxGames:     300,
			MaxAttempts:  4,
			BaseDelay:    time.Second,
			MaxDelay:     30 * time.Second,
			RequestDelay: 250 * time.Millisecond,
			UserAgent:    "rookery/1.0 (+https://github.com/tomtom215/rookery)",
		},
		ArchiveCache: ArchiveCacheConfig{
			Enabled: false,
			Path:    "/data/archive-cache",
		},
		AutoSync: AutoSyncConfig{
			Enabled:         true,
			Interval:        15 * time.Minute,
			DueAfter:        6 * time.Hour,
			BatchSize:       20,
			ShutdownTimeout: 30 * time.Second,
		},
		Import: ImportConfig{
			MaxPlies:     12,
			VariantDepth: 12,
		},
		StatsCache: StatsCacheConfig{
			TTL:      5 * time.Minute,
			Capacity: 1000,
		},
	}
}

// LoadWithKoanf layers defaults, the config file and environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are koanf paths whose env values are comma-separated lists.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"default_user_id":     "security.default_user_id",

	"lichess_base_url":  "lichess.base_url",
	"lichess_timeout":   "lichess.timeout",
	"lichess_max_games": "lichess.max_games",

	"chesscom_base_url":      "chesscom.base_url",
	"chesscom_timeout":       "chesscom.timeout",
	"chesscom_max_games":     "chesscom.max_games",
	"chesscom_max_attempts":  "chesscom.max_attempts",
	"chesscom_base_delay":    "chesscom.base_delay",
	"chesscom_max_delay":     "chesscom.max_delay",
	"chesscom_request_delay": "chesscom.request_delay",
	"chesscom_user_agent":    "chesscom.user_agent",

	"archive_cache_enabled": "archive_cache.enabled",
	"archive_cache_path":    "archive_cache.path",

	"autosync_enabled":          "autosync.enabled",
	"autosync_interval":         "autosync.interval",
	"autosync_due_after":        "autosync.due_after",
	"autosync_batch_size":       "autosync.batch_size",
	"autosync_shutdown_timeout": "autosync.shutdown_timeout",

	"import_max_plies":     "import.max_plies",
	"import_variant_depth": "import.variant_depth",

	"stats_cache_ttl":      "stats_cache.ttl",
	"stats_cache_capacity": "stats_cache.capacity",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
