/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection for the sync history store.
type DatabaseBackend string

const (
	DatabaseSQLite   DatabaseBackend = "sqlite"
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	// Schedule input
	SchedulePath string

	// Poller
	PollInterval      time.Duration
	SinkRetryInterval time.Duration

	// Discord presence sink
	DiscordClientID   string
	DiscordLargeImage string
	DiscordLargeText  string

	// Schulmanager scraper
	SchulmanagerURL      string
	SchulmanagerUsername string
	SchulmanagerPassword string
	ScraperHeadless      bool
	ScraperTimeout       time.Duration
	SubjectMapPath       string

	// Sync history store (optional; disabled when the DSN is empty)
	DBBackend DatabaseBackend
	DBDSN     string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the
// result. The Discord client ID is only required once the poller starts, so
// commands that never touch the sink can run without it.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SCHULFUNK_ENV", "development"),
		HTTPBind:    getEnv("SCHULFUNK_HTTP_BIND", "127.0.0.1"),
		HTTPPort:    getEnvInt("SCHULFUNK_HTTP_PORT", 8370),

		SchedulePath: getEnv("SCHULFUNK_SCHEDULE_PATH", "schedule.json"),

		PollInterval:      time.Duration(getEnvInt("SCHULFUNK_POLL_INTERVAL_SECONDS", 15)) * time.Second,
		SinkRetryInterval: time.Duration(getEnvInt("SCHULFUNK_SINK_RETRY_SECONDS", 15)) * time.Second,

		DiscordClientID:   getEnvAny([]string{"SCHULFUNK_DISCORD_CLIENT_ID", "CLIENT_ID"}, ""),
		DiscordLargeImage: getEnv("SCHULFUNK_DISCORD_LARGE_IMAGE", "logo"),
		DiscordLargeText:  getEnv("SCHULFUNK_DISCORD_LARGE_TEXT", ""),

		SchulmanagerURL:      getEnv("SCHULFUNK_SCHULMANAGER_URL", "https://login.schulmanager-online.de/#/modules/schedules/view//"),
		SchulmanagerUsername: getEnvAny([]string{"SCHULFUNK_SCHULMANAGER_USERNAME", "SMUSR"}, ""),
		SchulmanagerPassword: getEnvAny([]string{"SCHULFUNK_SCHULMANAGER_PASSWORD", "SMPW"}, ""),
		ScraperHeadless:      getEnvBool("SCHULFUNK_SCRAPER_HEADLESS", true),
		ScraperTimeout:       time.Duration(getEnvInt("SCHULFUNK_SCRAPER_TIMEOUT_SECONDS", 60)) * time.Second,
		SubjectMapPath:       getEnv("SCHULFUNK_SUBJECT_MAP", ""),

		DBBackend: DatabaseBackend(getEnv("SCHULFUNK_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("SCHULFUNK_DB_DSN", ""),

		TracingEnabled:    getEnvBool("SCHULFUNK_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SCHULFUNK_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SCHULFUNK_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabaseSQLite && cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("SCHULFUNK_POLL_INTERVAL_SECONDS must be positive")
	}

	if cfg.SchedulePath == "" {
		return nil, fmt.Errorf("SCHULFUNK_SCHEDULE_PATH must not be empty")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

// RequireSink validates the settings the presence sink needs.
func (c *Config) RequireSink() error {
	if c.DiscordClientID == "" {
		return fmt.Errorf("SCHULFUNK_DISCORD_CLIENT_ID must be provided")
	}
	return nil
}

// RequireScraper validates the settings the sync command needs.
func (c *Config) RequireScraper() error {
	if c.SchulmanagerUsername == "" || c.SchulmanagerPassword == "" {
		return fmt.Errorf("SCHULFUNK_SCHULMANAGER_USERNAME and SCHULFUNK_SCHULMANAGER_PASSWORD must be provided")
	}
	return nil
}

// HistoryEnabled reports whether sync snapshots are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.DBDSN != ""
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"CLIENT_ID": "use SCHULFUNK_DISCORD_CLIENT_ID",
		"SMUSR":     "use SCHULFUNK_SCHULMANAGER_USERNAME",
		"SMPW":      "use SCHULFUNK_SCHULMANAGER_PASSWORD",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys,
// or def if none is set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
