// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

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
	"/etc/mediacatalog/config.yaml",
	"/etc/mediacatalog/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8089,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/mediacatalog.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		API: APIConfig{
			DefaultPerPage:    24,
			MaxPerPage:        200,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		MediaServers: MediaServersConfig{
			Timeout:          10 * time.Second,
			RateLimitRPS:     10,
			RateLimitBurst:   20,
			CircuitBreaker:   true,
			KavitaPluginName: "mediacatalog",
		},
		Servers: []MediaServerEntry{},
		Sync: SyncConfig{
			EpisodeStaleAfter: 24 * time.Hour,
			LibraryPageSize:   50,
			LibraryMaxPages:   100,
			LibraryPageDelay:  100 * time.Millisecond,
			EpisodePageSize:   1000,
			AutoSyncOnEmpty:   true,
			ReconcileInterval: 6 * time.Hour,
			ReconcileOnStart:  true,
		},
		TokenStore: TokenStoreConfig{
			Backend:         "memory",
			Path:            "/data/tokens",
			InMemory:        false,
			CleanupInterval: time.Minute,
		},
		Events: EventsConfig{
			Enabled:       true,
			Backend:       "gochannel",
			NATSURL:       "nats://127.0.0.1:4222",
			TopicPrefix:   "catalog",
			PublishBuffer: 64,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// The returned configuration has been validated.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// DUCKDB_PATH -> database.path, SYNC_EPISODE_STALE_AFTER -> sync.episode_stale_after
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

// findConfigFile returns the first existing config file, or "" if none exists.
// CONFIG_PATH takes precedence over DefaultConfigPaths.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
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

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak into config.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// API
	"api_default_per_page": "api.default_per_page",
	"api_max_per_page":     "api.max_per_page",
	"cors_origins":         "api.cors_origins",
	"rate_limit_requests":  "api.rate_limit_requests",
	"rate_limit_window":    "api.rate_limit_window",
	"disable_rate_limit":   "api.rate_limit_disabled",

	// Media servers
	"media_server_timeout":          "media_servers.timeout",
	"media_server_rate_limit_rps":   "media_servers.rate_limit_rps",
	"media_server_rate_limit_burst": "media_servers.rate_limit_burst",
	"media_server_circuit_breaker":  "media_servers.circuit_breaker",
	"kavita_plugin_name":            "media_servers.kavita_plugin_name",

	// Sync
	"sync_episode_stale_after": "sync.episode_stale_after",
	"sync_library_page_size":   "sync.library_page_size",
	"sync_library_max_pages":   "sync.library_max_pages",
	"sync_library_page_delay":  "sync.library_page_delay",
	"sync_episode_page_size":   "sync.episode_page_size",
	"sync_auto_on_empty":       "sync.auto_sync_on_empty",
	"sync_reconcile_interval":  "sync.reconcile_interval",
	"sync_reconcile_on_start":  "sync.reconcile_on_start",

	// Token store
	"token_store":                  "token_store.backend",
	"token_store_path":             "token_store.path",
	"token_store_in_memory":        "token_store.in_memory",
	"token_store_cleanup_interval": "token_store.cleanup_interval",

	// Events
	"events_enabled":        "events.enabled",
	"events_backend":        "events.backend",
	"nats_url":              "events.nats_url",
	"events_topic_prefix":   "events.topic_prefix",
	"events_publish_buffer": "events.publish_buffer",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - TOKEN_STORE -> token_store.backend
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
