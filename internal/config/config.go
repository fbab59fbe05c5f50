// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

// Package config loads and validates media catalog configuration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Media server definitions (Servers) are only read from the config file since
// a list of structured entries has no natural environment encoding.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Logging      LoggingConfig      `koanf:"logging"`
	API          APIConfig          `koanf:"api"`
	MediaServers MediaServersConfig `koanf:"media_servers"`
	Servers      []MediaServerEntry `koanf:"servers"`
	Sync         SyncConfig         `koanf:"sync"`
	TokenStore   TokenStoreConfig   `koanf:"token_store"`
	Events       EventsConfig       `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB file path. ":memory:" opens an in-memory database.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// APIConfig holds settings for the HTTP boundary.
type APIConfig struct {
	DefaultPerPage    int           `koanf:"default_per_page"`
	MaxPerPage        int           `koanf:"max_per_page"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// MediaServersConfig holds settings shared by every adapter.
type MediaServersConfig struct {
	// Timeout bounds each outbound HTTP call to a media server.
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitRPS throttles outbound requests per server. 0 disables throttling.
	RateLimitRPS float64 `koanf:"rate_limit_rps"`

	// RateLimitBurst is the token bucket size for RateLimitRPS.
	RateLimitBurst int `koanf:"rate_limit_burst"`

	// CircuitBreaker wraps each adapter in a gobreaker circuit breaker.
	CircuitBreaker bool `koanf:"circuit_breaker"`

	// KavitaPluginName is sent on the Kavita API key exchange.
	KavitaPluginName string `koanf:"kavita_plugin_name"`
}

// MediaServerEntry declares one media server seeded into the cache at startup.
type MediaServerEntry struct {
	ServiceType string `koanf:"service_type"`
	Nickname    string `koanf:"nickname"`
	URL         string `koanf:"url"`
	APIKey      string `koanf:"api_key"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	Active      bool   `koanf:"active"`
}

// SyncConfig holds library and episode synchronization settings.
type SyncConfig struct {
	// EpisodeStaleAfter is the age after which a show's episode cache reports needs_sync.
	EpisodeStaleAfter time.Duration `koanf:"episode_stale_after"`

	// LibraryPageSize is the page size used when paging a library's content.
	LibraryPageSize int `koanf:"library_page_size"`

	// LibraryMaxPages bounds library content paging.
	LibraryMaxPages int `koanf:"library_max_pages"`

	// LibraryPageDelay is slept between library content pages.
	LibraryPageDelay time.Duration `koanf:"library_page_delay"`

	// EpisodePageSize is the page size used when fetching a show's episodes.
	EpisodePageSize int `koanf:"episode_page_size"`

	// AutoSyncOnEmpty triggers a synchronous sync when a query finds no cached rows.
	AutoSyncOnEmpty bool `koanf:"auto_sync_on_empty"`

	// ReconcileInterval schedules library reconciliation of every active
	// server. 0 disables the schedule; reconciliation then only runs on request.
	ReconcileInterval time.Duration `koanf:"reconcile_interval"`

	// ReconcileOnStart reconciles libraries once at startup.
	ReconcileOnStart bool `koanf:"reconcile_on_start"`
}

// TokenStoreConfig selects the backend for short-lived adapter tokens.
type TokenStoreConfig struct {
	// Backend is "memory" or "badger".
	Backend string `koanf:"backend"`

	// Path is the Badger directory (ignored when InMemory is true).
	Path string `koanf:"path"`

	// InMemory runs Badger without touching disk.
	InMemory bool `koanf:"in_memory"`

	// CleanupInterval controls how often the memory backend evicts expired tokens.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// EventsConfig holds catalog change event publishing settings.
type EventsConfig struct {
	Enabled bool `koanf:"enabled"`

	// Backend is "gochannel" (in-process) or "nats" (requires the nats build tag).
	Backend string `koanf:"backend"`

	NATSURL       string `koanf:"nats_url"`
	TopicPrefix   string `koanf:"topic_prefix"`
	PublishBuffer int64  `koanf:"publish_buffer"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
