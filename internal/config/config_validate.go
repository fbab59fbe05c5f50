// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := c.validateMediaServers(); err != nil {
		return err
	}

	if err := c.validateServers(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateTokenStore(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPerPage < 1 {
		return fmt.Errorf("API_DEFAULT_PER_PAGE must be at least 1, got %d", c.API.DefaultPerPage)
	}
	if c.API.MaxPerPage < c.API.DefaultPerPage {
		return fmt.Errorf("API_MAX_PER_PAGE (%d) must be >= API_DEFAULT_PER_PAGE (%d)",
			c.API.MaxPerPage, c.API.DefaultPerPage)
	}
	if !c.API.RateLimitDisabled {
		if c.API.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.API.RateLimitRequests)
		}
		if c.API.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.API.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateMediaServers() error {
	if c.MediaServers.Timeout <= 0 {
		return fmt.Errorf("MEDIA_SERVER_TIMEOUT must be positive, got %v", c.MediaServers.Timeout)
	}
	if c.MediaServers.RateLimitRPS < 0 {
		return fmt.Errorf("MEDIA_SERVER_RATE_LIMIT_RPS must be >= 0, got %v", c.MediaServers.RateLimitRPS)
	}
	if c.MediaServers.RateLimitRPS > 0 && c.MediaServers.RateLimitBurst < 1 {
		return fmt.Errorf("MEDIA_SERVER_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}

// validateServers checks every configured media server entry.
// Nicknames must be unique since they are the display key.
func (c *Config) validateServers() error {
	seen := make(map[string]bool, len(c.Servers))
	for i, entry := range c.Servers {
		field := fmt.Sprintf("servers[%d]", i)

		st, err := models.ParseServiceType(entry.ServiceType)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if strings.TrimSpace(entry.Nickname) == "" {
			return fmt.Errorf("%s: nickname is required", field)
		}
		key := strings.ToLower(entry.Nickname)
		if seen[key] {
			return fmt.Errorf("%s: duplicate nickname %q", field, entry.Nickname)
		}
		seen[key] = true

		if err := validateHTTPURL(entry.URL, field+".url"); err != nil {
			return err
		}
		if err := validateCredentials(st, entry, field); err != nil {
			return err
		}
	}
	return nil
}

// validateCredentials enforces the credential shape each service needs.
func validateCredentials(st models.ServiceType, entry MediaServerEntry, field string) error {
	switch st {
	case models.ServiceRomM:
		if entry.Username == "" || entry.Password == "" {
			return fmt.Errorf("%s: romm requires username and password", field)
		}
	case models.ServiceKomga:
		if entry.APIKey == "" && (entry.Username == "" || entry.Password == "") {
			return fmt.Errorf("%s: komga requires api_key or username and password", field)
		}
	default:
		if entry.APIKey == "" {
			return fmt.Errorf("%s: %s requires api_key", field, st)
		}
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.EpisodeStaleAfter <= 0 {
		return fmt.Errorf("SYNC_EPISODE_STALE_AFTER must be positive, got %v", c.Sync.EpisodeStaleAfter)
	}
	if c.Sync.LibraryPageSize < 1 {
		return fmt.Errorf("SYNC_LIBRARY_PAGE_SIZE must be at least 1, got %d", c.Sync.LibraryPageSize)
	}
	if c.Sync.LibraryMaxPages < 1 {
		return fmt.Errorf("SYNC_LIBRARY_MAX_PAGES must be at least 1, got %d", c.Sync.LibraryMaxPages)
	}
	if c.Sync.EpisodePageSize < 1 {
		return fmt.Errorf("SYNC_EPISODE_PAGE_SIZE must be at least 1, got %d", c.Sync.EpisodePageSize)
	}
	if c.Sync.ReconcileInterval < 0 {
		return fmt.Errorf("SYNC_RECONCILE_INTERVAL must not be negative, got %v", c.Sync.ReconcileInterval)
	}
	return nil
}

func (c *Config) validateTokenStore() error {
	switch c.TokenStore.Backend {
	case "memory":
		return nil
	case "badger":
		if !c.TokenStore.InMemory && c.TokenStore.Path == "" {
			return fmt.Errorf("TOKEN_STORE_PATH is required when TOKEN_STORE=badger")
		}
		return nil
	default:
		return fmt.Errorf("TOKEN_STORE must be 'memory' or 'badger', got: %s", c.TokenStore.Backend)
	}
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	switch c.Events.Backend {
	case "gochannel":
	case "nats":
		if err := validateNATSURL(c.Events.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be 'gochannel' or 'nats', got: %s", c.Events.Backend)
	}
	if c.Events.TopicPrefix == "" {
		return fmt.Errorf("EVENTS_TOPIC_PREFIX is required when events are enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got: %s", c.Logging.Format)
	}
	return nil
}
