// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Sync.EpisodeStaleAfter != 24*time.Hour {
		t.Errorf("Sync.EpisodeStaleAfter = %v, want 24h", cfg.Sync.EpisodeStaleAfter)
	}
	if cfg.Sync.LibraryPageSize != 50 {
		t.Errorf("Sync.LibraryPageSize = %d, want 50", cfg.Sync.LibraryPageSize)
	}
	if cfg.Sync.LibraryMaxPages != 100 {
		t.Errorf("Sync.LibraryMaxPages = %d, want 100", cfg.Sync.LibraryMaxPages)
	}
	if cfg.Sync.EpisodePageSize != 1000 {
		t.Errorf("Sync.EpisodePageSize = %d, want 1000", cfg.Sync.EpisodePageSize)
	}
	if !cfg.Sync.AutoSyncOnEmpty {
		t.Error("Sync.AutoSyncOnEmpty should default to true")
	}
	if cfg.TokenStore.Backend != "memory" {
		t.Errorf("TokenStore.Backend = %q, want memory", cfg.TokenStore.Backend)
	}
	if cfg.API.DefaultPerPage != 24 {
		t.Errorf("API.DefaultPerPage = %d, want 24", cfg.API.DefaultPerPage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"DUCKDB_PATH", "database.path"},
		{"HTTP_PORT", "server.port"},
		{"SYNC_EPISODE_STALE_AFTER", "sync.episode_stale_after"},
		{"TOKEN_STORE", "token_store.backend"},
		{"NATS_URL", "events.nats_url"},
		{"HOME", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := envTransformFunc(tt.key); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SYNC_EPISODE_STALE_AFTER", "12h")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Sync.EpisodeStaleAfter != 12*time.Hour {
		t.Errorf("Sync.EpisodeStaleAfter = %v, want 12h", cfg.Sync.EpisodeStaleAfter)
	}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("API.CORSOrigins = %v", cfg.API.CORSOrigins)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: ":memory:"
servers:
  - service_type: jellyfin
    nickname: living-room
    url: http://jellyfin.local:8096/
    api_key: abc123
    active: true
  - service_type: romm
    nickname: retro
    url: https://romm.example.com
    username: admin
    password: secret
    active: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("len(Servers) = %d, want 2", len(cfg.Servers))
	}

	inputs := cfg.ServerInputs()
	if inputs[0].URL != "http://jellyfin.local:8096" {
		t.Errorf("trailing slash should be trimmed, got %q", inputs[0].URL)
	}
	if inputs[1].ServiceType != "romm" || inputs[1].IsActive {
		t.Errorf("unexpected second input: %+v", inputs[1])
	}
}

func TestValidateServers(t *testing.T) {
	tests := []struct {
		name    string
		entries []MediaServerEntry
		wantErr string
	}{
		{
			name:    "unknown service",
			entries: []MediaServerEntry{{ServiceType: "tautulli", Nickname: "x", URL: "http://x", APIKey: "k"}},
			wantErr: "unknown service type",
		},
		{
			name: "duplicate nickname",
			entries: []MediaServerEntry{
				{ServiceType: "plex", Nickname: "Main", URL: "http://a", APIKey: "k"},
				{ServiceType: "emby", Nickname: "main", URL: "http://b", APIKey: "k"},
			},
			wantErr: "duplicate nickname",
		},
		{
			name:    "bad url",
			entries: []MediaServerEntry{{ServiceType: "plex", Nickname: "p", URL: "ftp://a", APIKey: "k"}},
			wantErr: "scheme must be http or https",
		},
		{
			name:    "romm without password",
			entries: []MediaServerEntry{{ServiceType: "romm", Nickname: "r", URL: "http://r", Username: "u"}},
			wantErr: "romm requires username and password",
		},
		{
			name:    "komga basic auth ok",
			entries: []MediaServerEntry{{ServiceType: "komga", Nickname: "k", URL: "http://k", Username: "u", Password: "p"}},
		},
		{
			name:    "kavita without key",
			entries: []MediaServerEntry{{ServiceType: "kavita", Nickname: "k", URL: "http://k"}},
			wantErr: "kavita requires api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Servers = tt.entries
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"max below default", func(c *Config) { c.API.MaxPerPage = 1 }, "API_MAX_PER_PAGE"},
		{"zero timeout", func(c *Config) { c.MediaServers.Timeout = 0 }, "MEDIA_SERVER_TIMEOUT"},
		{"zero stale window", func(c *Config) { c.Sync.EpisodeStaleAfter = 0 }, "SYNC_EPISODE_STALE_AFTER"},
		{"bad token store", func(c *Config) { c.TokenStore.Backend = "redis" }, "TOKEN_STORE"},
		{"badger without path", func(c *Config) { c.TokenStore.Backend = "badger"; c.TokenStore.Path = "" }, "TOKEN_STORE_PATH"},
		{"bad events backend", func(c *Config) { c.Events.Backend = "kafka" }, "EVENTS_BACKEND"},
		{"bad nats url", func(c *Config) { c.Events.Backend = "nats"; c.Events.NATSURL = "http://x" }, "NATS_URL"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8089}
	if got := s.Addr(); got != "127.0.0.1:8089" {
		t.Errorf("Addr() = %q", got)
	}
}
