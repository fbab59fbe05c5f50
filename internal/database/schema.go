// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
schema.go - Catalog Schema

Tables:
  - media_servers: configured remote servers, unique by nickname
  - media_libraries: one row per remote library, unique by (server_id, external_id)
  - media_items: cached catalog entries, unique by (library_id, external_id)
  - media_stream_history: playback events used for stream-count sorts
  - user_media_access: per-user allowed library keys (JSON text list)

Foreign keys are not declared. DuckDB rejects updates on referenced rows, so
cascades are applied explicitly inside the owning transaction.

Indexes only cover columns that are never updated in place.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the catalog tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// createIndexes creates secondary indexes
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS media_servers (
			id TEXT PRIMARY KEY,
			service_type TEXT NOT NULL CHECK (service_type IN ('plex', 'jellyfin', 'emby', 'kavita', 'audiobookshelf', 'komga', 'romm')),
			nickname TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL,
			api_key TEXT,
			username TEXT,
			password TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS media_libraries (
			id TEXT PRIMARY KEY,
			server_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			name TEXT NOT NULL,
			library_type TEXT NOT NULL DEFAULT '',
			item_count INTEGER NOT NULL DEFAULT 0,
			last_scanned TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (server_id, external_id)
		)`,

		`CREATE TABLE IF NOT EXISTS media_items (
			id TEXT PRIMARY KEY,
			library_id TEXT NOT NULL,
			server_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			rating_key TEXT,
			parent_id TEXT,
			item_type TEXT NOT NULL,
			title TEXT NOT NULL,
			sort_title TEXT NOT NULL DEFAULT '',
			summary TEXT,
			year INTEGER,
			rating DOUBLE,
			duration INTEGER,
			thumb_path TEXT,
			added_at TIMESTAMP,
			last_synced TIMESTAMP,
			season_number INTEGER,
			episode_number INTEGER,
			extra_metadata TEXT NOT NULL DEFAULT '{}',
			UNIQUE (library_id, external_id)
		)`,

		`CREATE TABLE IF NOT EXISTS media_stream_history (
			id TEXT PRIMARY KEY,
			server_id TEXT NOT NULL,
			library_name TEXT NOT NULL,
			media_title TEXT NOT NULL,
			grandparent_title TEXT,
			parent_title TEXT,
			user_uuid TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			duration_seconds INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS user_media_access (
			id TEXT PRIMARY KEY,
			server_id TEXT NOT NULL,
			external_user_id TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			allowed_library_ids TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (server_id, external_user_id)
		)`,
	}
}

func indexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_libraries_server ON media_libraries(server_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_library_type ON media_items(library_id, item_type)`,
		`CREATE INDEX IF NOT EXISTS idx_items_server ON media_items(server_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stream_history_scope ON media_stream_history(server_id, library_name)`,
		`CREATE INDEX IF NOT EXISTS idx_access_server ON user_media_access(server_id)`,
	}
}
