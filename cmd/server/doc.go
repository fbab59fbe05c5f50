// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

// Package main is the media catalog server.
//
// It keeps a local DuckDB catalog of the libraries, items and episodes of
// Plex, Jellyfin, Emby, Kavita, Audiobookshelf, Komga and RomM servers, and
// answers paginated, sortable content queries from that cache with a live
// fallback to the media server.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging
//  3. DuckDB catalog and token store
//  4. Configured media servers are seeded into the catalog
//  5. Adapter factory, sync manager, query engine, access normalizer
//  6. Event bus (optional)
//  7. Supervisor tree: reconcile scheduler, event log, HTTP server
//
// # Build Tags
//
//	go build -tags nats ./cmd/server  # NATS JetStream event backend
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree; the HTTP server drains
// within server.shutdown_timeout.
package main
