// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package models defines data structures for the media catalog.

This package is the single source of truth for the shapes that flow between
the adapters, the local DuckDB cache, the sync service, the query engine and
the HTTP boundary.

Model Categories:

1. Cache Rows (persisted in DuckDB):
  - MediaServer: one remote deployment (Plex, Jellyfin, Emby, Kavita,
    AudioBookshelf, Komga, RomM)
  - MediaLibrary: one library on a server, unique by (server_id, external_id)
  - MediaItem: one catalog entry (movie, show, episode, album, book, ...)
  - MediaStreamHistory: playback events used only for derived aggregates
  - UserMediaAccess: a user's allowed library selection on a server

2. Canonical Adapter Records (what every adapter must return):
  - Library: {id, name, type, item_count, external_id}
  - User: {id, uuid, username, email, thumb, is_home_user, library_ids, is_admin}
  - MediaRecord: {id, title, type, year, summary, duration_seconds, added_at, thumb, parent_id}
  - Session / FormattedSession: active playback sessions

3. Result Envelopes:
  - ReconcileResult: library reconciliation outcome across servers
  - LibrarySyncResult / EpisodeSyncResult / PurgeResult: sync outcomes
  - ContentResult / EpisodeResult: paginated query engine output

4. API Models:
  - APIResponse, APIError, Metadata: standard HTTP envelope

Library Access Semantics:

An empty allowed-library list means "all libraries". The literal single
element list ["*"] means the same thing for the Jellyfin family only. The two
forms are never interchanged when writing back to a server.

Durations:

All durations on canonical records are seconds. Adapters convert from
milliseconds (Plex) or 100ns ticks (Jellyfin, Emby) before returning.
*/
package models
