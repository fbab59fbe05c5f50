// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package database provides the DuckDB-backed local catalog cache.

The cache mirrors remote media server state: servers, libraries, media items
(movies, shows, episodes, artists, books, ROMs), per-user library access grants
and a read-only stream history used for derived "total streams" sorts.

Write Model:

Reconciliation and sync passes write through a single transaction each:
  - ApplyLibraryDiff: inserts, updates and removals for one server's libraries
  - ApplyItemDiff: upserts and removals for one library or one show's episodes

A failing pass rolls back entirely, so a partially applied diff is never visible.

Parent References:

Episodes reference their show by value (parent_id holds the show's external_id
or rating_key), not by row id. Lookups therefore take a list of candidate keys
and may optionally include orphans (parent_id IS NULL) left by an interrupted
sync.

Sorting:

Static sorts map to a fixed ORDER BY clause through a whitelist. User input never
reaches the SQL text.

Thread Safety:

DB is safe for concurrent use. database/sql pools connections and DuckDB
serializes conflicting writers.
*/
package database
