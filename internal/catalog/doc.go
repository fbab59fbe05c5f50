// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package catalog answers paginated, sorted catalog queries for libraries and
shows.

Each query decides where its data comes from:

 1. Cached rows exist: serve from DuckDB.
 2. Cache empty: run a synchronous sync (library content or show episodes)
    and read the cache again.
 3. Still empty: fetch everything from the media server and sort and page
    the result in memory.

Results carry the source that served them ("cache" or "live") and a
needs_sync hint. For library content the hint means the cache was empty; for
episodes it means the show's last sync is older than the stale window.

# Sorting

Static sorts (title, year, added_at, rating) are pushed down to storage with
NULLS FIRST for ascending and NULLS LAST for descending order, and a title
tiebreak. Derived sorts (total_streams, season_episode) load the full match
set, compute the key per row, sort stably and slice the requested page, so
ordering is correct across pages. The live fallback applies the same policy
in memory.

Stream counts come from media_stream_history, matched by title within the
library's server and name. The title column depends on the item type:

	show, artist   grandparent_title
	album          parent_title
	movie, other   media_title
	episode        media_title and grandparent_title = show title

# Usage

	engine := catalog.NewEngine(db, syncManager, factory, catalog.Options{
		DefaultPerPage: cfg.API.DefaultPerPage,
		MaxPerPage:     cfg.API.MaxPerPage,
		AutoSync:       cfg.Sync.AutoSyncOnEmpty,
	})
	page, err := engine.GetLibraryContent(ctx, libraryID, catalog.ContentRequest{
		Page:   1,
		SortBy: "total_streams_desc",
	})
*/
package catalog
