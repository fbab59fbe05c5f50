// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package sync mirrors remote media server state into the local catalog.

Three passes write the catalog, each applied in a single database
transaction:

  - ReconcileLibraries / ReconcileAll: add, update and remove the libraries of
    one or every active server. A failing server is recorded in the result and
    does not affect the others.
  - SyncLibraryContent: page through a library's top-level content and diff it
    against the cached non-episode items by external id.
  - SyncShowEpisodes: fetch every episode of a show and diff it against the
    cached episodes attached to the show by either of its keys, plus orphans.

PurgeEpisodes removes a show's cached episodes so the next read re-syncs them.

Usage Example:

	manager := sync.NewManager(db, factory, cfg.Sync)
	manager.SetEventPublisher(publisher)

	result, err := manager.ReconcileAll(ctx)
	if err != nil {
	    return err
	}
	logging.Info().Str("summary", result.Message()).Msg("Libraries reconciled")

Concurrency:

Episode syncs for the same (library, show) key share one execution through
golang.org/x/sync/singleflight; callers that joined an in-flight sync get a
result with Shared set. The Manager does not schedule anything on its own:
stale caches are reported by the catalog and refreshed only on request.
*/
package sync
