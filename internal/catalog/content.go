// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// GetLibraryContent returns one page of a library's top-level content.
//
// Cached rows are served when present. An empty cache triggers a synchronous
// content sync when auto-sync is enabled, and a live fetch from the media
// server when the cache is still empty. A missing library or a storage fault
// is returned as an error; a failed live fetch is reported in the result.
func (e *Engine) GetLibraryContent(ctx context.Context, libraryID string, req ContentRequest) (*models.ContentResult, error) {
	start := time.Now()
	lib, err := e.store.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load library %s: %w", libraryID, err)
	}

	page, perPage := e.paginate(req.Page, req.PerPage)
	key, warnings := parseSort(req.SortBy, models.DefaultSort)
	result := newResult(page, perPage, key, warnings)

	base := database.ItemQuery{
		LibraryID:       lib.ID,
		ItemTypes:       models.ContentTypesFor(lib.LibraryType),
		ExcludeEpisodes: true,
	}

	cached, err := e.hasRows(ctx, base)
	if err != nil {
		return nil, err
	}
	if !cached && e.opts.AutoSync && e.syncer != nil {
		e.autoSyncLibrary(ctx, lib, &result)
		if cached, err = e.hasRows(ctx, base); err != nil {
			return nil, err
		}
	}

	if cached {
		err = e.serveCached(ctx, lib, base, req.Search, key, &result)
		if err != nil {
			return nil, err
		}
		result.Source = models.SourceCache
	} else {
		result.NeedsSync = true
		if err := e.serveLiveContent(ctx, lib, req.Search, key, &result); err != nil {
			logging.Warn().Err(err).Str("library_id", lib.ID).Msg("Live content fallback failed")
			result.Error = err.Error()
		} else {
			result.Source = models.SourceLive
		}
	}

	metrics.RecordCatalogQuery(kindContent, result.Source, time.Since(start))
	return &result, nil
}

// hasRows reports whether any cached row matches q, ignoring search.
func (e *Engine) hasRows(ctx context.Context, q database.ItemQuery) (bool, error) {
	q.Search = ""
	q.Limit = 1
	_, total, err := e.store.QueryItems(ctx, q)
	if err != nil {
		return false, fmt.Errorf("failed to query cache: %w", err)
	}
	return total > 0, nil
}

func (e *Engine) autoSyncLibrary(ctx context.Context, lib *models.MediaLibrary, result *models.ContentResult) {
	metrics.CatalogAutoSyncs.WithLabelValues(kindContent).Inc()
	logging.Info().Str("library_id", lib.ID).Str("library", lib.Name).Msg("Library cache empty, syncing content")

	synced, err := e.syncer.SyncLibraryContent(ctx, lib.ID)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, "Automatic sync failed: "+err.Error())
	case !synced.Success:
		result.Warnings = append(result.Warnings, "Automatic sync failed: "+synced.Error)
	}
}

// serveCached reads one page from storage. Static sorts are paged by the
// store; derived sorts load every match, sort in memory and slice.
func (e *Engine) serveCached(ctx context.Context, lib *models.MediaLibrary, q database.ItemQuery, search string, key models.SortKey, result *models.ContentResult) error {
	q.Search = search
	q.Sort = key

	if key.IsDerived() {
		rows, _, err := e.store.QueryItems(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to query cache: %w", err)
		}
		items := toCatalogItems(rows)
		if err := e.annotateStreams(ctx, lib, items); err != nil {
			return err
		}
		sortItems(items, key)
		lo, hi := pageBounds(len(items), result.Page, result.PerPage)
		setPage(result, items[lo:hi], len(items))
		return nil
	}

	q.Limit = result.PerPage
	q.Offset = (result.Page - 1) * result.PerPage
	rows, total, err := e.store.QueryItems(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to query cache: %w", err)
	}
	items := toCatalogItems(rows)
	if err := e.annotateStreams(ctx, lib, items); err != nil {
		return err
	}
	setPage(result, items, total)
	return nil
}

func (e *Engine) serveLiveContent(ctx context.Context, lib *models.MediaLibrary, search string, key models.SortKey, result *models.ContentResult) error {
	items, err := e.liveContent(ctx, lib)
	if err != nil {
		return err
	}
	items = filterSearch(items, search)
	if err := e.annotateStreams(ctx, lib, items); err != nil {
		return err
	}
	sortItems(items, key)
	lo, hi := pageBounds(len(items), result.Page, result.PerPage)
	setPage(result, items[lo:hi], len(items))
	return nil
}
