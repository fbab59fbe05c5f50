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
	catalogsync "github.com/tomtom215/mediacatalog/internal/sync"
)

// DefaultEpisodeSort orders episodes by season then episode number.
const DefaultEpisodeSort = models.SortSeasonEpisodeAsc

// GetShowEpisodes returns one page of a show's episodes.
//
// Only cached episodes attached to the show by either key are served. Orphans
// (NULL parent) are left to episode sync, which adopts or purges them; a cached
// read only reports how many the library holds. An empty cache triggers a synchronous episode sync,
// then a live fetch when still empty. NeedsSync reports whether the show's
// episodes are older than the stale window.
//
// A missing item or a storage fault is returned as an error; an item that is
// not a show returns an error wrapping sync.ErrNotShow.
func (e *Engine) GetShowEpisodes(ctx context.Context, showItemID string, req EpisodeRequest) (*models.EpisodeResult, error) {
	start := time.Now()
	show, err := e.store.GetMediaItem(ctx, showItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", showItemID, err)
	}
	if !show.IsShow() {
		return nil, fmt.Errorf("item %s (%s): %w", showItemID, show.ItemType, catalogsync.ErrNotShow)
	}
	lib, err := e.store.GetLibrary(ctx, show.LibraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load library for show %s: %w", show.ID, err)
	}

	page, perPage := e.paginate(req.Page, req.PerPage)
	key, warnings := parseSort(req.SortBy, DefaultEpisodeSort)
	result := &models.EpisodeResult{
		ContentResult: newResult(page, perPage, key, warnings),
		ShowID:        show.ID,
		ShowTitle:     show.Title,
	}

	base := database.ItemQuery{
		LibraryID:  lib.ID,
		ItemTypes:  []string{models.ItemTypeEpisode},
		ParentKeys: show.ParentKeys(),
	}

	cached, err := e.hasRows(ctx, base)
	if err != nil {
		return nil, err
	}
	if !cached && e.syncer != nil {
		if e.autoSyncEpisodes(ctx, show, result) {
			if show, err = e.store.GetMediaItem(ctx, showItemID); err != nil {
				return nil, fmt.Errorf("failed to reload item %s: %w", showItemID, err)
			}
		}
		if cached, err = e.hasRows(ctx, base); err != nil {
			return nil, err
		}
	}

	result.LastSynced = show.LastSynced
	result.NeedsSync = catalogsync.IsStale(show.LastSynced, e.now(), e.opts.EpisodeStaleAfter)

	if cached {
		if err := e.serveCachedEpisodes(ctx, lib, show, base, req.Search, key, result); err != nil {
			return nil, err
		}
		result.Source = models.SourceCache
	} else {
		if err := e.serveLiveEpisodes(ctx, lib, show, req.Search, key, result); err != nil {
			logging.Warn().Err(err).Str("show_id", show.ID).Msg("Live episode fallback failed")
			result.Error = err.Error()
		} else {
			result.Source = models.SourceLive
		}
	}

	metrics.RecordCatalogQuery(kindEpisodes, result.Source, time.Since(start))
	return result, nil
}

// autoSyncEpisodes runs a synchronous episode sync and reports whether it
// succeeded.
func (e *Engine) autoSyncEpisodes(ctx context.Context, show *models.MediaItem, result *models.EpisodeResult) bool {
	if !e.opts.AutoSync {
		return false
	}
	metrics.CatalogAutoSyncs.WithLabelValues(kindEpisodes).Inc()
	logging.Info().Str("show_id", show.ID).Str("show", show.Title).Msg("Episode cache empty, syncing show")

	synced, err := e.syncer.SyncShowEpisodes(ctx, show.ID)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, "Automatic sync failed: "+err.Error())
		return false
	case !synced.Success:
		result.Warnings = append(result.Warnings, "Automatic sync failed: "+synced.Error)
		return false
	}
	result.AutoSynced = true
	return true
}

func (e *Engine) serveCachedEpisodes(ctx context.Context, lib *models.MediaLibrary, show *models.MediaItem, q database.ItemQuery, search string, key models.SortKey, result *models.EpisodeResult) error {
	q.Search = search
	q.Sort = key
	rows, _, err := e.store.QueryItems(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to query cache: %w", err)
	}
	if err := e.finishEpisodes(ctx, lib, show, toCatalogItems(rows), key, result); err != nil {
		return err
	}

	_, orphans, err := e.store.QueryItems(ctx, database.ItemQuery{
		LibraryID:      lib.ID,
		ItemTypes:      []string{models.ItemTypeEpisode},
		IncludeOrphans: true,
		Limit:          1,
	})
	if err != nil {
		return fmt.Errorf("failed to count orphan episodes: %w", err)
	}
	if orphans > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d episodes in this library have no parent show and are not listed", orphans))
	}
	return nil
}

func (e *Engine) serveLiveEpisodes(ctx context.Context, lib *models.MediaLibrary, show *models.MediaItem, search string, key models.SortKey, result *models.EpisodeResult) error {
	items, err := e.liveEpisodes(ctx, lib, show)
	if err != nil {
		return err
	}
	return e.finishEpisodes(ctx, lib, show, filterSearch(items, search), key, result)
}

// finishEpisodes annotates, sorts and pages a show's full episode set.
func (e *Engine) finishEpisodes(ctx context.Context, lib *models.MediaLibrary, show *models.MediaItem, items []models.CatalogItem, key models.SortKey, result *models.EpisodeResult) error {
	if err := e.annotateEpisodeStreams(ctx, lib, show, items); err != nil {
		return err
	}
	sortItems(items, key)
	lo, hi := pageBounds(len(items), result.Page, result.PerPage)
	setPage(&result.ContentResult, items[lo:hi], len(items))
	return nil
}
