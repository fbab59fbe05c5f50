// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/mediaserver"
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

const msgNoContentSupport = "Service does not support library content retrieval"

// SyncLibraryContent mirrors a library's top-level content into the cache.
//
// Content is fetched page by page until a short page, the page limit or an
// error. A fetch that stopped on an error keeps what it retrieved: new and
// changed items are written but nothing is removed, since missing items may
// simply not have been reached. Only a missing library or a storage fault
// is returned as an error.
func (m *Manager) SyncLibraryContent(ctx context.Context, libraryID string) (*models.LibrarySyncResult, error) {
	start := time.Now()
	lib, err := m.store.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load library %s: %w", libraryID, err)
	}

	result := &models.LibrarySyncResult{
		LibraryName:  lib.Name,
		AddedItems:   []models.ItemChange{},
		UpdatedItems: []models.ItemChange{},
		RemovedItems: []models.ItemChange{},
		Errors:       []string{},
	}
	logger := logging.WithComponent("library_sync").With().
		Str("library_id", lib.ID).
		Str("library", lib.Name).
		Logger()

	server, svc, err := m.serviceFor(ctx, lib.ServerID)
	if err != nil {
		metrics.RecordSyncOperation(opLibraryContent, time.Since(start), err)
		result.Error = err.Error()
		return result, nil
	}
	browser, ok := mediaserver.AsContentBrowser(svc)
	if !ok {
		result.Error = msgNoContentSupport
		return result, nil
	}

	records, complete, fetchErr := m.fetchLibraryContent(ctx, browser, lib)
	if fetchErr != nil {
		logger.Warn().Err(fetchErr).Int("retrieved", len(records)).Msg("Library content fetch stopped early")
		if len(records) == 0 {
			metrics.RecordSyncOperation(opLibraryContent, time.Since(start), fetchErr)
			result.Error = fetchErr.Error()
			return result, nil
		}
		result.Errors = append(result.Errors, fmt.Sprintf("content fetch incomplete: %v", fetchErr))
	}

	cached, err := m.store.ListLibraryItems(ctx, lib.ID, true)
	if err != nil {
		metrics.RecordSyncOperation(opLibraryContent, time.Since(start), err)
		return nil, err
	}

	now := m.now().UTC()
	diff := &database.ItemDiff{ScannedLibraryID: lib.ID, StampedAt: now}
	byExternal := make(map[string]*models.MediaItem, len(cached))
	for i := range cached {
		byExternal[cached[i].ExternalID] = &cached[i]
	}

	seen := make(map[string]bool, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true

		if existing, ok := byExternal[rec.ID]; ok {
			next, changes := updateItem(existing, rec, now)
			if next == nil {
				continue
			}
			diff.Updated = append(diff.Updated, next)
			result.UpdatedItems = appendCapped(result.UpdatedItems, itemChange(next, changes))
			continue
		}
		item := newItem(lib, rec, now)
		diff.Inserted = append(diff.Inserted, item)
		result.AddedItems = appendCapped(result.AddedItems, itemChange(item, nil))
	}

	if complete {
		for i := range cached {
			if seen[cached[i].ExternalID] {
				continue
			}
			diff.Removed = append(diff.Removed, cached[i].ID)
			result.RemovedItems = appendCapped(result.RemovedItems, itemChange(&cached[i], nil))
		}
	}

	if err := m.store.ApplyItemDiff(ctx, diff); err != nil {
		metrics.RecordSyncOperation(opLibraryContent, time.Since(start), err)
		return nil, fmt.Errorf("failed to apply content changes for %s: %w", lib.Name, err)
	}

	result.Success = true
	result.TotalItems = len(seen)
	result.Added = len(diff.Inserted)
	result.Updated = len(diff.Updated)
	result.Removed = len(diff.Removed)

	metrics.RecordSyncOperation(opLibraryContent, time.Since(start), nil)
	metrics.RecordSyncChanges(opLibraryContent, result.Added, result.Updated, result.Removed)
	logger.Info().
		Str("server", server.Nickname).
		Int("total", result.TotalItems).
		Int("added", result.Added).
		Int("updated", result.Updated).
		Int("removed", result.Removed).
		Dur("duration", time.Since(start)).
		Msg("Library content synced")

	m.publish(ctx, &models.CatalogEvent{
		Type:      models.EventLibrarySynced,
		ServerID:  lib.ServerID,
		LibraryID: lib.ID,
		Title:     lib.Name,
		Added:     result.Added,
		Updated:   result.Updated,
		Removed:   result.Removed,
		Errors:    len(result.Errors),
	})
	return result, nil
}

// fetchLibraryContent pages through a library. complete is false when paging
// stopped on an error or hit the page limit with more pages remaining.
func (m *Manager) fetchLibraryContent(ctx context.Context, browser mediaserver.ContentBrowser, lib *models.MediaLibrary) (
	records []models.MediaRecord, complete bool, err error,
) {
	perPage := m.cfg.LibraryPageSize
	for page := 1; page <= m.cfg.LibraryMaxPages; page++ {
		if page > 1 {
			if err := m.sleep(ctx, m.cfg.LibraryPageDelay); err != nil {
				return records, false, err
			}
		}

		result, err := browser.GetLibraryContent(ctx, lib.ExternalID, mediaserver.ContentQuery{Page: page, PerPage: perPage})
		if err != nil {
			return records, false, fmt.Errorf("page %d: %w", page, err)
		}
		if result == nil || len(result.Items) == 0 {
			return records, true, nil
		}
		records = append(records, result.Items...)
		if len(result.Items) < perPage {
			return records, true, nil
		}
	}
	logging.Warn().
		Str("library_id", lib.ID).
		Int("max_pages", m.cfg.LibraryMaxPages).
		Msg("Library content paging hit the page limit")
	return records, false, nil
}
