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

// SyncShowEpisodes mirrors one show's episodes into the cache.
//
// Cached episodes are those attached to the show by either of its keys plus
// the library's orphans (NULL parent). Matched orphans are adopted by the
// show; unmatched cached episodes are removed. Concurrent calls for the same
// show share one execution and get a result with Shared set.
//
// A missing item or a storage fault is returned as an error; an item that is
// not a show returns an error wrapping ErrNotShow. Remote failures are
// reported in the result.
func (m *Manager) SyncShowEpisodes(ctx context.Context, showItemID string) (*models.EpisodeSyncResult, error) {
	show, err := m.loadShow(ctx, showItemID)
	if err != nil {
		return nil, err
	}

	key := flightKey(show.LibraryID, show.ExternalID)
	v, err, shared := m.flights.Do(key, func() (interface{}, error) {
		// Joined callers must not lose the sync when the first caller goes away.
		return m.syncShowEpisodes(context.WithoutCancel(ctx), show)
	})
	if err != nil {
		return nil, err
	}

	result := *v.(*models.EpisodeSyncResult)
	result.Errors = append([]string{}, result.Errors...)
	if shared {
		result.Shared = true
		metrics.SyncSharedCalls.WithLabelValues(opShowEpisodes).Inc()
	}
	return &result, nil
}

func (m *Manager) syncShowEpisodes(ctx context.Context, show *models.MediaItem) (*models.EpisodeSyncResult, error) {
	start := time.Now()
	result := &models.EpisodeSyncResult{ShowTitle: show.Title, Errors: []string{}}
	logger := logging.WithComponent("episode_sync").With().
		Str("show_id", show.ID).
		Str("library_id", show.LibraryID).
		Str("show", show.Title).
		Logger()

	lib, err := m.store.GetLibrary(ctx, show.LibraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load library for show %s: %w", show.ID, err)
	}

	_, svc, err := m.serviceFor(ctx, lib.ServerID)
	if err != nil {
		metrics.RecordSyncOperation(opShowEpisodes, time.Since(start), err)
		result.Error = err.Error()
		return result, nil
	}
	browser, ok := mediaserver.AsEpisodeBrowser(svc)
	if !ok {
		result.Error = msgNoEpisodeSupport
		return result, nil
	}

	records, err := m.fetchEpisodes(ctx, browser, show)
	if err != nil {
		metrics.RecordSyncOperation(opShowEpisodes, time.Since(start), err)
		logger.Warn().Err(err).Msg("Episode fetch failed")
		result.Error = err.Error()
		return result, nil
	}

	existing, err := m.store.ListEpisodes(ctx, show.LibraryID, show.ParentKeys(), true)
	if err != nil {
		metrics.RecordSyncOperation(opShowEpisodes, time.Since(start), err)
		return nil, err
	}

	now := m.now().UTC()
	diff := &database.ItemDiff{SyncedItemID: show.ID, StampedAt: now}
	diff.Inserted, diff.Updated, diff.Removed = diffEpisodes(lib, show, records, existing, now)

	if err := m.store.ApplyItemDiff(ctx, diff); err != nil {
		metrics.RecordSyncOperation(opShowEpisodes, time.Since(start), err)
		return nil, fmt.Errorf("failed to apply episode changes for %s: %w", show.Title, err)
	}

	result.Success = true
	result.Added = len(diff.Inserted)
	result.Updated = len(diff.Updated)
	result.Removed = len(diff.Removed)
	result.TotalEpisodes = len(existing) + result.Added - result.Removed

	metrics.RecordSyncOperation(opShowEpisodes, time.Since(start), nil)
	metrics.RecordSyncChanges(opShowEpisodes, result.Added, result.Updated, result.Removed)
	logger.Info().
		Int("fetched", len(records)).
		Int("added", result.Added).
		Int("updated", result.Updated).
		Int("removed", result.Removed).
		Dur("duration", time.Since(start)).
		Msg("Show episodes synced")

	m.publish(ctx, &models.CatalogEvent{
		Type:      models.EventEpisodesSynced,
		ServerID:  lib.ServerID,
		LibraryID: lib.ID,
		ItemID:    show.ID,
		Title:     show.Title,
		Added:     result.Added,
		Updated:   result.Updated,
		Removed:   result.Removed,
	})
	return result, nil
}

// diffEpisodes matches live episodes against the cached ones by external id.
// An empty live list removes nothing.
func diffEpisodes(lib *models.MediaLibrary, show *models.MediaItem, records []models.MediaRecord, existing []models.MediaItem, now time.Time) (
	inserted, updated []*models.MediaItem, removed []string,
) {
	byExternal := make(map[string]*models.MediaItem, len(existing))
	for i := range existing {
		if _, dup := byExternal[existing[i].ExternalID]; !dup {
			byExternal[existing[i].ExternalID] = &existing[i]
		}
	}

	parent := show.ExternalID
	seen := make(map[string]bool, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true

		if cached, ok := byExternal[rec.ID]; ok {
			next, _ := updateItem(cached, rec, now)
			if cached.ParentID == nil {
				if next == nil {
					copied := *cached
					next = &copied
				}
				next.ParentID = &parent
			}
			if next != nil {
				updated = append(updated, next)
			}
			continue
		}

		item := newItem(lib, rec, now)
		item.ItemType = models.ItemTypeEpisode
		item.ParentID = &parent
		inserted = append(inserted, item)
	}

	if len(seen) == 0 {
		return inserted, updated, nil
	}
	for i := range existing {
		if !seen[existing[i].ExternalID] {
			removed = append(removed, existing[i].ID)
		}
	}
	return inserted, updated, removed
}

// fetchEpisodes pages through a show's episodes until the reported total is
// reached or a short page arrives.
func (m *Manager) fetchEpisodes(ctx context.Context, browser mediaserver.EpisodeBrowser, show *models.MediaItem) ([]models.MediaRecord, error) {
	perPage := m.cfg.EpisodePageSize
	remoteID := show.RemoteID()

	var records []models.MediaRecord
	for page := 1; page <= m.cfg.LibraryMaxPages; page++ {
		result, err := browser.GetShowEpisodes(ctx, remoteID, mediaserver.EpisodeQuery{Page: page, PerPage: perPage})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch episodes of %s: %w", show.Title, err)
		}
		if result == nil || len(result.Items) == 0 {
			break
		}
		records = append(records, result.Items...)
		if len(result.Items) < perPage || (result.Total > 0 && len(records) >= result.Total) {
			break
		}
	}
	return records, nil
}

// PurgeEpisodes deletes a show's cached episodes: those attached by either
// key, the library's orphans, and any episode whose id appears in a fresh
// remote listing. A failing remote listing only narrows the purge.
func (m *Manager) PurgeEpisodes(ctx context.Context, showItemID string) (*models.PurgeResult, error) {
	start := time.Now()
	show, err := m.loadShow(ctx, showItemID)
	if err != nil {
		return nil, err
	}

	purge := database.EpisodePurge{
		LibraryID:      show.LibraryID,
		ParentKeys:     show.ParentKeys(),
		IncludeOrphans: true,
	}
	purge.ExternalIDs = m.remoteEpisodeIDs(ctx, show)

	deleted, err := m.store.PurgeEpisodes(ctx, purge)
	metrics.RecordSyncOperation(opPurgeEpisodes, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	metrics.RecordSyncChanges(opPurgeEpisodes, 0, 0, deleted)

	logging.Info().
		Str("show_id", show.ID).
		Str("show", show.Title).
		Int("deleted", deleted).
		Msg("Show episodes purged")

	m.publish(ctx, &models.CatalogEvent{
		Type:      models.EventEpisodesPurged,
		ServerID:  show.ServerID,
		LibraryID: show.LibraryID,
		ItemID:    show.ID,
		Title:     show.Title,
		Removed:   deleted,
	})
	return &models.PurgeResult{
		Success:      true,
		Message:      fmt.Sprintf("Deleted %d cached episodes for %s", deleted, show.Title),
		DeletedCount: deleted,
		ShowTitle:    show.Title,
	}, nil
}

// remoteEpisodeIDs lists the ids the server currently reports for the show.
func (m *Manager) remoteEpisodeIDs(ctx context.Context, show *models.MediaItem) []string {
	_, svc, err := m.serviceFor(ctx, show.ServerID)
	if err != nil {
		logging.Debug().Err(err).Str("show_id", show.ID).Msg("Purge continues without remote episode list")
		return nil
	}
	browser, ok := mediaserver.AsEpisodeBrowser(svc)
	if !ok {
		return nil
	}
	records, err := m.fetchEpisodes(ctx, browser, show)
	if err != nil {
		logging.Warn().Err(err).Str("show_id", show.ID).Msg("Purge continues without remote episode list")
		return nil
	}
	ids := make([]string, 0, len(records))
	for i := range records {
		if records[i].ID != "" {
			ids = append(ids, records[i].ID)
		}
	}
	return ids
}

// loadShow fetches an item and checks that it is a show.
func (m *Manager) loadShow(ctx context.Context, itemID string) (*models.MediaItem, error) {
	item, err := m.store.GetMediaItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	if !item.IsShow() {
		return nil, fmt.Errorf("item %s (%s): %w", itemID, item.ItemType, ErrNotShow)
	}
	return item, nil
}

func flightKey(libraryID, parentKey string) string {
	return libraryID + "\x00" + parentKey
}
