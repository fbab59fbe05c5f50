// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/mediaserver"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Capability errors surfaced in live fallback results.
var (
	errNoContentSupport = errors.New("Service does not support library content retrieval")
	errNoEpisodeSupport = errors.New("Service does not support episode retrieval")
)

// pageFetcher returns one page of remote records.
type pageFetcher func(ctx context.Context, page, perPage int) (*models.ContentPage, error)

// fetchAll walks pages until a short page, the reported total or the page
// limit. A failure after the first page keeps what was already fetched.
func (e *Engine) fetchAll(ctx context.Context, fetch pageFetcher) ([]models.MediaRecord, error) {
	var records []models.MediaRecord
	for page := 1; page <= e.opts.LiveMaxPages; page++ {
		p, err := fetch(ctx, page, e.opts.LivePageSize)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			logging.Warn().Err(err).Int("page", page).Msg("Live fetch stopped early, returning partial results")
			break
		}
		records = append(records, p.Items...)
		if len(p.Items) < e.opts.LivePageSize || (p.Total > 0 && len(records) >= p.Total) {
			break
		}
	}
	return records, nil
}

// serviceForLibrary builds the adapter serving lib.
func (e *Engine) serviceForLibrary(ctx context.Context, lib *models.MediaLibrary) (mediaserver.Service, error) {
	if e.factory == nil {
		return nil, errors.New("live queries are not configured")
	}
	server, err := e.store.GetMediaServer(ctx, lib.ServerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load server %s: %w", lib.ServerID, err)
	}
	return e.factory.New(server)
}

// liveContent fetches a library's full content from its media server.
func (e *Engine) liveContent(ctx context.Context, lib *models.MediaLibrary) ([]models.CatalogItem, error) {
	svc, err := e.serviceForLibrary(ctx, lib)
	if err != nil {
		return nil, err
	}
	browser, ok := mediaserver.AsContentBrowser(svc)
	if !ok {
		return nil, errNoContentSupport
	}

	records, err := e.fetchAll(ctx, func(ctx context.Context, page, perPage int) (*models.ContentPage, error) {
		return browser.GetLibraryContent(ctx, lib.ExternalID, mediaserver.ContentQuery{Page: page, PerPage: perPage})
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(records))
	for i := range records {
		items = append(items, models.CatalogItem{MediaItem: records[i].ToMediaItem(lib.ID, lib.ServerID)})
	}
	return items, nil
}

// liveEpisodes fetches a show's episodes, preferring the episode capability
// and falling back to browsing the show as a container.
func (e *Engine) liveEpisodes(ctx context.Context, lib *models.MediaLibrary, show *models.MediaItem) ([]models.CatalogItem, error) {
	svc, err := e.serviceForLibrary(ctx, lib)
	if err != nil {
		return nil, err
	}

	remoteID := show.RemoteID()
	var fetch pageFetcher
	if eb, ok := mediaserver.AsEpisodeBrowser(svc); ok {
		fetch = func(ctx context.Context, page, perPage int) (*models.ContentPage, error) {
			return eb.GetShowEpisodes(ctx, remoteID, mediaserver.EpisodeQuery{Page: page, PerPage: perPage})
		}
	} else if cb, ok := mediaserver.AsContentBrowser(svc); ok {
		fetch = func(ctx context.Context, page, perPage int) (*models.ContentPage, error) {
			return cb.GetLibraryContent(ctx, remoteID, mediaserver.ContentQuery{Page: page, PerPage: perPage})
		}
	} else {
		return nil, errNoEpisodeSupport
	}

	records, err := e.fetchAll(ctx, fetch)
	if err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(records))
	for i := range records {
		item := records[i].ToMediaItem(lib.ID, lib.ServerID)
		if records[i].Type == "" {
			item.ItemType = models.ItemTypeEpisode
		}
		if item.ParentID == nil {
			parent := show.ExternalID
			item.ParentID = &parent
		}
		items = append(items, models.CatalogItem{MediaItem: item})
	}
	return items, nil
}

// filterSearch keeps items whose title or summary contains search,
// case-insensitively. It matches the cache's ILIKE filter so that a search
// returns the same items from either source.
func filterSearch(items []models.CatalogItem, search string) []models.CatalogItem {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return items
	}
	out := items[:0]
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), needle) ||
			(item.Summary != nil && strings.Contains(strings.ToLower(*item.Summary), needle)) {
			out = append(out, item)
		}
	}
	return out
}
