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
	"github.com/tomtom215/mediacatalog/internal/mediaserver"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Query kinds used for metrics.
const (
	kindContent  = "content"
	kindEpisodes = "episodes"
)

// Store is the read side of the catalog. *database.DB implements it.
type Store interface {
	GetMediaServer(ctx context.Context, id string) (*models.MediaServer, error)
	GetLibrary(ctx context.Context, id string) (*models.MediaLibrary, error)
	GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error)
	QueryItems(ctx context.Context, q database.ItemQuery) ([]models.MediaItem, int, error)
	CountStreamsByTitle(ctx context.Context, q database.StreamCountQuery) (map[string]int, error)
}

// Syncer refreshes the cache on a miss. *sync.Manager implements it.
type Syncer interface {
	SyncLibraryContent(ctx context.Context, libraryID string) (*models.LibrarySyncResult, error)
	SyncShowEpisodes(ctx context.Context, showItemID string) (*models.EpisodeSyncResult, error)
}

// ServiceFactory builds adapters for the live fallback. *mediaserver.Factory implements it.
type ServiceFactory interface {
	New(server *models.MediaServer) (mediaserver.Service, error)
}

// Options tunes the engine.
type Options struct {
	DefaultPerPage int
	MaxPerPage     int

	// AutoSync runs a synchronous sync when a query finds no cached rows.
	AutoSync bool

	// EpisodeStaleAfter is the age after which cached episodes report needs_sync.
	EpisodeStaleAfter time.Duration

	// LivePageSize and LiveMaxPages bound the live fallback fetch.
	LivePageSize int
	LiveMaxPages int
}

// ContentRequest selects one page of a library's content.
type ContentRequest struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
}

// EpisodeRequest selects one page of a show's episodes.
type EpisodeRequest struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
}

// Engine answers catalog queries from the cache, refreshing it or falling back
// to the media server when it is empty.
type Engine struct {
	store   Store
	syncer  Syncer
	factory ServiceFactory
	opts    Options
	now     func() time.Time
}

// NewEngine creates an Engine. syncer may be nil to disable auto-sync.
func NewEngine(store Store, syncer Syncer, factory ServiceFactory, opts Options) *Engine {
	if opts.DefaultPerPage <= 0 {
		opts.DefaultPerPage = 24
	}
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = 200
	}
	if opts.DefaultPerPage > opts.MaxPerPage {
		opts.DefaultPerPage = opts.MaxPerPage
	}
	if opts.EpisodeStaleAfter <= 0 {
		opts.EpisodeStaleAfter = 24 * time.Hour
	}
	if opts.LivePageSize <= 0 {
		opts.LivePageSize = 100
	}
	if opts.LiveMaxPages <= 0 {
		opts.LiveMaxPages = 100
	}
	return &Engine{store: store, syncer: syncer, factory: factory, opts: opts, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// paginate normalizes a page request: page < 1 becomes 1 and per_page is
// clamped to [1, MaxPerPage] with 0 meaning the default.
func (e *Engine) paginate(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage == 0:
		perPage = e.opts.DefaultPerPage
	case perPage < 1:
		perPage = 1
	case perPage > e.opts.MaxPerPage:
		perPage = e.opts.MaxPerPage
	}
	return page, perPage
}

// parseSort resolves a sort name, falling back with a warning when unknown.
func parseSort(sortBy string, fallback models.SortKey) (models.SortKey, []string) {
	if sortBy == "" {
		return fallback, nil
	}
	key, ok := models.ParseSortKey(sortBy)
	if !ok {
		return key, []string{fmt.Sprintf("Unknown sort %q, using %s", sortBy, key)}
	}
	return key, nil
}

// newResult builds an empty result envelope with pagination fields set.
func newResult(page, perPage int, key models.SortKey, warnings []string) models.ContentResult {
	if warnings == nil {
		warnings = []string{}
	}
	return models.ContentResult{
		Items:    []models.CatalogItem{},
		Page:     page,
		PerPage:  perPage,
		SortBy:   string(key),
		Warnings: warnings,
	}
}

// setPage fills items and the derived pagination fields.
func setPage(r *models.ContentResult, items []models.CatalogItem, total int) {
	if items == nil {
		items = []models.CatalogItem{}
	}
	r.Items = items
	r.Total = total
	r.Pages = models.TotalPages(total, r.PerPage)
	r.HasPrev = r.Page > 1
	r.HasNext = r.Page < r.Pages
}

// pageBounds returns the slice bounds of a page within n items.
func pageBounds(n, page, perPage int) (int, int) {
	start := (page - 1) * perPage
	if start > n {
		start = n
	}
	return start, min(start+perPage, n)
}

func toCatalogItems(items []models.MediaItem) []models.CatalogItem {
	out := make([]models.CatalogItem, len(items))
	for i := range items {
		out[i] = models.CatalogItem{MediaItem: items[i]}
	}
	return out
}
