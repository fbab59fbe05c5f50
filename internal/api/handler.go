// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"context"
	"time"

	"github.com/tomtom215/mediacatalog/internal/catalog"
	"github.com/tomtom215/mediacatalog/internal/identity"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Syncer runs reconciliation and sync operations. *sync.Manager satisfies it.
type Syncer interface {
	ReconcileAll(ctx context.Context) (*models.ReconcileResult, error)
	ReconcileLibraries(ctx context.Context, serverID string) (*models.ReconcileResult, error)
	SyncLibraryContent(ctx context.Context, libraryID string) (*models.LibrarySyncResult, error)
	SyncShowEpisodes(ctx context.Context, showItemID string) (*models.EpisodeSyncResult, error)
	PurgeEpisodes(ctx context.Context, showItemID string) (*models.PurgeResult, error)
}

// Catalog answers content queries. *catalog.Engine satisfies it.
type Catalog interface {
	GetLibraryContent(ctx context.Context, libraryID string, req catalog.ContentRequest) (*models.ContentResult, error)
	GetShowEpisodes(ctx context.Context, showItemID string, req catalog.EpisodeRequest) (*models.EpisodeResult, error)
}

// Store is the persistence read directly by handlers. *database.DB satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	GetMediaServer(ctx context.Context, id string) (*models.MediaServer, error)
	ListLibraries(ctx context.Context, serverID string) ([]models.MediaLibrary, error)
	ListUserAccess(ctx context.Context, serverID string) ([]models.UserMediaAccess, error)
}

// AccessNormalizer rewrites stored access lists. *identity.Normalizer satisfies it.
type AccessNormalizer interface {
	NormalizeServer(ctx context.Context, serverID string, rows []models.UserMediaAccess) (int, error)
}

var _ AccessNormalizer = (*identity.Normalizer)(nil)

// Handler serves the catalog API.
type Handler struct {
	store      Store
	syncer     Syncer
	catalog    Catalog
	normalizer AccessNormalizer
	version    string
	startTime  time.Time
}

// NewHandler creates a Handler.
func NewHandler(store Store, syncer Syncer, catalog Catalog, normalizer AccessNormalizer, version string) *Handler {
	return &Handler{
		store:      store,
		syncer:     syncer,
		catalog:    catalog,
		normalizer: normalizer,
		version:    version,
		startTime:  time.Now(),
	}
}
