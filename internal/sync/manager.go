// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/mediaserver"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Sync operation names used for metrics and logs.
const (
	opReconcile      = "reconcile_libraries"
	opLibraryContent = "library_content"
	opShowEpisodes   = "show_episodes"
	opPurgeEpisodes  = "purge_episodes"
)

// ErrNotShow is returned when an episode operation targets an item that is not a show.
var ErrNotShow = errors.New("item is not a show")

// msgNoEpisodeSupport is reported when the adapter cannot list episodes.
const msgNoEpisodeSupport = "Service does not support episode retrieval"

// Store is the catalog storage the sync passes read and write.
// *database.DB implements it.
type Store interface {
	GetMediaServer(ctx context.Context, id string) (*models.MediaServer, error)
	ListMediaServers(ctx context.Context, activeOnly bool) ([]models.MediaServer, error)

	GetLibrary(ctx context.Context, id string) (*models.MediaLibrary, error)
	ListLibraries(ctx context.Context, serverID string) ([]models.MediaLibrary, error)
	ApplyLibraryDiff(ctx context.Context, diff *database.LibraryDiff) error

	GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error)
	ListLibraryItems(ctx context.Context, libraryID string, excludeEpisodes bool) ([]models.MediaItem, error)
	ListEpisodes(ctx context.Context, libraryID string, parentKeys []string, includeOrphans bool) ([]models.MediaItem, error)
	ApplyItemDiff(ctx context.Context, diff *database.ItemDiff) error
	PurgeEpisodes(ctx context.Context, p database.EpisodePurge) (int, error)
}

// ServiceFactory builds the adapter for a server. *mediaserver.Factory implements it.
type ServiceFactory interface {
	New(server *models.MediaServer) (mediaserver.Service, error)
}

// Manager runs the reconciliation and sync passes.
type Manager struct {
	store   Store
	factory ServiceFactory
	cfg     config.SyncConfig

	mu        sync.RWMutex
	publisher EventPublisher

	flights singleflight.Group

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a Manager. Zero values in cfg fall back to the defaults.
func NewManager(store Store, factory ServiceFactory, cfg config.SyncConfig) *Manager {
	if cfg.EpisodeStaleAfter <= 0 {
		cfg.EpisodeStaleAfter = 24 * time.Hour
	}
	if cfg.LibraryPageSize <= 0 {
		cfg.LibraryPageSize = 50
	}
	if cfg.LibraryMaxPages <= 0 {
		cfg.LibraryMaxPages = 100
	}
	if cfg.EpisodePageSize <= 0 {
		cfg.EpisodePageSize = 1000
	}
	return &Manager{
		store:   store,
		factory: factory,
		cfg:     cfg,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Config returns the effective sync settings.
func (m *Manager) Config() config.SyncConfig {
	return m.cfg
}

// SetClock overrides the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// IsStale reports whether an episode cache stamped at lastSynced needs a
// refresh. A show that was never synced is stale.
func IsStale(lastSynced *time.Time, now time.Time, staleAfter time.Duration) bool {
	if lastSynced == nil {
		return true
	}
	return now.Sub(*lastSynced) > staleAfter
}

// IsStale applies the configured staleness window.
func (m *Manager) IsStale(lastSynced *time.Time) bool {
	return IsStale(lastSynced, m.now(), m.cfg.EpisodeStaleAfter)
}

// serviceFor resolves the adapter for a server row id.
func (m *Manager) serviceFor(ctx context.Context, serverID string) (*models.MediaServer, mediaserver.Service, error) {
	server, err := m.store.GetMediaServer(ctx, serverID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load server %s: %w", serverID, err)
	}
	svc, err := m.factory.New(server)
	if err != nil {
		return server, nil, fmt.Errorf("failed to create adapter for %s: %w", server.Nickname, err)
	}
	return server, svc, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
