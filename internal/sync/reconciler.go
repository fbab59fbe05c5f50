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
	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// ReconcileAll reconciles the libraries of every active server. Per-server
// failures are recorded in the result; only a failure to list servers is
// returned as an error.
func (m *Manager) ReconcileAll(ctx context.Context) (*models.ReconcileResult, error) {
	servers, err := m.store.ListMediaServers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list media servers: %w", err)
	}

	result := models.NewReconcileResult()
	for i := range servers {
		if ctx.Err() != nil {
			result.AddError(fmt.Sprintf("%s: %v", servers[i].Nickname, ctx.Err()))
			continue
		}
		result.Merge(m.reconcileServer(ctx, &servers[i]))
	}

	logging.Info().
		Int("servers", len(servers)).
		Int("added", result.LibrariesAdded).
		Int("updated", result.LibrariesUpdated).
		Int("removed", result.LibrariesRemoved).
		Int("errors", result.Errors).
		Msg("Library reconciliation complete")
	return result, nil
}

// ReconcileLibraries reconciles one server's libraries. A missing server is
// returned as an error wrapping database.ErrNotFound; every other failure is
// recorded in the result.
func (m *Manager) ReconcileLibraries(ctx context.Context, serverID string) (*models.ReconcileResult, error) {
	server, err := m.store.GetMediaServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load server %s: %w", serverID, err)
	}
	return m.reconcileServer(ctx, server), nil
}

// reconcileServer diffs live libraries against the cache and applies the
// diff in one transaction. Counters and change lists are only filled once
// the transaction commits.
func (m *Manager) reconcileServer(ctx context.Context, server *models.MediaServer) *models.ReconcileResult {
	start := time.Now()
	result := models.NewReconcileResult()
	logger := logging.WithServer("reconciler", server.ID, server.ServiceType.String())

	fail := func(err error) *models.ReconcileResult {
		metrics.RecordSyncOperation(opReconcile, time.Since(start), err)
		logger.Error().Err(err).Str("server", server.Nickname).Msg("Library reconciliation failed")
		result.AddError(fmt.Sprintf("%s: %v", server.Nickname, err))
		return result
	}

	svc, err := m.factory.New(server)
	if err != nil {
		return fail(fmt.Errorf("failed to create adapter: %w", err))
	}
	live, err := svc.GetLibraries(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch libraries: %w", err))
	}
	cached, err := m.store.ListLibraries(ctx, server.ID)
	if err != nil {
		return fail(err)
	}

	diff, added, updated, removed := diffLibraries(server, live, cached)
	if !diff.Empty() {
		if err := m.store.ApplyLibraryDiff(ctx, diff); err != nil {
			return fail(fmt.Errorf("failed to apply library changes: %w", err))
		}
	}

	result.ServersSynced = 1
	result.LibrariesAdded = len(added)
	result.LibrariesUpdated = len(updated)
	result.LibrariesRemoved = len(removed)
	result.AddedLibraries = append(result.AddedLibraries, added...)
	result.UpdatedLibraries = append(result.UpdatedLibraries, updated...)
	result.RemovedLibraries = append(result.RemovedLibraries, removed...)

	metrics.RecordSyncOperation(opReconcile, time.Since(start), nil)
	metrics.RecordSyncChanges(opReconcile, len(added), len(updated), len(removed))
	logger.Info().
		Str("server", server.Nickname).
		Int("live", len(live)).
		Int("added", len(added)).
		Int("updated", len(updated)).
		Int("removed", len(removed)).
		Dur("duration", time.Since(start)).
		Msg("Server libraries reconciled")

	m.publish(ctx, &models.CatalogEvent{
		Type:     models.EventLibrariesReconciled,
		ServerID: server.ID,
		Added:    len(added),
		Updated:  len(updated),
		Removed:  len(removed),
	})
	return result
}

// diffLibraries computes the change set for one server. Live entries without
// a key are skipped and duplicates keep their first occurrence.
func diffLibraries(server *models.MediaServer, live []models.Library, cached []models.MediaLibrary) (
	diff *database.LibraryDiff, added, updated, removed []models.LibraryChange,
) {
	diff = &database.LibraryDiff{ServerID: server.ID}

	byExternal := make(map[string]*models.MediaLibrary, len(cached))
	for i := range cached {
		byExternal[cached[i].ExternalID] = &cached[i]
	}

	seen := make(map[string]bool, len(live))
	for i := range live {
		lib := &live[i]
		key := lib.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		existing, ok := byExternal[key]
		if !ok {
			diff.Added = append(diff.Added, &models.MediaLibrary{
				ServerID:    server.ID,
				ExternalID:  key,
				Name:        lib.Name,
				LibraryType: lib.Type,
				ItemCount:   lib.ItemCount,
			})
			added = append(added, models.LibraryChange{
				Name:       lib.Name,
				ServerName: server.Nickname,
				Type:       lib.Type,
				ItemCount:  lib.ItemCount,
			})
			continue
		}

		changes := libraryChanges(existing, lib)
		if len(changes) == 0 {
			continue
		}
		next := *existing
		next.Name = lib.Name
		next.LibraryType = lib.Type
		next.ItemCount = lib.ItemCount
		diff.Updated = append(diff.Updated, &next)
		updated = append(updated, models.LibraryChange{
			Name:       lib.Name,
			ServerName: server.Nickname,
			Type:       lib.Type,
			ItemCount:  lib.ItemCount,
			Changes:    changes,
		})
	}

	for i := range cached {
		if seen[cached[i].ExternalID] {
			continue
		}
		diff.Removed = append(diff.Removed, cached[i].ID)
		removed = append(removed, models.LibraryChange{
			Name:       cached[i].Name,
			ServerName: server.Nickname,
			Type:       cached[i].LibraryType,
			ItemCount:  cached[i].ItemCount,
		})
	}
	return diff, added, updated, removed
}

// libraryChanges lists the fields that differ between the cached and live library.
func libraryChanges(cached *models.MediaLibrary, live *models.Library) []string {
	var changes []string
	if cached.Name != live.Name {
		changes = append(changes, "Name updated")
	}
	if cached.LibraryType != live.Type {
		changes = append(changes, "Type updated")
	}
	if cached.ItemCount != live.ItemCount {
		changes = append(changes, fmt.Sprintf("Item count %d -> %d", cached.ItemCount, live.ItemCount))
	}
	return changes
}
