// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package identity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Store is the persistence the normalizer needs. *database.DB satisfies it.
type Store interface {
	GetMediaServer(ctx context.Context, id string) (*models.MediaServer, error)
	ListLibraries(ctx context.Context, serverID string) ([]models.MediaLibrary, error)
	SetAllowedLibraries(ctx context.Context, id string, libraryIDs []string) error
}

// Normalizer rewrites stored access lists into canonical form.
type Normalizer struct {
	store Store
	log   zerolog.Logger
}

// NewNormalizer creates a Normalizer backed by store.
func NewNormalizer(store Store) *Normalizer {
	return &Normalizer{store: store, log: logging.WithComponent("identity")}
}

// NormalizeUserAccess normalizes access.AllowedLibraryIDs against the
// server's current libraries and persists the result when it changed.
// All-libraries markers are left untouched.
func (n *Normalizer) NormalizeUserAccess(ctx context.Context, access *models.UserMediaAccess) (Result, error) {
	server, err := n.store.GetMediaServer(ctx, access.ServerID)
	if err != nil {
		return Result{}, fmt.Errorf("load server %s: %w", access.ServerID, err)
	}
	if IsAllLibraries(server.ServiceType, access.AllowedLibraryIDs) {
		return Result{IDs: access.AllowedLibraryIDs}, nil
	}

	libs, err := n.store.ListLibraries(ctx, server.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list libraries for %s: %w", server.ID, err)
	}

	res := Normalize(server.ServiceType, access.AllowedLibraryIDs, libs)
	if len(res.Unresolved) > 0 {
		n.log.Warn().
			Str("server_id", server.ID).
			Str("user", access.Username).
			Strs("unresolved", res.Unresolved).
			Msg("Access list references unknown libraries")
	}
	if !res.Changed {
		return res, nil
	}

	if err := n.store.SetAllowedLibraries(ctx, access.ID, res.IDs); err != nil {
		return Result{}, fmt.Errorf("persist access for %s: %w", access.Username, err)
	}
	n.log.Info().
		Str("server_id", server.ID).
		Str("user", access.Username).
		Int("libraries", len(res.IDs)).
		Msg("Normalized user access list")
	access.AllowedLibraryIDs = res.IDs
	return res, nil
}

// NormalizeServer normalizes every access row of a server and returns the
// number of rows rewritten.
func (n *Normalizer) NormalizeServer(ctx context.Context, serverID string, rows []models.UserMediaAccess) (int, error) {
	changed := 0
	for i := range rows {
		if rows[i].ServerID != serverID {
			continue
		}
		res, err := n.NormalizeUserAccess(ctx, &rows[i])
		if err != nil {
			return changed, err
		}
		if res.Changed {
			changed++
		}
	}
	return changed, nil
}
