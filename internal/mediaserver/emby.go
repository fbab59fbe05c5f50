// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import "github.com/tomtom215/mediacatalog/internal/models"

// NewEmbyAdapter creates an adapter for an Emby server. Emby shares the
// Jellyfin API; only the path prefix, the all-libraries marker and item
// counting differ.
func NewEmbyAdapter(server *models.MediaServer, opts Options) *JellyfinAdapter {
	return newJellyfinFamily(server, opts, embyServer)
}
