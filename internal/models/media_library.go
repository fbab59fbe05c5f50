// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import (
	"strings"
	"time"
)

// MediaLibrary is one library or collection within a server.
// (ServerID, ExternalID) is unique. Rows are written only by the reconciler.
type MediaLibrary struct {
	ID          string     `json:"id"`
	ServerID    string     `json:"server_id"`
	ExternalID  string     `json:"external_id"`
	Name        string     `json:"name"`
	LibraryType string     `json:"library_type"`
	ItemCount   int        `json:"item_count"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ContentTypesFor returns the item types a library of the given type shows in
// its content view. A nil result means no filtering.
func ContentTypesFor(libraryType string) []string {
	switch strings.ToLower(strings.TrimSpace(libraryType)) {
	case "tv", "tv shows", "show", "shows", "tvshows":
		return []string{ItemTypeShow}
	case "movie", "movies", "film", "films":
		return []string{ItemTypeMovie}
	case "music", "audio", "artist":
		return []string{ItemTypeArtist, ItemTypeAlbum}
	case "photo", "photos":
		return []string{ItemTypePhoto}
	default:
		return nil
	}
}
