// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import "time"

// Catalog event types. The event bus publishes each on a topic of the same name
// under the configured prefix.
const (
	EventLibrariesReconciled = "libraries.reconciled"
	EventLibrarySynced       = "library.synced"
	EventEpisodesSynced      = "episodes.synced"
	EventEpisodesPurged      = "episodes.purged"
)

// CatalogEvent announces a change to the local catalog. Events are
// notifications only; consumers re-read the catalog for current state.
type CatalogEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	ServerID   string    `json:"server_id,omitempty"`
	LibraryID  string    `json:"library_id,omitempty"`
	ItemID     string    `json:"item_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Added      int       `json:"added"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
	Errors     int       `json:"errors,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
