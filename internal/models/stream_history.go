// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import "time"

// MediaStreamHistory is one playback event.
//
// LibraryName is denormalized and titles are matched by value, so stream
// counts can collide across same-titled items in one library.
type MediaStreamHistory struct {
	ID               string    `json:"id"`
	ServerID         string    `json:"server_id"`
	LibraryName      string    `json:"library_name"`
	MediaTitle       string    `json:"media_title"`
	GrandparentTitle *string   `json:"grandparent_title,omitempty"`
	ParentTitle      *string   `json:"parent_title,omitempty"`
	UserUUID         string    `json:"user_uuid"`
	StartedAt        time.Time `json:"started_at"`
	DurationSeconds  int       `json:"duration_seconds"`
}
