// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import "time"

// WildcardLibraryID is the Jellyfin-family marker for unrestricted access.
const WildcardLibraryID = "*"

// UserMediaAccess is a user's access grant on one server.
//
// AllowedLibraryIDs is ordered. An empty list means all libraries; ["*"]
// means all libraries for the Jellyfin family.
type UserMediaAccess struct {
	ID                string    `json:"id"`
	ServerID          string    `json:"server_id"`
	ExternalUserID    string    `json:"external_user_id"`
	Username          string    `json:"username"`
	AllowedLibraryIDs []string  `json:"allowed_library_ids"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsWildcard reports whether ids is exactly the ["*"] marker.
func IsWildcard(ids []string) bool {
	return len(ids) == 1 && ids[0] == WildcardLibraryID
}
