// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import (
	"fmt"
	"strings"
	"time"
)

// ServiceType identifies the remote media server software.
type ServiceType string

// Supported service types
const (
	ServicePlex           ServiceType = "plex"
	ServiceJellyfin       ServiceType = "jellyfin"
	ServiceEmby           ServiceType = "emby"
	ServiceKavita         ServiceType = "kavita"
	ServiceAudiobookshelf ServiceType = "audiobookshelf"
	ServiceKomga          ServiceType = "komga"
	ServiceRomM           ServiceType = "romm"
)

// AllServiceTypes lists every supported service type in display order.
var AllServiceTypes = []ServiceType{
	ServicePlex,
	ServiceJellyfin,
	ServiceEmby,
	ServiceKavita,
	ServiceAudiobookshelf,
	ServiceKomga,
	ServiceRomM,
}

// ParseServiceType converts a case-insensitive name into a ServiceType.
func ParseServiceType(s string) (ServiceType, error) {
	st := ServiceType(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("unknown service type %q", s)
}

// Valid reports whether st is one of the supported service types.
func (st ServiceType) Valid() bool {
	for _, known := range AllServiceTypes {
		if st == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (st ServiceType) String() string {
	return string(st)
}

// MediaServer is one external media server deployment.
// Deleting a server cascades to its libraries and items.
type MediaServer struct {
	ID          string      `json:"id"`
	ServiceType ServiceType `json:"service_type"`
	Nickname    string      `json:"nickname"`
	URL         string      `json:"url"`
	APIKey      string      `json:"-"`
	Username    string      `json:"username,omitempty"`
	Password    string      `json:"-"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// MediaServerInput is used to create or update a media server.
type MediaServerInput struct {
	ServiceType ServiceType `json:"service_type" validate:"required"`
	Nickname    string      `json:"nickname" validate:"required,min=1,max=100"`
	URL         string      `json:"url" validate:"required,url"`
	APIKey      string      `json:"api_key,omitempty"`
	Username    string      `json:"username,omitempty"`
	Password    string      `json:"password,omitempty"`
	IsActive    bool        `json:"is_active"`
}
