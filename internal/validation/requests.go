// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package validation

// CatalogQuery holds the query parameters of the content and episode
// endpoints. Page and per_page are clamped by the engine rather than
// rejected, so only their syntax is checked here. Unknown sorts fall back to
// the default with a warning.
type CatalogQuery struct {
	Page    int    `query:"page" validate:"gte=0"`
	PerPage int    `query:"per_page" validate:"gte=0"`
	Search  string `query:"search" validate:"max=200"`
	SortBy  string `query:"sort_by" validate:"omitempty,max=64"`
}

// NormalizeAccessRequest is the body of the access normalization endpoint.
type NormalizeAccessRequest struct {
	ServiceType string   `json:"service_type" validate:"required,service_type"`
	LibraryIDs  []string `json:"library_ids" validate:"max=1000,dive,max=512"`
}

// MediaServerDefinition validates a statically configured media server.
type MediaServerDefinition struct {
	ServiceType string `json:"service_type" validate:"required,service_type"`
	Nickname    string `json:"nickname" validate:"required,max=100"`
	URL         string `json:"url" validate:"required,http_url"`
}
