// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import (
	"time"
)

// Item types stored in media_items.item_type
const (
	ItemTypeMovie   = "movie"
	ItemTypeShow    = "show"
	ItemTypeSeason  = "season"
	ItemTypeEpisode = "episode"
	ItemTypeArtist  = "artist"
	ItemTypeAlbum   = "album"
	ItemTypeTrack   = "track"
	ItemTypePhoto   = "photo"
	ItemTypeBook    = "book"
	ItemTypeComic   = "comic"
	ItemTypeSeries  = "series"
	ItemTypeGame    = "game"
)

// MediaItem is one cached catalog entry.
//
// ParentID is a weak reference by value to the owning show's ExternalID or
// RatingKey. It is not a row id because the parent may not be cached yet.
type MediaItem struct {
	ID            string     `json:"id"`
	LibraryID     string     `json:"library_id"`
	ServerID      string     `json:"server_id"`
	ExternalID    string     `json:"external_id"`
	RatingKey     *string    `json:"rating_key,omitempty"`
	ParentID      *string    `json:"parent_id,omitempty"`
	ItemType      string     `json:"item_type"`
	Title         string     `json:"title"`
	SortTitle     string     `json:"sort_title"`
	Summary       *string    `json:"summary,omitempty"`
	Year          *int       `json:"year,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	Duration      *int       `json:"duration,omitempty"` // seconds
	ThumbPath     *string    `json:"thumb_path,omitempty"`
	AddedAt       *time.Time `json:"added_at,omitempty"`
	LastSynced    *time.Time `json:"last_synced,omitempty"`
	SeasonNumber  *int       `json:"season_number,omitempty"`
	EpisodeNumber *int       `json:"episode_number,omitempty"`
	ExtraMetadata string     `json:"-"`
}

// ParentKeys returns the candidate keys children of this item may use as
// their parent_id. External id comes first, then the rating key when it
// differs.
func (m *MediaItem) ParentKeys() []string {
	keys := make([]string, 0, 2)
	if m.ExternalID != "" {
		keys = append(keys, m.ExternalID)
	}
	if m.RatingKey != nil && *m.RatingKey != "" && *m.RatingKey != m.ExternalID {
		keys = append(keys, *m.RatingKey)
	}
	return keys
}

// RemoteID returns the identifier used to address this item on the remote
// server: the rating key when present, otherwise the external id.
func (m *MediaItem) RemoteID() string {
	if m.RatingKey != nil && *m.RatingKey != "" {
		return *m.RatingKey
	}
	return m.ExternalID
}

// IsShow reports whether the item is a TV show.
func (m *MediaItem) IsShow() bool {
	return m.ItemType == ItemTypeShow || m.ItemType == ItemTypeSeries
}

// CatalogItem is a MediaItem annotated for a query response.
type CatalogItem struct {
	MediaItem
	StreamCount int `json:"stream_count"`
}

// Placeholders for records that arrive without a title or type.
const (
	UnknownTitle    = "Unknown Title"
	UnknownItemType = "unknown"
)

// ToMediaItem converts a canonical record into a catalog row for the given
// library. ID and LastSynced are left for the caller.
func (r *MediaRecord) ToMediaItem(libraryID, serverID string) MediaItem {
	item := MediaItem{
		LibraryID:     libraryID,
		ServerID:      serverID,
		ExternalID:    r.ID,
		RatingKey:     optionalString(r.RatingKey),
		ParentID:      optionalString(r.ParentID),
		ItemType:      r.Type,
		Title:         r.Title,
		SortTitle:     r.SortTitle,
		Summary:       optionalString(r.Summary),
		Year:          r.Year,
		Rating:        r.Rating,
		Duration:      r.DurationSeconds,
		ThumbPath:     optionalString(r.Thumb),
		AddedAt:       r.AddedAt,
		SeasonNumber:  r.SeasonNumber,
		EpisodeNumber: r.EpisodeNumber,
		ExtraMetadata: string(r.Raw),
	}
	if item.Title == "" {
		item.Title = UnknownTitle
	}
	if item.SortTitle == "" {
		item.SortTitle = item.Title
	}
	if item.ItemType == "" {
		item.ItemType = UnknownItemType
	}
	return item
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
