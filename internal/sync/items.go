// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package sync

import (
	"fmt"
	"time"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// newItem builds a cache row from a canonical record.
func newItem(lib *models.MediaLibrary, rec *models.MediaRecord, now time.Time) *models.MediaItem {
	item := rec.ToMediaItem(lib.ID, lib.ServerID)
	item.LastSynced = &now
	return &item
}

// updateItem applies rec to a copy of cached and lists the tracked fields
// that changed. A nil copy means nothing tracked changed.
func updateItem(cached *models.MediaItem, rec *models.MediaRecord, now time.Time) (*models.MediaItem, []string) {
	var changes []string

	title := rec.Title
	if title == "" {
		title = models.UnknownTitle
	}
	if cached.Title != title {
		changes = append(changes, fmt.Sprintf("Title: '%s' -> '%s'", cached.Title, title))
	}
	if derefString(cached.Summary) != rec.Summary {
		changes = append(changes, "Summary updated")
	}
	if !equalInt(cached.Year, rec.Year) {
		changes = append(changes, fmt.Sprintf("Year: %s -> %s", formatInt(cached.Year), formatInt(rec.Year)))
	}
	if !equalFloat(cached.Rating, rec.Rating) {
		changes = append(changes, fmt.Sprintf("Rating: %s -> %s", formatRating(cached.Rating), formatRating(rec.Rating)))
	}
	if derefString(cached.RatingKey) != rec.RatingKey {
		changes = append(changes, fmt.Sprintf("Rating Key: %s -> %s", derefOr(cached.RatingKey, "None"), orNone(rec.RatingKey)))
	}
	if len(changes) == 0 {
		return nil, nil
	}

	next := rec.ToMediaItem(cached.LibraryID, cached.ServerID)
	next.ID = cached.ID
	next.ExternalID = cached.ExternalID
	next.ItemType = cached.ItemType
	next.ParentID = cached.ParentID
	next.LastSynced = &now
	return &next, changes
}

func itemChange(item *models.MediaItem, changes []string) models.ItemChange {
	return models.ItemChange{Title: item.Title, Type: item.ItemType, Year: item.Year, Changes: changes}
}

// appendCapped appends c while the list is below the detail limit.
func appendCapped(list []models.ItemChange, c models.ItemChange) []models.ItemChange {
	if len(list) >= models.DetailListLimit {
		return list
	}
	return append(list, c)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatInt(p *int) string {
	if p == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *p)
}

func formatRating(p *float64) string {
	if p == nil {
		return "None"
	}
	return fmt.Sprintf("%.1f", *p)
}
