// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package catalog

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// sortItems orders items in place. Ascending sorts put missing values first
// and descending sorts put them last, matching the storage ORDER BY. Ties
// fall back to title ascending and the sort is stable.
func sortItems(items []models.CatalogItem, key models.SortKey) {
	desc := key.Descending()
	primary := primaryCompare(key.Field())

	slices.SortStableFunc(items, func(a, b models.CatalogItem) int {
		if primary != nil {
			c := primary(&a, &b)
			if desc {
				c = -c
			}
			if c != 0 {
				return c
			}
			return compareTitle(&a, &b)
		}
		c := compareTitle(&a, &b)
		if desc {
			c = -c
		}
		return c
	})
}

// primaryCompare returns the ascending comparator for a sort field, or nil
// when the field is the title itself.
func primaryCompare(field string) func(a, b *models.CatalogItem) int {
	switch field {
	case "year":
		return func(a, b *models.CatalogItem) int { return compareOptional(a.Year, b.Year) }
	case "added_at":
		return func(a, b *models.CatalogItem) int { return compareTime(a.AddedAt, b.AddedAt) }
	case "rating":
		return func(a, b *models.CatalogItem) int { return compareOptional(a.Rating, b.Rating) }
	case "total_streams":
		return func(a, b *models.CatalogItem) int { return cmp.Compare(a.StreamCount, b.StreamCount) }
	case "season_episode":
		return func(a, b *models.CatalogItem) int {
			if c := cmp.Compare(valueOr(a.SeasonNumber), valueOr(b.SeasonNumber)); c != 0 {
				return c
			}
			return cmp.Compare(valueOr(a.EpisodeNumber), valueOr(b.EpisodeNumber))
		}
	}
	return nil
}

// compareOptional orders nil before any value so that negating the result
// yields NULLS LAST for descending sorts.
func compareOptional[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func compareTitle(a, b *models.CatalogItem) int {
	return strings.Compare(sortTitle(&a.MediaItem), sortTitle(&b.MediaItem))
}

func sortTitle(item *models.MediaItem) string {
	if item.SortTitle != "" {
		return strings.ToLower(item.SortTitle)
	}
	return strings.ToLower(item.Title)
}

func valueOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
