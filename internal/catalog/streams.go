// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package catalog

import (
	"context"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// streamColumn maps an item type to the stream history column holding its title.
func streamColumn(itemType string) database.StreamTitleColumn {
	switch itemType {
	case models.ItemTypeShow, models.ItemTypeSeries, models.ItemTypeArtist:
		return database.StreamGrandparentTitle
	case models.ItemTypeAlbum:
		return database.StreamParentTitle
	default:
		return database.StreamMediaTitle
	}
}

// annotateStreams fills StreamCount on items from the library's stream
// history, issuing one grouped query per title column.
func (e *Engine) annotateStreams(ctx context.Context, lib *models.MediaLibrary, items []models.CatalogItem) error {
	byColumn := make(map[database.StreamTitleColumn][]string)
	seen := make(map[database.StreamTitleColumn]map[string]bool)
	for i := range items {
		col := streamColumn(items[i].ItemType)
		if seen[col] == nil {
			seen[col] = make(map[string]bool)
		}
		if title := items[i].Title; !seen[col][title] {
			seen[col][title] = true
			byColumn[col] = append(byColumn[col], title)
		}
	}

	counts := make(map[database.StreamTitleColumn]map[string]int, len(byColumn))
	for col, titles := range byColumn {
		c, err := e.store.CountStreamsByTitle(ctx, database.StreamCountQuery{
			ServerID:    lib.ServerID,
			LibraryName: lib.Name,
			Column:      col,
			Titles:      titles,
		})
		if err != nil {
			return err
		}
		counts[col] = c
	}

	for i := range items {
		items[i].StreamCount = counts[streamColumn(items[i].ItemType)][items[i].Title]
	}
	return nil
}

// annotateEpisodeStreams fills StreamCount on a show's episodes. An episode
// stream matches on its own title and the show's title.
func (e *Engine) annotateEpisodeStreams(ctx context.Context, lib *models.MediaLibrary, show *models.MediaItem, items []models.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	titles := make([]string, 0, len(items))
	for i := range items {
		if !seen[items[i].Title] {
			seen[items[i].Title] = true
			titles = append(titles, items[i].Title)
		}
	}

	counts, err := e.store.CountStreamsByTitle(ctx, database.StreamCountQuery{
		ServerID:         lib.ServerID,
		LibraryName:      lib.Name,
		Column:           database.StreamMediaTitle,
		Titles:           titles,
		GrandparentTitle: show.Title,
	})
	if err != nil {
		return err
	}
	for i := range items {
		items[i].StreamCount = counts[items[i].Title]
	}
	return nil
}
