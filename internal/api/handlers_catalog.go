// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/mediacatalog/internal/catalog"
)

// LibraryContent returns one page of a library's content, from the cache
// when it has rows and from the media server otherwise.
func (h *Handler) LibraryContent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q, apiErr := parseCatalogQuery(r)
	if apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	result, err := h.catalog.GetLibraryContent(r.Context(), chi.URLParam(r, "id"), catalog.ContentRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
		Search:  q.Search,
		SortBy:  q.SortBy,
	})
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondCatalog(w, result, result.Source, start)
}

// ShowEpisodes returns one page of a show's episodes.
func (h *Handler) ShowEpisodes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q, apiErr := parseCatalogQuery(r)
	if apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	result, err := h.catalog.GetShowEpisodes(r.Context(), chi.URLParam(r, "id"), catalog.EpisodeRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
		Search:  q.Search,
		SortBy:  q.SortBy,
	})
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondCatalog(w, result, result.Source, start)
}
