// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// ReconcileAll reconciles the library list of every active server.
func (h *Handler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.syncer.ReconcileAll(r.Context())
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// ReconcileServer reconciles the library list of one server.
func (h *Handler) ReconcileServer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.syncer.ReconcileLibraries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// SyncLibrary syncs a library's top-level content into the cache.
func (h *Handler) SyncLibrary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.syncer.SyncLibraryContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// SyncShowEpisodes syncs one show's episodes into the cache.
func (h *Handler) SyncShowEpisodes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.syncer.SyncShowEpisodes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondSuccess(w, result, start)
}

// PurgeShowEpisodes deletes a show's cached episodes.
func (h *Handler) PurgeShowEpisodes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.syncer.PurgeEpisodes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondOperationError(w, err)
		return
	}
	respondSuccess(w, result, start)
}
