// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/mediacatalog/internal/identity"
	"github.com/tomtom215/mediacatalog/internal/models"
	"github.com/tomtom215/mediacatalog/internal/validation"
)

// NormalizeAccessResponse is the body of the access normalization endpoint.
type NormalizeAccessResponse struct {
	ServerID     string             `json:"server_id"`
	ServiceType  models.ServiceType `json:"service_type"`
	LibraryIDs   []string           `json:"library_ids"`
	LibraryNames []string           `json:"library_names"`
	Unresolved   []string           `json:"unresolved,omitempty"`
	AllLibraries bool               `json:"all_libraries"`
	Changed      bool               `json:"changed"`

	// StoredUpdated is set when apply_stored=true and counts rewritten access rows.
	StoredUpdated *int `json:"stored_updated,omitempty"`
}

// NormalizeAccess normalizes a library selection against a server's cached
// libraries. With apply_stored=true the server's stored access rows are
// normalized and persisted as well.
func (h *Handler) NormalizeAccess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req validation.NormalizeAccessRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	ctx := r.Context()
	server, err := h.store.GetMediaServer(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondOperationError(w, err)
		return
	}
	st, err := models.ParseServiceType(req.ServiceType)
	if err != nil || st != server.ServiceType {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest,
			fmt.Sprintf("service_type %q does not match server type %q", req.ServiceType, server.ServiceType), nil)
		return
	}

	libs, err := h.store.ListLibraries(ctx, server.ID)
	if err != nil {
		respondOperationError(w, err)
		return
	}

	res := identity.Normalize(st, req.LibraryIDs, libs)
	names, _ := identity.DisplayNames(st, res.IDs, libs)
	resp := NormalizeAccessResponse{
		ServerID:     server.ID,
		ServiceType:  st,
		LibraryIDs:   res.IDs,
		LibraryNames: names,
		Unresolved:   res.Unresolved,
		AllLibraries: identity.IsAllLibraries(st, res.IDs),
		Changed:      res.Changed,
	}

	if apply, _ := strconv.ParseBool(r.URL.Query().Get("apply_stored")); apply {
		rows, err := h.store.ListUserAccess(ctx, server.ID)
		if err != nil {
			respondOperationError(w, err)
			return
		}
		updated, err := h.normalizer.NormalizeServer(ctx, server.ID, rows)
		if err != nil {
			respondOperationError(w, err)
			return
		}
		resp.StoredUpdated = &updated
	}

	respondSuccess(w, resp, start)
}
