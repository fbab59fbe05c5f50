// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package validation provides struct validation using go-playground/validator v10.

A single validator instance is built once and shared; it caches struct
metadata, so reuse is cheap and safe across goroutines. Field names in error
messages come from the json or query tag, so a client sees "per_page" rather
than "PerPage".

Custom tags:

  - service_type: one of the supported media server types

Failures convert to a models.APIError with code VALIDATION_ERROR:

	var req validation.NormalizeAccessRequest
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, verr)
		return
	}
*/
package validation
