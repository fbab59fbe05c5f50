// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/logging"
	"github.com/tomtom215/mediacatalog/internal/middleware"
	"github.com/tomtom215/mediacatalog/internal/models"
	catalogsync "github.com/tomtom215/mediacatalog/internal/sync"
	"github.com/tomtom215/mediacatalog/internal/validation"
)

// Error codes
const (
	CodeNotFound         = "NOT_FOUND"
	CodeNotShow          = "NOT_A_SHOW"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeRateLimited      = "RATE_LIMITED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// sanitizeLogValue escapes control characters so client input cannot forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response. Catalog data changes on every sync, so
// responses are never cached by intermediaries. The request id echoed by
// the RequestID middleware is copied into the metadata.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	response.Metadata.RequestID = w.Header().Get(middleware.RequestIDHeader)

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// envelope wraps data with the elapsed time since start.
func envelope(status string, data interface{}, start time.Time) *models.APIResponse {
	return &models.APIResponse{
		Status: status,
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	}
}

// respondSuccess sends data in a success envelope.
func respondSuccess(w http.ResponseWriter, data interface{}, start time.Time) {
	respondJSON(w, http.StatusOK, envelope(models.StatusSuccess, data, start))
}

// respondCatalog sends a catalog query result, flagging cache-served pages.
func respondCatalog(w http.ResponseWriter, data interface{}, source string, start time.Time) {
	resp := envelope(models.StatusSuccess, data, start)
	resp.Metadata.Cached = source == models.SourceCache
	respondJSON(w, http.StatusOK, resp)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: models.StatusError,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondOperationError maps an error returned by the sync manager or the
// catalog engine to a status code. Anything unrecognized is a storage fault.
func respondOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, catalogsync.ErrNotShow):
		respondError(w, http.StatusBadRequest, CodeNotShow, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, CodeDatabaseError, "Failed to access catalog storage", err)
	}
}

// validateRequest validates a struct using go-playground/validator.
func validateRequest(v interface{}) *models.APIError {
	if validationErr := validation.ValidateStruct(v); validationErr != nil {
		return validationErr.ToAPIError()
	}
	return nil
}

// respondValidation sends a 400 with the validation details.
func respondValidation(w http.ResponseWriter, apiErr *models.APIError) {
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status:   models.StatusError,
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    apiErr,
	})
}

// decodeJSONBody decodes a bounded JSON body into v.
func decodeJSONBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}

	return intValue
}

// parseCatalogQuery reads and validates the page, per_page, search and
// sort_by parameters.
func parseCatalogQuery(r *http.Request) (validation.CatalogQuery, *models.APIError) {
	q := validation.CatalogQuery{
		Page:    getIntParam(r, "page", 1),
		PerPage: getIntParam(r, "per_page", 0),
		Search:  strings.TrimSpace(r.URL.Query().Get("search")),
		SortBy:  strings.TrimSpace(r.URL.Query().Get("sort_by")),
	}
	return q, validateRequest(&q)
}
