// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/health", "")
	checkStatus(t, rec, http.StatusOK)
	var status HealthStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if status.Status != "healthy" || status.Version != "test" {
		t.Errorf("health = %+v", status)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if id := rec.Header().Get("X-Request-ID"); id == "" || resp.Metadata.RequestID != id {
		t.Errorf("request id header %q, metadata %q", id, resp.Metadata.RequestID)
	}

	env.store.pingErr = errors.New("closed")
	rec, resp = env.do(t, http.MethodGet, "/api/v1/health", "")
	checkStatus(t, rec, http.StatusServiceUnavailable)
	if resp.Status != "error" {
		t.Errorf("status = %s, want error", resp.Status)
	}
}

func TestLibraryContentPassesQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/libraries/lib1/content?page=2&per_page=10&search=+alien+&sort_by=year_desc", "")
	checkStatus(t, rec, http.StatusOK)

	req := env.catalog.contentReq
	if req.Page != 2 || req.PerPage != 10 || req.Search != "alien" || req.SortBy != "year_desc" {
		t.Errorf("request = %+v", req)
	}
	if !resp.Metadata.Cached {
		t.Error("cache-served page should set metadata.cached")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}

func TestLibraryContentDefaults(t *testing.T) {
	env := newTestEnv(t, nil)
	env.catalog.source = "live"

	rec, resp := env.do(t, http.MethodGet, "/api/v1/libraries/lib1/content?page=abc", "")
	checkStatus(t, rec, http.StatusOK)
	if env.catalog.contentReq.Page != 1 || env.catalog.contentReq.PerPage != 0 {
		t.Errorf("defaults = %+v", env.catalog.contentReq)
	}
	if resp.Metadata.Cached {
		t.Error("live page must not be flagged cached")
	}
}

func TestLibraryContentValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/libraries/lib1/content?search="+strings.Repeat("a", 201), "")
	checkStatus(t, rec, http.StatusBadRequest)
	checkErrorCode(t, resp, "VALIDATION_ERROR")

	rec, resp = env.do(t, http.MethodGet, "/api/v1/libraries/lib1/content?per_page=-5", "")
	checkStatus(t, rec, http.StatusBadRequest)
	checkErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestOperationErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		method     string
		target     string
		wantStatus int
		wantCode   string
	}{
		{"content not found", fmt.Errorf("library x: %w", database.ErrNotFound), http.MethodGet, "/api/v1/libraries/x/content", http.StatusNotFound, CodeNotFound},
		{"episodes not a show", notShow(), http.MethodGet, "/api/v1/shows/m1/episodes", http.StatusBadRequest, CodeNotShow},
		{"content storage", storageFault(), http.MethodGet, "/api/v1/libraries/x/content", http.StatusInternalServerError, CodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.catalog.err = tt.err
			rec, resp := env.do(t, tt.method, tt.target, "")
			checkStatus(t, rec, tt.wantStatus)
			checkErrorCode(t, resp, tt.wantCode)
		})
	}
}

func TestShowEpisodes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, _ := env.do(t, http.MethodGet, "/api/v1/shows/s1/episodes?sort_by=season_episode_desc&per_page=5", "")
	checkStatus(t, rec, http.StatusOK)
	if env.catalog.episodeReq.SortBy != "season_episode_desc" || env.catalog.episodeReq.PerPage != 5 {
		t.Errorf("request = %+v", env.catalog.episodeReq)
	}
}

func TestSyncEndpoints(t *testing.T) {
	tests := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/api/v1/libraries/reconcile"},
		{http.MethodPost, "/api/v1/servers/plex1/libraries/reconcile"},
		{http.MethodPost, "/api/v1/libraries/lib1/sync"},
		{http.MethodPost, "/api/v1/shows/s1/episodes/sync"},
		{http.MethodDelete, "/api/v1/shows/s1/episodes"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec, resp := env.do(t, tt.method, tt.target, "")
			checkStatus(t, rec, http.StatusOK)
			if resp.Status != "success" {
				t.Errorf("status = %s", resp.Status)
			}

			env.syncer.err = storageFault()
			if tt.target == "/api/v1/libraries/reconcile" {
				// Only listing servers fails a full reconcile.
				return
			}
			rec, resp = env.do(t, tt.method, tt.target, "")
			checkStatus(t, rec, http.StatusInternalServerError)
			checkErrorCode(t, resp, CodeDatabaseError)
		})
	}
}

func TestReconcileServerNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	env.syncer.err = fmt.Errorf("server nope: %w", database.ErrNotFound)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/servers/nope/libraries/reconcile", "")
	checkStatus(t, rec, http.StatusNotFound)
	checkErrorCode(t, resp, CodeNotFound)
}

func TestNormalizeAccess(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/servers/kav/access/normalize",
		`{"service_type":"kavita","library_ids":["7","Manga","99"]}`)
	checkStatus(t, rec, http.StatusOK)

	var out NormalizeAccessResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"7_Comics", "1_Manga", "99"}
	if strings.Join(out.LibraryIDs, ",") != strings.Join(want, ",") {
		t.Errorf("library ids = %v, want %v", out.LibraryIDs, want)
	}
	if !out.Changed {
		t.Error("expected changed")
	}
	if len(out.Unresolved) != 1 || out.Unresolved[0] != "99" {
		t.Errorf("unresolved = %v", out.Unresolved)
	}
	if out.StoredUpdated != nil || env.normalizer.calls != 0 {
		t.Error("stored rows touched without apply_stored")
	}
}

func TestNormalizeAccessApplyStored(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.access = []models.UserMediaAccess{
		{ID: "a1", ServerID: "kav", Username: "bob", AllowedLibraryIDs: []string{"7"}},
	}

	rec, resp := env.do(t, http.MethodPost, "/api/v1/servers/kav/access/normalize?apply_stored=true",
		`{"service_type":"kavita","library_ids":["*"]}`)
	checkStatus(t, rec, http.StatusOK)

	var out NormalizeAccessResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.AllLibraries {
		t.Error("wildcard should report all libraries")
	}
	if env.normalizer.calls != 1 || out.StoredUpdated == nil {
		t.Errorf("normalizer calls = %d, stored = %v", env.normalizer.calls, out.StoredUpdated)
	}
}

func TestNormalizeAccessRejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"empty body", "/api/v1/servers/kav/access/normalize", "", http.StatusBadRequest, CodeInvalidRequest},
		{"invalid json", "/api/v1/servers/kav/access/normalize", `{"service_type":`, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown service type", "/api/v1/servers/kav/access/normalize", `{"service_type":"winamp","library_ids":[]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"type mismatch", "/api/v1/servers/kav/access/normalize", `{"service_type":"plex","library_ids":["1"]}`, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown server", "/api/v1/servers/nope/access/normalize", `{"service_type":"plex","library_ids":["1"]}`, http.StatusNotFound, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec, resp := env.do(t, http.MethodPost, tt.target, tt.body)
			checkStatus(t, rec, tt.wantStatus)
			checkErrorCode(t, resp, tt.wantCode)
		})
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/nope", "")
	checkStatus(t, rec, http.StatusNotFound)
	checkErrorCode(t, resp, CodeNotFound)

	rec, resp = env.do(t, http.MethodPut, "/api/v1/libraries/lib1/content", "")
	checkStatus(t, rec, http.StatusMethodNotAllowed)
	checkErrorCode(t, resp, CodeMethodNotAllowed)
}

func TestRateLimit(t *testing.T) {
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitRequests = 1
	mc.RateLimitWindow = time.Minute
	env := newTestEnv(t, mc)

	rec, _ := env.do(t, http.MethodGet, "/api/v1/libraries/lib1/content", "")
	checkStatus(t, rec, http.StatusOK)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/libraries/lib1/content", "")
	checkStatus(t, rec, http.StatusTooManyRequests)
	checkErrorCode(t, resp, CodeRateLimited)

	// Health is outside the limited group.
	rec, _ = env.do(t, http.MethodGet, "/api/v1/health", "")
	checkStatus(t, rec, http.StatusOK)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/v1/health", "")

	rec, _ := env.do(t, http.MethodGet, "/metrics", "")
	checkStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("metrics output missing api_requests_total")
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
