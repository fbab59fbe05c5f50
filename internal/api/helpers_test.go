// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/catalog"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/models"
	catalogsync "github.com/tomtom215/mediacatalog/internal/sync"
)

var errStorage = errors.New("disk full")

type fakeStore struct {
	pingErr   error
	servers   map[string]*models.MediaServer
	libraries map[string][]models.MediaLibrary
	access    []models.UserMediaAccess
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) GetMediaServer(_ context.Context, id string) (*models.MediaServer, error) {
	if srv, ok := s.servers[id]; ok {
		return srv, nil
	}
	return nil, fmt.Errorf("server %s: %w", id, database.ErrNotFound)
}

func (s *fakeStore) ListLibraries(_ context.Context, serverID string) ([]models.MediaLibrary, error) {
	return s.libraries[serverID], nil
}

func (s *fakeStore) ListUserAccess(context.Context, string) ([]models.UserMediaAccess, error) {
	return s.access, nil
}

type fakeSyncer struct {
	err        error
	reconciled []string
}

func (f *fakeSyncer) ReconcileAll(context.Context) (*models.ReconcileResult, error) {
	f.reconciled = append(f.reconciled, "*")
	return &models.ReconcileResult{}, f.err
}

func (f *fakeSyncer) ReconcileLibraries(_ context.Context, serverID string) (*models.ReconcileResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reconciled = append(f.reconciled, serverID)
	return &models.ReconcileResult{}, nil
}

func (f *fakeSyncer) SyncLibraryContent(context.Context, string) (*models.LibrarySyncResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LibrarySyncResult{}, nil
}

func (f *fakeSyncer) SyncShowEpisodes(context.Context, string) (*models.EpisodeSyncResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.EpisodeSyncResult{}, nil
}

func (f *fakeSyncer) PurgeEpisodes(context.Context, string) (*models.PurgeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PurgeResult{}, nil
}

type fakeCatalog struct {
	err        error
	source     string
	contentReq catalog.ContentRequest
	episodeReq catalog.EpisodeRequest
}

func (f *fakeCatalog) GetLibraryContent(_ context.Context, _ string, req catalog.ContentRequest) (*models.ContentResult, error) {
	f.contentReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ContentResult{Items: []models.CatalogItem{}, Source: f.source, Page: 1}, nil
}

func (f *fakeCatalog) GetShowEpisodes(_ context.Context, _ string, req catalog.EpisodeRequest) (*models.EpisodeResult, error) {
	f.episodeReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.EpisodeResult{ContentResult: models.ContentResult{Items: []models.CatalogItem{}, Source: f.source}}, nil
}

type fakeNormalizer struct {
	calls int
}

func (f *fakeNormalizer) NormalizeServer(_ context.Context, _ string, rows []models.UserMediaAccess) (int, error) {
	f.calls++
	return len(rows), nil
}

type testEnv struct {
	store      *fakeStore
	syncer     *fakeSyncer
	catalog    *fakeCatalog
	normalizer *fakeNormalizer
	handler    http.Handler
}

func newTestEnv(t *testing.T, mc *ChiMiddlewareConfig) *testEnv {
	t.Helper()
	env := &testEnv{
		store: &fakeStore{
			servers: map[string]*models.MediaServer{
				"kav": {ID: "kav", ServiceType: models.ServiceKavita, Nickname: "kavita"},
			},
			libraries: map[string][]models.MediaLibrary{
				"kav": {
					{ID: "l1", ServerID: "kav", ExternalID: "1", Name: "Manga"},
					{ID: "l7", ServerID: "kav", ExternalID: "7", Name: "Comics"},
				},
			},
		},
		syncer:     &fakeSyncer{},
		catalog:    &fakeCatalog{source: models.SourceCache},
		normalizer: &fakeNormalizer{},
	}
	if mc == nil {
		mc = DefaultChiMiddlewareConfig()
		mc.RateLimitDisabled = true
	}
	h := NewHandler(env.store, env.syncer, env.catalog, env.normalizer, "test")
	env.handler = NewRouter(h, mc).Setup()
	return env
}

type testResponse struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (env *testEnv) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, resp
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func checkErrorCode(t *testing.T, resp testResponse, want string) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error %s, got none", want)
	}
	if resp.Error.Code != want {
		t.Errorf("error code = %s, want %s", resp.Error.Code, want)
	}
}

// storageFault mimics a wrapped storage error from the sync manager.
func storageFault() error {
	return fmt.Errorf("apply diff: %w", errStorage)
}

// notShow mimics the sync manager rejecting a non-show item.
func notShow() error {
	return fmt.Errorf("item m1 (movie): %w", catalogsync.ErrNotShow)
}
