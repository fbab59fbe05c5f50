// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/database"
	"github.com/tomtom215/mediacatalog/internal/mediaserver"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// testDBSemaphore limits concurrent DuckDB instances across parallel tests.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("close: %v", err)
		}
	})
	return db
}

func createTestServer(t *testing.T, db *database.DB, nickname string) *models.MediaServer {
	t.Helper()
	server := &models.MediaServer{
		ServiceType: models.ServicePlex,
		Nickname:    nickname,
		URL:         "http://plex.local:32400",
		APIKey:      "token",
		IsActive:    true,
	}
	if err := db.CreateMediaServer(context.Background(), server); err != nil {
		t.Fatalf("CreateMediaServer: %v", err)
	}
	return server
}

func createTestLibrary(t *testing.T, db *database.DB, serverID, externalID, name, libType string) *models.MediaLibrary {
	t.Helper()
	lib := &models.MediaLibrary{ExternalID: externalID, Name: name, LibraryType: libType}
	if err := db.ApplyLibraryDiff(context.Background(), &database.LibraryDiff{
		ServerID: serverID,
		Added:    []*models.MediaLibrary{lib},
	}); err != nil {
		t.Fatalf("ApplyLibraryDiff: %v", err)
	}
	return lib
}

func insertItems(t *testing.T, db *database.DB, items ...*models.MediaItem) {
	t.Helper()
	if err := db.ApplyItemDiff(context.Background(), &database.ItemDiff{Inserted: items}); err != nil {
		t.Fatalf("ApplyItemDiff: %v", err)
	}
}

func newShow(lib *models.MediaLibrary, externalID, ratingKey, title string) *models.MediaItem {
	show := &models.MediaItem{
		LibraryID:  lib.ID,
		ServerID:   lib.ServerID,
		ExternalID: externalID,
		ItemType:   models.ItemTypeShow,
		Title:      title,
		SortTitle:  title,
	}
	if ratingKey != "" {
		show.RatingKey = &ratingKey
	}
	return show
}

func newEpisode(lib *models.MediaLibrary, externalID, parent, title string) *models.MediaItem {
	ep := &models.MediaItem{
		LibraryID:  lib.ID,
		ServerID:   lib.ServerID,
		ExternalID: externalID,
		ItemType:   models.ItemTypeEpisode,
		Title:      title,
		SortTitle:  title,
	}
	if parent != "" {
		ep.ParentID = &parent
	}
	return ep
}

func newTestManager(db *database.DB, factory ServiceFactory) *Manager {
	m := NewManager(db, factory, config.SyncConfig{
		EpisodeStaleAfter: 24 * time.Hour,
		LibraryPageSize:   2,
		LibraryMaxPages:   10,
		EpisodePageSize:   2,
	})
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m
}

// fakeFactory returns the service registered for a server id.
type fakeFactory struct {
	services map[string]mediaserver.Service
	err      error
}

func (f *fakeFactory) New(server *models.MediaServer) (mediaserver.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	svc, ok := f.services[server.ID]
	if !ok {
		return nil, fmt.Errorf("no fake for server %s", server.ID)
	}
	return svc, nil
}

// fakeService is an in-memory media server with every capability.
type fakeService struct {
	mu sync.Mutex

	libraries  []models.Library
	libraryErr error

	content     []models.MediaRecord
	contentFail int // page that fails, 0 = never

	episodes     map[string][]models.MediaRecord
	episodeErr   error
	episodeCalls int
	episodeGate  chan struct{}
}

func (f *fakeService) TestConnection(context.Context) (string, error) { return "ok", nil }

func (f *fakeService) GetLibraries(context.Context) ([]models.Library, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.libraryErr != nil {
		return nil, f.libraryErr
	}
	return append([]models.Library(nil), f.libraries...), nil
}

func (f *fakeService) GetUsers(context.Context) ([]models.User, error) { return nil, nil }
func (f *fakeService) CreateUser(context.Context, models.CreateUserRequest) (*models.CreatedUser, error) {
	return nil, mediaserver.ErrUnsupported
}
func (f *fakeService) UpdateUserAccess(context.Context, string, []string) error { return nil }
func (f *fakeService) DeleteUser(context.Context, string) error                 { return nil }
func (f *fakeService) GetActiveSessions(context.Context) ([]models.Session, error) {
	return nil, nil
}
func (f *fakeService) TerminateSession(context.Context, string, string) error {
	return mediaserver.ErrUnsupported
}
func (f *fakeService) GetFormattedSessions(context.Context) ([]models.FormattedSession, error) {
	return nil, nil
}
func (f *fakeService) CheckUsernameExists(context.Context, string) (bool, error) { return false, nil }
func (f *fakeService) ServiceType() models.ServiceType                          { return models.ServicePlex }
func (f *fakeService) SupportsFeature(string) bool                              { return false }

func (f *fakeService) GetLibraryContent(_ context.Context, _ string, q mediaserver.ContentQuery) (*models.ContentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contentFail > 0 && q.Page == f.contentFail {
		return nil, errors.New("upstream timeout")
	}
	return pageOf(f.content, q.Page, q.PerPage), nil
}

func (f *fakeService) GetShowEpisodes(_ context.Context, showID string, q mediaserver.EpisodeQuery) (*models.ContentPage, error) {
	f.mu.Lock()
	f.episodeCalls++
	gate := f.episodeGate
	err := f.episodeErr
	all := f.episodes[showID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return pageOf(all, q.Page, q.PerPage), nil
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.episodeCalls
}

func pageOf(all []models.MediaRecord, page, perPage int) *models.ContentPage {
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := min(start+perPage, len(all))
	return models.NewContentPage(append([]models.MediaRecord(nil), all[start:end]...), len(all), page, perPage)
}

// serviceOnly hides the browsing capabilities of the wrapped service.
type serviceOnly struct {
	mediaserver.Service
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.CatalogEvent
	err    error
}

func (p *recordingPublisher) PublishCatalogEvent(_ context.Context, event *models.CatalogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func record(id, title string) models.MediaRecord {
	return models.MediaRecord{ID: id, Title: title, Type: models.ItemTypeMovie}
}

func intPtr(i int) *int { return &i }

func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

func checkStringPtrEqual(t *testing.T, fieldName string, ptr *string, want string) {
	t.Helper()
	if ptr == nil {
		t.Errorf("%s should not be nil, expected %q", fieldName, want)
		return
	}
	if *ptr != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, *ptr)
	}
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkTrue(t *testing.T, msg string, cond bool) {
	t.Helper()
	if !cond {
		t.Errorf("expected true: %s", msg)
	}
}
