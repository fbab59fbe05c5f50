// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package catalog

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

func createTestServer(t *testing.T, db *database.DB) *models.MediaServer {
	t.Helper()
	server := &models.MediaServer{
		ServiceType: models.ServicePlex,
		Nickname:    "plex",
		URL:         "http://plex.local:32400",
		APIKey:      "token",
		IsActive:    true,
	}
	if err := db.CreateMediaServer(context.Background(), server); err != nil {
		t.Fatalf("CreateMediaServer: %v", err)
	}
	return server
}

func createTestLibrary(t *testing.T, db *database.DB, serverID, name, libType string) *models.MediaLibrary {
	t.Helper()
	lib := &models.MediaLibrary{ExternalID: "1", Name: name, LibraryType: libType}
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

func insertStreams(t *testing.T, db *database.DB, lib *models.MediaLibrary, title string, grandparent string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h := &models.MediaStreamHistory{
			ServerID:        lib.ServerID,
			LibraryName:     lib.Name,
			MediaTitle:      title,
			UserUUID:        fmt.Sprintf("user-%d", i),
			StartedAt:       time.Date(2026, 1, 1, 20, i, 0, 0, time.UTC),
			DurationSeconds: 60,
		}
		if grandparent != "" {
			gp := grandparent
			h.GrandparentTitle = &gp
		}
		if err := db.InsertStreamHistory(context.Background(), h); err != nil {
			t.Fatalf("InsertStreamHistory: %v", err)
		}
	}
}

func newMovie(lib *models.MediaLibrary, externalID, title string) *models.MediaItem {
	return &models.MediaItem{
		LibraryID:  lib.ID,
		ServerID:   lib.ServerID,
		ExternalID: externalID,
		ItemType:   models.ItemTypeMovie,
		Title:      title,
		SortTitle:  title,
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

func newEpisode(lib *models.MediaLibrary, externalID, parent, title string, season, episode int) *models.MediaItem {
	ep := &models.MediaItem{
		LibraryID:     lib.ID,
		ServerID:      lib.ServerID,
		ExternalID:    externalID,
		ItemType:      models.ItemTypeEpisode,
		Title:         title,
		SortTitle:     title,
		SeasonNumber:  &season,
		EpisodeNumber: &episode,
	}
	if parent != "" {
		ep.ParentID = &parent
	}
	return ep
}

// fakeFactory returns the service registered for a server id.
type fakeFactory struct {
	services map[string]mediaserver.Service
}

func (f *fakeFactory) New(server *models.MediaServer) (mediaserver.Service, error) {
	svc, ok := f.services[server.ID]
	if !ok {
		return nil, fmt.Errorf("no fake for server %s", server.ID)
	}
	return svc, nil
}

// fakeService is an in-memory media server with every capability.
type fakeService struct {
	mu           sync.Mutex
	content      []models.MediaRecord
	contentCalls int
	episodes     map[string][]models.MediaRecord
	episodeErr   error
}

func (f *fakeService) TestConnection(context.Context) (string, error)         { return "ok", nil }
func (f *fakeService) GetLibraries(context.Context) ([]models.Library, error) { return nil, nil }
func (f *fakeService) GetUsers(context.Context) ([]models.User, error)        { return nil, nil }
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
	f.contentCalls++
	return pageOf(f.content, q.Page, q.PerPage), nil
}

func (f *fakeService) GetShowEpisodes(_ context.Context, showID string, q mediaserver.EpisodeQuery) (*models.ContentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.episodeErr != nil {
		return nil, f.episodeErr
	}
	return pageOf(f.episodes[showID], q.Page, q.PerPage), nil
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

// contentOnly exposes library browsing but not episode browsing.
type contentOnly struct {
	mediaserver.Service
	browser *fakeService
}

func (c contentOnly) GetLibraryContent(ctx context.Context, id string, q mediaserver.ContentQuery) (*models.ContentPage, error) {
	return c.browser.GetLibraryContent(ctx, id, q)
}

// fakeSyncer records sync calls and returns canned results.
type fakeSyncer struct {
	libraryCalls int
	episodeCalls int
	result       *models.LibrarySyncResult
	episodes     *models.EpisodeSyncResult
	err          error
}

func (s *fakeSyncer) SyncLibraryContent(context.Context, string) (*models.LibrarySyncResult, error) {
	s.libraryCalls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &models.LibrarySyncResult{Success: true}, nil
	}
	return s.result, nil
}

func (s *fakeSyncer) SyncShowEpisodes(context.Context, string) (*models.EpisodeSyncResult, error) {
	s.episodeCalls++
	if s.err != nil {
		return nil, s.err
	}
	if s.episodes == nil {
		return &models.EpisodeSyncResult{Success: true}, nil
	}
	return s.episodes, nil
}

var errUpstream = errors.New("upstream unavailable")

func movieRecord(id, title string) models.MediaRecord {
	return models.MediaRecord{ID: id, Title: title, Type: models.ItemTypeMovie}
}

func titles(items []models.CatalogItem) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].Title
	}
	return out
}

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

func checkStrings(t *testing.T, fieldName string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: expected %v, got %v", fieldName, want, got)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: expected %v, got %v", fieldName, want, got)
			return
		}
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
