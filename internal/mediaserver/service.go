// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"context"
	"errors"

	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// Sentinel errors shared by every adapter. Callers use errors.Is.
var (
	// ErrUnsupported is returned when the remote service has no equivalent
	// for the requested operation.
	ErrUnsupported = errors.New("operation not supported by service")

	// ErrUnauthorized is returned when the remote service rejects the
	// configured credentials (HTTP 401/403).
	ErrUnauthorized = errors.New("media server rejected credentials")

	// ErrNotFound is returned when the remote resource does not exist (HTTP 404).
	ErrNotFound = errors.New("media server resource not found")
)

//nolint:gochecknoinits // classifier registration must precede the first adapter call
func init() {
	metrics.RegisterErrorClassifier(func(err error) (string, bool) {
		switch {
		case errors.Is(err, ErrUnauthorized):
			return "unauthorized", true
		case errors.Is(err, ErrUnsupported):
			return "unsupported", true
		case errors.Is(err, ErrNotFound):
			return "upstream_not_found", true
		}
		return "", false
	})
}

// Feature names accepted by SupportsFeature.
const (
	FeatureUserManagement   = "user_management"
	FeatureLibraryAccess    = "library_access"
	FeatureActiveSessions   = "active_sessions"
	FeatureSessionTerminate = "session_termination"
	FeatureDownloads        = "downloads"
	FeatureTranscoding      = "transcoding"
	FeatureSharing          = "sharing"
)

// Service is the contract every media server adapter implements.
//
// Records returned by GetLibraries and GetUsers have passed ValidateLibrary
// and ValidateUser; violations are dropped before they reach the caller.
type Service interface {
	// TestConnection verifies reachability and credentials and returns a
	// human readable status line.
	TestConnection(ctx context.Context) (string, error)

	GetLibraries(ctx context.Context) ([]models.Library, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreatedUser, error)

	// UpdateUserAccess replaces the user's library grants. An empty list
	// and the ["*"] marker both mean all libraries.
	UpdateUserAccess(ctx context.Context, userID string, libraryIDs []string) error
	DeleteUser(ctx context.Context, userID string) error

	GetActiveSessions(ctx context.Context) ([]models.Session, error)

	// TerminateSession stops playback. Services without remote session
	// control return ErrUnsupported.
	TerminateSession(ctx context.Context, sessionID, reason string) error
	GetFormattedSessions(ctx context.Context) ([]models.FormattedSession, error)

	CheckUsernameExists(ctx context.Context, username string) (bool, error)

	ServiceType() models.ServiceType
	SupportsFeature(feature string) bool
}

// ContentQuery selects one page of a library's content. Page is 1-based.
// Sort is a hint; services that cannot sort server-side ignore it.
type ContentQuery struct {
	Page    int
	PerPage int
	Search  string
	Sort    models.SortKey
}

// EpisodeQuery selects one page of a show's episodes. Page is 1-based.
type EpisodeQuery struct {
	Page    int
	PerPage int
	Search  string
}

// ContentBrowser is implemented by adapters that can list a library's
// top-level content.
type ContentBrowser interface {
	GetLibraryContent(ctx context.Context, libraryID string, q ContentQuery) (*models.ContentPage, error)
}

// EpisodeBrowser is implemented by adapters that can list a show's episodes
// (or a series' books).
type EpisodeBrowser interface {
	GetShowEpisodes(ctx context.Context, showID string, q EpisodeQuery) (*models.ContentPage, error)
}

// AsContentBrowser reports whether svc can browse library content.
func AsContentBrowser(svc Service) (ContentBrowser, bool) {
	cb, ok := svc.(ContentBrowser)
	return cb, ok
}

// AsEpisodeBrowser reports whether svc can browse show episodes.
func AsEpisodeBrowser(svc Service) (EpisodeBrowser, bool) {
	eb, ok := svc.(EpisodeBrowser)
	return eb, ok
}

// normalizeQuery clamps a page request to sane values.
func normalizeQuery(page, perPage, defaultPerPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}
