// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
audiobookshelf.go - AudioBookshelf adapter

Units: durations are seconds (float), timestamps unix milliseconds.
Pagination is 0-based on the wire and 1-based everywhere else.
*/

package mediaserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// AudiobookshelfAdapter implements Service and ContentBrowser for
// AudioBookshelf.
type AudiobookshelfAdapter struct {
	base
}

var (
	_ Service        = (*AudiobookshelfAdapter)(nil)
	_ ContentBrowser = (*AudiobookshelfAdapter)(nil)
)

// NewAudiobookshelfAdapter creates an AudioBookshelf adapter for server.
func NewAudiobookshelfAdapter(server *models.MediaServer, opts Options) *AudiobookshelfAdapter {
	token := server.APIKey
	return &AudiobookshelfAdapter{
		base: newBase(server, opts, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		}),
	}
}

// AudioBookshelf API response structures

type absLibrary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Stats     *struct {
		TotalItems int `json:"totalItems"`
	} `json:"stats,omitempty"`
}

type absPermissions struct {
	AccessAllLibraries  bool     `json:"accessAllLibraries"`
	LibrariesAccessible []string `json:"librariesAccessible"`
}

type absUser struct {
	ID                  string          `json:"id"`
	Username            string          `json:"username"`
	Email               string          `json:"email"`
	Type                string          `json:"type"`
	Permissions         *absPermissions `json:"permissions,omitempty"`
	LibrariesAccessible []string        `json:"librariesAccessible,omitempty"`
}

type absSession struct {
	ID            string  `json:"id"`
	UserID        string  `json:"userId"`
	MediaType     string  `json:"mediaType"`
	DisplayTitle  string  `json:"displayTitle"`
	Duration      float64 `json:"duration"`
	CurrentTime   float64 `json:"currentTime"`
	MediaPlayer   string  `json:"mediaPlayer"`
	LibraryItemID string  `json:"libraryItemId"`
	User          *struct {
		Username string `json:"username"`
	} `json:"user,omitempty"`
	DeviceInfo *struct {
		ClientName string `json:"clientName"`
		DeviceName string `json:"deviceName"`
		IPAddress  string `json:"ipAddress"`
	} `json:"deviceInfo,omitempty"`
}

type absItemsResponse struct {
	Results []absItem `json:"results"`
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
}

type absItem struct {
	ID        string `json:"id"`
	MediaType string `json:"mediaType"`
	AddedAt   int64  `json:"addedAt"`
	Media     struct {
		Duration float64 `json:"duration"`
		Metadata struct {
			Title         string `json:"title"`
			TitleIgnore   string `json:"titleIgnorePrefix,omitempty"`
			Description   string `json:"description,omitempty"`
			PublishedYear string `json:"publishedYear,omitempty"`
			AuthorName    string `json:"authorName,omitempty"`
		} `json:"metadata"`
		CoverPath string `json:"coverPath,omitempty"`
	} `json:"media"`
}

// TestConnection reads /status.
func (a *AudiobookshelfAdapter) TestConnection(ctx context.Context) (string, error) {
	var status struct {
		ServerVersion string `json:"serverVersion"`
		IsInit        bool   `json:"isInit"`
	}
	if err := a.client.do(ctx, requestConfig{op: "status", path: "/status"}, &status); err != nil {
		return "", err
	}
	return fmt.Sprintf("Connected to AudioBookshelf (v%s)", status.ServerVersion), nil
}

// GetLibraries lists libraries. Item counts come from the inline stats or,
// when absent, the per-library stats endpoint.
func (a *AudiobookshelfAdapter) GetLibraries(ctx context.Context) ([]models.Library, error) {
	var resp struct {
		Libraries []absLibrary `json:"libraries"`
	}
	if err := a.client.do(ctx, requestConfig{op: "libraries", path: "/api/libraries"}, &resp); err != nil {
		return nil, err
	}

	libs := make([]models.Library, 0, len(resp.Libraries))
	for _, l := range resp.Libraries {
		count := 0
		if l.Stats != nil {
			count = l.Stats.TotalItems
		} else if l.ID != "" {
			var stats struct {
				TotalItems int `json:"totalItems"`
			}
			if err := a.client.do(ctx, requestConfig{op: "library stats", path: "/api/libraries/" + url.PathEscape(l.ID) + "/stats"}, &stats); err != nil {
				a.log.Debug().Err(err).Str("library", l.Name).Msg("AudioBookshelf library stats unavailable")
			}
			count = stats.TotalItems
		}
		mediaType := strings.ToLower(l.MediaType)
		if mediaType == "" {
			mediaType = "book"
		}
		libs = append(libs, models.Library{
			ID:         l.ID,
			Name:       l.Name,
			Type:       mediaType,
			ItemCount:  count,
			ExternalID: l.ID,
		})
	}
	return a.libraries(libs), nil
}

// GetUsers lists users with their accessible libraries.
func (a *AudiobookshelfAdapter) GetUsers(ctx context.Context) ([]models.User, error) {
	var resp struct {
		Users []absUser `json:"users"`
	}
	if err := a.client.do(ctx, requestConfig{op: "users", path: "/api/users"}, &resp); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(resp.Users))
	for i := range resp.Users {
		u := &resp.Users[i]
		var libIDs []string
		if u.Permissions != nil && !u.Permissions.AccessAllLibraries {
			libIDs = u.Permissions.LibrariesAccessible
		}
		if len(libIDs) == 0 && (u.Permissions == nil || !u.Permissions.AccessAllLibraries) {
			libIDs = u.LibrariesAccessible
		}
		users = append(users, models.User{
			ID:         u.ID,
			UUID:       u.ID,
			Username:   u.Username,
			Email:      u.Email,
			LibraryIDs: append([]string{}, libIDs...),
			IsAdmin:    u.Type == "admin" || u.Type == "root",
		})
	}
	return a.users(users), nil
}

// CreateUser creates a regular user.
func (a *AudiobookshelfAdapter) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreatedUser, error) {
	body := map[string]interface{}{
		"username":    req.Username,
		"password":    req.Password,
		"email":       req.Email,
		"type":        "user",
		"isActive":    true,
		"permissions": absPermissionsFor(req.LibraryIDs),
	}
	var resp struct {
		User absUser `json:"user"`
	}
	if err := a.client.do(ctx, requestConfig{
		op:     "create user",
		method: http.MethodPost,
		path:   "/api/users",
		body:   body,
		accept: acceptNoContent,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.User.ID == "" {
		return nil, fmt.Errorf("audiobookshelf create user returned no id for %s", req.Username)
	}
	return &models.CreatedUser{ID: resp.User.ID, Username: resp.User.Username, Email: req.Email}, nil
}

func absPermissionsFor(libraryIDs []string) map[string]interface{} {
	all := wantsAllLibraries(libraryIDs)
	ids := libraryIDs
	if all {
		ids = []string{}
	}
	return map[string]interface{}{
		"download":            true,
		"accessAllLibraries":  all,
		"librariesAccessible": ids,
	}
}

// UpdateUserAccess replaces the user's accessible libraries.
func (a *AudiobookshelfAdapter) UpdateUserAccess(ctx context.Context, userID string, libraryIDs []string) error {
	return a.client.do(ctx, requestConfig{
		op:     "update user",
		method: http.MethodPatch,
		path:   "/api/users/" + url.PathEscape(userID),
		body:   map[string]interface{}{"permissions": absPermissionsFor(libraryIDs)},
		accept: acceptNoContent,
	}, nil)
}

// DeleteUser removes a user.
func (a *AudiobookshelfAdapter) DeleteUser(ctx context.Context, userID string) error {
	return a.client.do(ctx, requestConfig{
		op:     "delete user",
		method: http.MethodDelete,
		path:   "/api/users/" + url.PathEscape(userID),
		accept: acceptNoContent,
	}, nil)
}

// CheckUsernameExists checks the user list.
func (a *AudiobookshelfAdapter) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	users, err := a.GetUsers(ctx)
	if err != nil {
		return false, err
	}
	return usernameTaken(users, username), nil
}

// GetActiveSessions lists open listening sessions that have a player.
func (a *AudiobookshelfAdapter) GetActiveSessions(ctx context.Context) ([]models.Session, error) {
	var resp struct {
		Sessions []absSession `json:"sessions"`
	}
	if err := a.client.do(ctx, requestConfig{op: "sessions", path: "/api/sessions"}, &resp); err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(resp.Sessions))
	for i := range resp.Sessions {
		s := &resp.Sessions[i]
		if s.MediaPlayer == "" {
			continue
		}
		out := models.Session{
			SessionID:       s.ID,
			UserID:          s.UserID,
			MediaTitle:      s.DisplayTitle,
			MediaType:       s.MediaType,
			State:           "playing",
			PositionSeconds: int(s.CurrentTime),
			DurationSeconds: int(s.Duration),
			Client:          s.MediaPlayer,
		}
		if s.User != nil {
			out.UserName = s.User.Username
		}
		if s.DeviceInfo != nil {
			if s.DeviceInfo.ClientName != "" {
				out.Client = s.DeviceInfo.ClientName
			}
			out.Device = s.DeviceInfo.DeviceName
			out.IPAddress = s.DeviceInfo.IPAddress
		}
		sessions = append(sessions, out)
	}
	return sessions, nil
}

// TerminateSession closes a listening session. AudioBookshelf takes no reason.
func (a *AudiobookshelfAdapter) TerminateSession(ctx context.Context, sessionID, _ string) error {
	return a.client.do(ctx, requestConfig{
		op:     "close session",
		method: http.MethodPost,
		path:   "/api/session/" + url.PathEscape(sessionID) + "/close",
		accept: acceptNoContent,
	}, nil)
}

// GetFormattedSessions returns active sessions ready for display.
func (a *AudiobookshelfAdapter) GetFormattedSessions(ctx context.Context) ([]models.FormattedSession, error) {
	sessions, err := a.GetActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	return a.formatSessions(sessions), nil
}

// GetLibraryContent lists one page of library items. The items endpoint has
// no free-text search; callers filter live results themselves.
func (a *AudiobookshelfAdapter) GetLibraryContent(ctx context.Context, libraryID string, cq ContentQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(cq.Page, cq.PerPage, 24)

	q := url.Values{}
	q.Set("page", strconv.Itoa(page-1))
	q.Set("limit", strconv.Itoa(perPage))
	q.Set("minified", "1")
	if sort, desc := absSort(cq.Sort); sort != "" {
		q.Set("sort", sort)
		if desc {
			q.Set("desc", "1")
		}
	}

	var resp absItemsResponse
	if err := a.client.do(ctx, requestConfig{
		op:    "library items",
		path:  "/api/libraries/" + url.PathEscape(libraryID) + "/items",
		query: q,
	}, &resp); err != nil {
		return nil, err
	}

	items := make([]models.MediaRecord, 0, len(resp.Results))
	for i := range resp.Results {
		items = append(items, absRecord(&resp.Results[i]))
	}
	return models.NewContentPage(a.records(items), resp.Total, page, perPage), nil
}

func absRecord(it *absItem) models.MediaRecord {
	mediaType := it.MediaType
	if mediaType == "" {
		mediaType = models.ItemTypeBook
	}
	rec := models.MediaRecord{
		ID:              it.ID,
		Title:           it.Media.Metadata.Title,
		Type:            mediaType,
		Year:            yearFromDate(it.Media.Metadata.PublishedYear),
		Summary:         it.Media.Metadata.Description,
		DurationSeconds: secondsPtr(int(it.Media.Duration)),
		AddedAt:         unixMillis(it.AddedAt),
		RatingKey:       it.ID,
		SortTitle:       it.Media.Metadata.TitleIgnore,
		Raw:             rawJSON(it),
	}
	if it.Media.CoverPath != "" {
		rec.Thumb = "/api/items/" + it.ID + "/cover"
	}
	return rec
}

func absSort(key models.SortKey) (string, bool) {
	switch key.Field() {
	case "title":
		return "media.metadata.title", key.Descending()
	case "year":
		return "media.metadata.publishedYear", key.Descending()
	case "added_at":
		return "addedAt", key.Descending()
	}
	return "", false
}
