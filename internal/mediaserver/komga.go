// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
komga.go - Komga adapter

Authenticates with an API key (X-API-Key) when configured, otherwise with
HTTP basic auth. Komga identifies users by email. Series are the top-level
content and books play the role of episodes.
*/

package mediaserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// KomgaAdapter implements Service, ContentBrowser and EpisodeBrowser for Komga.
type KomgaAdapter struct {
	base
}

var (
	_ Service        = (*KomgaAdapter)(nil)
	_ ContentBrowser = (*KomgaAdapter)(nil)
	_ EpisodeBrowser = (*KomgaAdapter)(nil)
)

// NewKomgaAdapter creates a Komga adapter for server.
func NewKomgaAdapter(server *models.MediaServer, opts Options) *KomgaAdapter {
	apiKey, user, pass := server.APIKey, server.Username, server.Password
	return &KomgaAdapter{
		base: newBase(server, opts, func(req *http.Request) {
			if apiKey != "" {
				req.Header.Set("X-API-Key", apiKey)
				return
			}
			req.SetBasicAuth(user, pass)
		}),
	}
}

// Komga API response structures

type komgaLibrary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Root string `json:"root"`
}

type komgaUser struct {
	ID                 string   `json:"id"`
	Email              string   `json:"email"`
	Roles              []string `json:"roles"`
	SharedAllLibraries bool     `json:"sharedAllLibraries"`
	SharedLibrariesIDs []string `json:"sharedLibrariesIds"`
}

// komgaPage is Spring's Page envelope.
type komgaPage[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	Last          bool `json:"last"`
}

type komgaSeries struct {
	ID         string `json:"id"`
	LibraryID  string `json:"libraryId"`
	Name       string `json:"name"`
	BooksCount int    `json:"booksCount"`
	Created    string `json:"created"`
	Metadata   struct {
		Title     string `json:"title"`
		TitleSort string `json:"titleSort"`
		Summary   string `json:"summary"`
	} `json:"metadata"`
	BooksMetadata struct {
		ReleaseDate string `json:"releaseDate"`
	} `json:"booksMetadata"`
}

type komgaBook struct {
	ID       string  `json:"id"`
	SeriesID string  `json:"seriesId"`
	Name     string  `json:"name"`
	Number   float64 `json:"number"`
	Created  string  `json:"created"`
	Media    struct {
		PagesCount int `json:"pagesCount"`
	} `json:"media"`
	Metadata struct {
		Title       string  `json:"title"`
		Summary     string  `json:"summary"`
		NumberSort  float64 `json:"numberSort"`
		ReleaseDate string  `json:"releaseDate"`
	} `json:"metadata"`
}

// TestConnection reads the authenticated user.
func (k *KomgaAdapter) TestConnection(ctx context.Context) (string, error) {
	var me komgaUser
	if err := k.client.do(ctx, requestConfig{op: "current user", path: "/api/v2/users/me"}, &me); err != nil {
		return "", err
	}
	return fmt.Sprintf("Connected to Komga as %s", me.Email), nil
}

// GetLibraries lists libraries with their series counts.
func (k *KomgaAdapter) GetLibraries(ctx context.Context) ([]models.Library, error) {
	var raw []komgaLibrary
	if err := k.client.do(ctx, requestConfig{op: "libraries", path: "/api/v1/libraries"}, &raw); err != nil {
		return nil, err
	}

	libs := make([]models.Library, 0, len(raw))
	for _, l := range raw {
		count, err := k.seriesCount(ctx, l.ID)
		if err != nil {
			k.log.Warn().Err(err).Str("library", l.Name).Msg("Failed to count Komga series")
		}
		libs = append(libs, models.Library{
			ID:         l.ID,
			Name:       l.Name,
			Type:       models.ItemTypeComic,
			ItemCount:  count,
			ExternalID: l.ID,
		})
	}
	return k.libraries(libs), nil
}

func (k *KomgaAdapter) seriesCount(ctx context.Context, libraryID string) (int, error) {
	q := url.Values{}
	q.Set("library_id", libraryID)
	q.Set("size", "1")
	var page komgaPage[komgaSeries]
	if err := k.client.do(ctx, requestConfig{op: "series count", path: "/api/v1/series", query: q}, &page); err != nil {
		return 0, err
	}
	return page.TotalElements, nil
}

// GetUsers lists users. The email doubles as the username.
func (k *KomgaAdapter) GetUsers(ctx context.Context) ([]models.User, error) {
	var raw []komgaUser
	if err := k.client.do(ctx, requestConfig{op: "users", path: "/api/v2/users"}, &raw); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(raw))
	for _, u := range raw {
		libIDs := []string{}
		if !u.SharedAllLibraries {
			libIDs = append(libIDs, u.SharedLibrariesIDs...)
		}
		users = append(users, models.User{
			ID:         u.ID,
			UUID:       u.ID,
			Username:   u.Email,
			Email:      u.Email,
			LibraryIDs: libIDs,
			IsAdmin:    hasRole(u.Roles, "ADMIN"),
		})
	}
	return k.users(users), nil
}

func komgaSharedLibraries(libraryIDs []string) map[string]interface{} {
	if wantsAllLibraries(libraryIDs) {
		return map[string]interface{}{"all": true, "libraryIds": []string{}}
	}
	return map[string]interface{}{"all": false, "libraryIds": libraryIDs}
}

// CreateUser creates a user. Komga needs an email, so the username is used
// when no email is given.
func (k *KomgaAdapter) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreatedUser, error) {
	email := req.Email
	if email == "" {
		email = req.Username
	}
	var created komgaUser
	if err := k.client.do(ctx, requestConfig{
		op:     "create user",
		method: http.MethodPost,
		path:   "/api/v2/users",
		body: map[string]interface{}{
			"email":           email,
			"password":        req.Password,
			"roles":           []string{"PAGE_STREAMING", "FILE_DOWNLOAD"},
			"sharedLibraries": komgaSharedLibraries(req.LibraryIDs),
		},
		accept: acceptNoContent,
	}, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("komga create user returned no id for %s", email)
	}
	return &models.CreatedUser{ID: created.ID, Username: created.Email, Email: created.Email}, nil
}

// UpdateUserAccess replaces the user's shared libraries.
func (k *KomgaAdapter) UpdateUserAccess(ctx context.Context, userID string, libraryIDs []string) error {
	return k.client.do(ctx, requestConfig{
		op:     "update user",
		method: http.MethodPatch,
		path:   "/api/v2/users/" + url.PathEscape(userID),
		body:   map[string]interface{}{"sharedLibraries": komgaSharedLibraries(libraryIDs)},
		accept: acceptNoContent,
	}, nil)
}

// DeleteUser removes a user.
func (k *KomgaAdapter) DeleteUser(ctx context.Context, userID string) error {
	return k.client.do(ctx, requestConfig{
		op:     "delete user",
		method: http.MethodDelete,
		path:   "/api/v2/users/" + url.PathEscape(userID),
		accept: acceptNoContent,
	}, nil)
}

// CheckUsernameExists checks the user list by email.
func (k *KomgaAdapter) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	users, err := k.GetUsers(ctx)
	if err != nil {
		return false, err
	}
	return usernameTaken(users, username), nil
}

// GetActiveSessions returns an empty list; Komga has no session tracking.
func (k *KomgaAdapter) GetActiveSessions(context.Context) ([]models.Session, error) {
	return []models.Session{}, nil
}

// TerminateSession is not supported by Komga.
func (k *KomgaAdapter) TerminateSession(context.Context, string, string) error {
	return fmt.Errorf("komga terminate session: %w", ErrUnsupported)
}

// GetFormattedSessions returns an empty list.
func (k *KomgaAdapter) GetFormattedSessions(context.Context) ([]models.FormattedSession, error) {
	return []models.FormattedSession{}, nil
}

// GetLibraryContent lists one page of a library's series.
func (k *KomgaAdapter) GetLibraryContent(ctx context.Context, libraryID string, cq ContentQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(cq.Page, cq.PerPage, 24)

	q := url.Values{}
	q.Set("library_id", libraryID)
	q.Set("page", strconv.Itoa(page-1))
	q.Set("size", strconv.Itoa(perPage))
	q.Set("sort", komgaSort(cq.Sort))
	if cq.Search != "" {
		q.Set("search", cq.Search)
	}

	var resp komgaPage[komgaSeries]
	if err := k.client.do(ctx, requestConfig{op: "series", path: "/api/v1/series", query: q}, &resp); err != nil {
		return nil, err
	}

	items := make([]models.MediaRecord, 0, len(resp.Content))
	for i := range resp.Content {
		s := &resp.Content[i]
		title := s.Metadata.Title
		if title == "" {
			title = s.Name
		}
		items = append(items, models.MediaRecord{
			ID:        s.ID,
			Title:     title,
			Type:      models.ItemTypeSeries,
			Year:      yearFromDate(s.BooksMetadata.ReleaseDate),
			Summary:   s.Metadata.Summary,
			AddedAt:   parseTimestamp(s.Created),
			Thumb:     "/api/v1/series/" + s.ID + "/thumbnail",
			RatingKey: s.ID,
			SortTitle: s.Metadata.TitleSort,
			Raw:       rawJSON(s),
		})
	}
	return models.NewContentPage(k.records(items), resp.TotalElements, page, perPage), nil
}

// GetShowEpisodes lists the books of a series.
func (k *KomgaAdapter) GetShowEpisodes(ctx context.Context, showID string, eq EpisodeQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(eq.Page, eq.PerPage, 24)

	q := url.Values{}
	q.Set("page", strconv.Itoa(page-1))
	q.Set("size", strconv.Itoa(perPage))
	q.Set("sort", "metadata.numberSort,asc")

	var resp komgaPage[komgaBook]
	if err := k.client.do(ctx, requestConfig{
		op:    "series books",
		path:  "/api/v1/series/" + url.PathEscape(showID) + "/books",
		query: q,
	}, &resp); err != nil {
		return nil, err
	}

	items := make([]models.MediaRecord, 0, len(resp.Content))
	for i := range resp.Content {
		b := &resp.Content[i]
		title := b.Metadata.Title
		if title == "" {
			title = b.Name
		}
		parent := b.SeriesID
		if parent == "" {
			parent = showID
		}
		number := b.Metadata.NumberSort
		if number == 0 {
			number = b.Number
		}
		items = append(items, models.MediaRecord{
			ID:            b.ID,
			Title:         title,
			Type:          models.ItemTypeBook,
			Year:          yearFromDate(b.Metadata.ReleaseDate),
			Summary:       b.Metadata.Summary,
			AddedAt:       parseTimestamp(b.Created),
			Thumb:         "/api/v1/books/" + b.ID + "/thumbnail",
			ParentID:      parent,
			RatingKey:     b.ID,
			EpisodeNumber: intPtr(int(number)),
			Raw:           rawJSON(b),
		})
	}
	return models.NewContentPage(k.records(items), resp.TotalElements, page, perPage), nil
}

func komgaSort(key models.SortKey) string {
	dir := "asc"
	if key.Descending() {
		dir = "desc"
	}
	switch key.Field() {
	case "added_at":
		return "createdDate," + dir
	case "year":
		return "booksMetadata.releaseDate," + dir
	default:
		return "metadata.titleSort," + dir
	}
}
