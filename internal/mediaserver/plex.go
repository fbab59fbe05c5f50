// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
plex.go - Plex Media Server adapter

Talks to the local Plex Media Server API with an X-Plex-Token. Account
sharing through plex.tv is not handled here, so user creation, access
changes and deletion report ErrUnsupported.

Units: durations are milliseconds, timestamps unix seconds.
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

// PlexAdapter implements Service, ContentBrowser and EpisodeBrowser for Plex.
type PlexAdapter struct {
	base
}

var (
	_ Service        = (*PlexAdapter)(nil)
	_ ContentBrowser = (*PlexAdapter)(nil)
	_ EpisodeBrowser = (*PlexAdapter)(nil)
)

// NewPlexAdapter creates a Plex adapter for server.
func NewPlexAdapter(server *models.MediaServer, opts Options) *PlexAdapter {
	token := server.APIKey
	return &PlexAdapter{
		base: newBase(server, opts, func(req *http.Request) {
			req.Header.Set("X-Plex-Token", token)
			req.Header.Set("X-Plex-Client-Identifier", "mediacatalog")
			req.Header.Set("X-Plex-Product", "Media Catalog")
		}),
	}
}

// Plex API response structures

type plexIdentityResponse struct {
	MediaContainer struct {
		MachineIdentifier string `json:"machineIdentifier"`
		Version           string `json:"version"`
	} `json:"MediaContainer"`
}

type plexSectionsResponse struct {
	MediaContainer struct {
		Directory []plexDirectory `json:"Directory"`
	} `json:"MediaContainer"`
}

type plexDirectory struct {
	Key   string `json:"key"`
	UUID  string `json:"uuid"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type plexAccountsResponse struct {
	MediaContainer struct {
		Account []struct {
			ID    flexID `json:"id"`
			Name  string `json:"name"`
			Thumb string `json:"thumb"`
		} `json:"Account"`
	} `json:"MediaContainer"`
}

type plexMetadataResponse struct {
	MediaContainer struct {
		Size      int            `json:"size"`
		TotalSize int            `json:"totalSize"`
		Metadata  []plexMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexMetadata struct {
	RatingKey            string  `json:"ratingKey"`
	Key                  string  `json:"key"`
	GUID                 string  `json:"guid"`
	Type                 string  `json:"type"`
	Title                string  `json:"title"`
	TitleSort            string  `json:"titleSort,omitempty"`
	Summary              string  `json:"summary,omitempty"`
	Year                 int     `json:"year,omitempty"`
	Rating               float64 `json:"rating,omitempty"`
	AudienceRating       float64 `json:"audienceRating,omitempty"`
	Duration             int64   `json:"duration,omitempty"`
	ViewOffset           int64   `json:"viewOffset,omitempty"`
	Thumb                string  `json:"thumb,omitempty"`
	AddedAt              int64   `json:"addedAt,omitempty"`
	ParentRatingKey      string  `json:"parentRatingKey,omitempty"`
	GrandparentRatingKey string  `json:"grandparentRatingKey,omitempty"`
	GrandparentTitle     string  `json:"grandparentTitle,omitempty"`
	Index                int     `json:"index,omitempty"`
	ParentIndex          int     `json:"parentIndex,omitempty"`

	// Session fields, only present on /status/sessions
	SessionKey string `json:"sessionKey,omitempty"`
	Session    *struct {
		ID string `json:"id"`
	} `json:"Session,omitempty"`
	User *struct {
		ID    flexID `json:"id"`
		Title string `json:"title"`
	} `json:"User,omitempty"`
	Player *struct {
		Title   string `json:"title"`
		Product string `json:"product"`
		State   string `json:"state"`
		Address string `json:"address"`
	} `json:"Player,omitempty"`
}

// TestConnection reads the server identity.
func (p *PlexAdapter) TestConnection(ctx context.Context) (string, error) {
	var resp plexIdentityResponse
	if err := p.client.do(ctx, requestConfig{op: "identity", path: "/identity"}, &resp); err != nil {
		return "", err
	}
	return fmt.Sprintf("Connected to Plex (v%s)", resp.MediaContainer.Version), nil
}

// GetLibraries lists library sections with their item counts.
func (p *PlexAdapter) GetLibraries(ctx context.Context) ([]models.Library, error) {
	var resp plexSectionsResponse
	if err := p.client.do(ctx, requestConfig{op: "libraries", path: "/library/sections"}, &resp); err != nil {
		return nil, err
	}

	libs := make([]models.Library, 0, len(resp.MediaContainer.Directory))
	for _, d := range resp.MediaContainer.Directory {
		count, err := p.sectionSize(ctx, d.Key)
		if err != nil {
			p.log.Warn().Err(err).Str("section", d.Key).Msg("Failed to read Plex section size")
		}
		id := d.UUID
		if id == "" {
			id = d.Key
		}
		libs = append(libs, models.Library{
			ID:         id,
			Name:       d.Title,
			Type:       d.Type,
			ItemCount:  count,
			ExternalID: d.Key,
		})
	}
	return p.libraries(libs), nil
}

func (p *PlexAdapter) sectionSize(ctx context.Context, key string) (int, error) {
	q := url.Values{}
	q.Set("X-Plex-Container-Start", "0")
	q.Set("X-Plex-Container-Size", "0")

	var resp plexMetadataResponse
	if err := p.client.do(ctx, requestConfig{
		op:    "section size",
		path:  "/library/sections/" + url.PathEscape(key) + "/all",
		query: q,
	}, &resp); err != nil {
		return 0, err
	}
	return resp.MediaContainer.TotalSize, nil
}

// GetUsers lists the local server accounts. Plex does not expose per-user
// library grants locally, so LibraryIDs is empty (all libraries).
func (p *PlexAdapter) GetUsers(ctx context.Context) ([]models.User, error) {
	var resp plexAccountsResponse
	if err := p.client.do(ctx, requestConfig{op: "accounts", path: "/accounts"}, &resp); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(resp.MediaContainer.Account))
	for _, a := range resp.MediaContainer.Account {
		id := a.ID.String()
		users = append(users, models.User{
			ID:         id,
			UUID:       id,
			Username:   a.Name,
			Thumb:      a.Thumb,
			IsHomeUser: id != "0",
			LibraryIDs: []string{},
			IsAdmin:    id == "1",
		})
	}
	return p.users(users), nil
}

// CreateUser is handled through plex.tv invitations, which are out of scope.
func (p *PlexAdapter) CreateUser(context.Context, models.CreateUserRequest) (*models.CreatedUser, error) {
	return nil, fmt.Errorf("plex create user: %w", ErrUnsupported)
}

// UpdateUserAccess is handled through plex.tv sharing, which is out of scope.
func (p *PlexAdapter) UpdateUserAccess(context.Context, string, []string) error {
	return fmt.Errorf("plex update user access: %w", ErrUnsupported)
}

// DeleteUser is handled through plex.tv sharing, which is out of scope.
func (p *PlexAdapter) DeleteUser(context.Context, string) error {
	return fmt.Errorf("plex delete user: %w", ErrUnsupported)
}

// CheckUsernameExists checks the local account list.
func (p *PlexAdapter) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	users, err := p.GetUsers(ctx)
	if err != nil {
		return false, err
	}
	return usernameTaken(users, username), nil
}

// GetActiveSessions lists current playback sessions.
func (p *PlexAdapter) GetActiveSessions(ctx context.Context) ([]models.Session, error) {
	var resp plexMetadataResponse
	if err := p.client.do(ctx, requestConfig{op: "sessions", path: "/status/sessions"}, &resp); err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(resp.MediaContainer.Metadata))
	for i := range resp.MediaContainer.Metadata {
		m := &resp.MediaContainer.Metadata[i]
		s := models.Session{
			SessionID:       m.SessionKey,
			MediaTitle:      plexDisplayTitle(m),
			MediaType:       m.Type,
			PositionSeconds: MillisToSeconds(m.ViewOffset),
			DurationSeconds: MillisToSeconds(m.Duration),
		}
		if m.Session != nil && m.Session.ID != "" {
			s.SessionID = m.Session.ID
		}
		if m.User != nil {
			s.UserID = m.User.ID.String()
			s.UserName = m.User.Title
		}
		if m.Player != nil {
			s.State = m.Player.State
			s.Client = m.Player.Product
			s.Device = m.Player.Title
			s.IPAddress = m.Player.Address
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func plexDisplayTitle(m *plexMetadata) string {
	if m.Type == models.ItemTypeEpisode && m.GrandparentTitle != "" {
		return m.GrandparentTitle + " - " + m.Title
	}
	return m.Title
}

// TerminateSession stops a transcode/playback session.
func (p *PlexAdapter) TerminateSession(ctx context.Context, sessionID, reason string) error {
	if reason == "" {
		reason = "Terminated by administrator"
	}
	q := url.Values{}
	q.Set("sessionId", sessionID)
	q.Set("reason", reason)
	return p.client.do(ctx, requestConfig{
		op:     "terminate session",
		path:   "/status/sessions/terminate",
		query:  q,
		accept: acceptNoContent,
	}, nil)
}

// GetFormattedSessions returns active sessions ready for display.
func (p *PlexAdapter) GetFormattedSessions(ctx context.Context) ([]models.FormattedSession, error) {
	sessions, err := p.GetActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	return p.formatSessions(sessions), nil
}

// GetLibraryContent lists one page of a section's top-level items.
func (p *PlexAdapter) GetLibraryContent(ctx context.Context, libraryID string, cq ContentQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(cq.Page, cq.PerPage, 24)

	q := url.Values{}
	q.Set("X-Plex-Container-Start", strconv.Itoa((page-1)*perPage))
	q.Set("X-Plex-Container-Size", strconv.Itoa(perPage))
	if cq.Search != "" {
		q.Set("title", cq.Search)
	}
	if s := plexSort(cq.Sort); s != "" {
		q.Set("sort", s)
	}

	var resp plexMetadataResponse
	if err := p.client.do(ctx, requestConfig{
		op:    "library content",
		path:  "/library/sections/" + url.PathEscape(libraryID) + "/all",
		query: q,
	}, &resp); err != nil {
		return nil, err
	}
	return p.page(&resp, page, perPage), nil
}

// GetShowEpisodes lists every leaf (episode) under a show.
func (p *PlexAdapter) GetShowEpisodes(ctx context.Context, showID string, eq EpisodeQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(eq.Page, eq.PerPage, 24)

	q := url.Values{}
	q.Set("X-Plex-Container-Start", strconv.Itoa((page-1)*perPage))
	q.Set("X-Plex-Container-Size", strconv.Itoa(perPage))
	if eq.Search != "" {
		q.Set("title", eq.Search)
	}

	var resp plexMetadataResponse
	if err := p.client.do(ctx, requestConfig{
		op:    "show episodes",
		path:  "/library/metadata/" + url.PathEscape(showID) + "/allLeaves",
		query: q,
	}, &resp); err != nil {
		return nil, err
	}
	return p.page(&resp, page, perPage), nil
}

func (p *PlexAdapter) page(resp *plexMetadataResponse, page, perPage int) *models.ContentPage {
	items := make([]models.MediaRecord, 0, len(resp.MediaContainer.Metadata))
	for i := range resp.MediaContainer.Metadata {
		items = append(items, plexRecord(&resp.MediaContainer.Metadata[i]))
	}
	total := resp.MediaContainer.TotalSize
	if total == 0 {
		total = (page-1)*perPage + len(items)
	}
	return models.NewContentPage(p.records(items), total, page, perPage)
}

func plexRecord(m *plexMetadata) models.MediaRecord {
	rating := m.Rating
	if rating == 0 {
		rating = m.AudienceRating
	}
	rec := models.MediaRecord{
		ID:              m.RatingKey,
		Title:           m.Title,
		Type:            strings.ToLower(m.Type),
		Year:            intPtr(m.Year),
		Summary:         m.Summary,
		DurationSeconds: secondsPtr(MillisToSeconds(m.Duration)),
		AddedAt:         unixSeconds(m.AddedAt),
		Thumb:           m.Thumb,
		RatingKey:       m.RatingKey,
		SortTitle:       m.TitleSort,
		Rating:          floatPtr(rating),
		Raw:             rawJSON(m),
	}
	if rec.Type == models.ItemTypeEpisode {
		rec.ParentID = m.GrandparentRatingKey
		rec.SeasonNumber = intPtr(m.ParentIndex)
		rec.EpisodeNumber = intPtr(m.Index)
	}
	return rec
}

func plexSort(key models.SortKey) string {
	var field string
	switch key.Field() {
	case "title":
		field = "titleSort"
	case "year":
		field = "year"
	case "added_at":
		field = "addedAt"
	case "rating":
		field = "rating"
	default:
		return ""
	}
	if key.Descending() {
		return field + ":desc"
	}
	return field
}
