// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
romm.go - RomM adapter

RomM issues OAuth2 password-grant tokens from /api/token. Platforms stand in
for libraries. RomM has no per-library access control, so access updates are
accepted and ignored.
*/

package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/cache"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// rommDefaultTokenLifetime applies when the token response has no expires_in.
const rommDefaultTokenLifetime = 15 * time.Minute

// rommScopes is the scope set requested on the password grant.
const rommScopes = "me.read me.write platforms.read roms.read users.read users.write"

// RommAdapter implements Service and ContentBrowser for RomM.
type RommAdapter struct {
	base
	tokens *tokenSource
}

var (
	_ Service        = (*RommAdapter)(nil)
	_ ContentBrowser = (*RommAdapter)(nil)
)

// NewRommAdapter creates a RomM adapter for server.
func NewRommAdapter(server *models.MediaServer, opts Options) *RommAdapter {
	r := &RommAdapter{base: newBase(server, opts, nil)}

	store := opts.Tokens
	if store == nil {
		store = cache.NewMemoryTokenStore(time.Minute)
	}
	r.tokens = &tokenSource{
		store:           store,
		key:             cache.TokenKey(string(models.ServiceRomM), r.client.baseURL, server.Username, server.Password),
		serviceType:     models.ServiceRomM,
		defaultLifetime: rommDefaultTokenLifetime,
		now:             opts.now,
		exchange: func(ctx context.Context) (string, time.Duration, error) {
			form := url.Values{}
			form.Set("grant_type", "password")
			form.Set("username", server.Username)
			form.Set("password", server.Password)
			form.Set("scope", rommScopes)
			var resp struct {
				AccessToken string `json:"access_token"`
				TokenType   string `json:"token_type"`
				ExpiresIn   int64  `json:"expires_in"`
			}
			if err := r.client.do(ctx, requestConfig{
				op:     "token",
				method: http.MethodPost,
				path:   "/api/token",
				form:   form,
			}, &resp); err != nil {
				return "", 0, err
			}
			return resp.AccessToken, time.Duration(resp.ExpiresIn) * time.Second, nil
		},
	}
	return r
}

func (r *RommAdapter) call(ctx context.Context, cfg requestConfig, result interface{}) error {
	err := r.callOnce(ctx, cfg, result)
	if errors.Is(err, ErrUnauthorized) {
		r.tokens.Invalidate(ctx)
		err = r.callOnce(ctx, cfg, result)
	}
	return err
}

func (r *RommAdapter) callOnce(ctx context.Context, cfg requestConfig, result interface{}) error {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return err
	}
	cfg.header = http.Header{"Authorization": []string{"Bearer " + token}}
	return r.client.do(ctx, cfg, result)
}

// RomM API response structures

type rommPlatform struct {
	ID       flexID `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	RomCount int    `json:"rom_count"`
}

type rommUser struct {
	ID       flexID `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Enabled  bool   `json:"enabled"`
}

type rommRom struct {
	ID             flexID  `json:"id"`
	PlatformID     flexID  `json:"platform_id"`
	Name           string  `json:"name"`
	FsName         string  `json:"fs_name"`
	Summary        string  `json:"summary"`
	CreatedAt      string  `json:"created_at"`
	FirstReleaseMS int64   `json:"first_release_date"`
	AverageRating  float64 `json:"average_rating"`
	PathCoverSmall string  `json:"path_cover_small"`
}

// TestConnection reads the authenticated user.
func (r *RommAdapter) TestConnection(ctx context.Context) (string, error) {
	var me rommUser
	if err := r.call(ctx, requestConfig{op: "current user", path: "/api/users/me"}, &me); err != nil {
		return "", err
	}
	return fmt.Sprintf("Connected to RomM as %s", me.Username), nil
}

// GetLibraries lists platforms.
func (r *RommAdapter) GetLibraries(ctx context.Context) ([]models.Library, error) {
	var raw []rommPlatform
	if err := r.call(ctx, requestConfig{op: "platforms", path: "/api/platforms"}, &raw); err != nil {
		return nil, err
	}

	libs := make([]models.Library, 0, len(raw))
	for _, p := range raw {
		id := p.ID.String()
		libs = append(libs, models.Library{
			ID:         id,
			Name:       p.Name,
			Type:       models.ItemTypeGame,
			ItemCount:  p.RomCount,
			ExternalID: id,
		})
	}
	return r.libraries(libs), nil
}

// GetUsers lists users. RomM grants every user every platform.
func (r *RommAdapter) GetUsers(ctx context.Context) ([]models.User, error) {
	var raw []rommUser
	if err := r.call(ctx, requestConfig{op: "users", path: "/api/users"}, &raw); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(raw))
	for _, u := range raw {
		id := u.ID.String()
		users = append(users, models.User{
			ID:         id,
			UUID:       id,
			Username:   u.Username,
			Email:      u.Email,
			LibraryIDs: []string{},
			IsAdmin:    strings.EqualFold(u.Role, "admin"),
		})
	}
	return r.users(users), nil
}

// CreateUser creates a viewer account.
func (r *RommAdapter) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreatedUser, error) {
	q := url.Values{}
	q.Set("username", req.Username)
	q.Set("password", req.Password)
	q.Set("email", req.Email)
	q.Set("role", "viewer")

	var created rommUser
	if err := r.call(ctx, requestConfig{
		op:     "create user",
		method: http.MethodPost,
		path:   "/api/users",
		query:  q,
		accept: acceptNoContent,
	}, &created); err != nil {
		return nil, err
	}
	id := created.ID.String()
	if id == "" {
		return nil, fmt.Errorf("romm create user returned no id for %s", req.Username)
	}
	return &models.CreatedUser{ID: id, Username: created.Username, Email: created.Email}, nil
}

// UpdateUserAccess is accepted without effect; RomM has no per-platform
// access control.
func (r *RommAdapter) UpdateUserAccess(_ context.Context, userID string, libraryIDs []string) error {
	r.log.Debug().Str("user_id", userID).Int("libraries", len(libraryIDs)).Msg("RomM has no library access control, ignoring update")
	return nil
}

// DeleteUser removes a user.
func (r *RommAdapter) DeleteUser(ctx context.Context, userID string) error {
	return r.call(ctx, requestConfig{
		op:     "delete user",
		method: http.MethodDelete,
		path:   "/api/users/" + url.PathEscape(userID),
		accept: acceptNoContent,
	}, nil)
}

// CheckUsernameExists checks the user list.
func (r *RommAdapter) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	users, err := r.GetUsers(ctx)
	if err != nil {
		return false, err
	}
	return usernameTaken(users, username), nil
}

// GetActiveSessions returns an empty list; RomM has no session tracking.
func (r *RommAdapter) GetActiveSessions(context.Context) ([]models.Session, error) {
	return []models.Session{}, nil
}

// TerminateSession is not supported by RomM.
func (r *RommAdapter) TerminateSession(context.Context, string, string) error {
	return fmt.Errorf("romm terminate session: %w", ErrUnsupported)
}

// GetFormattedSessions returns an empty list.
func (r *RommAdapter) GetFormattedSessions(context.Context) ([]models.FormattedSession, error) {
	return []models.FormattedSession{}, nil
}

// GetLibraryContent lists one page of a platform's ROMs. Both the legacy
// bare-list and the paginated {items, total} response shapes are handled.
func (r *RommAdapter) GetLibraryContent(ctx context.Context, libraryID string, cq ContentQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(cq.Page, cq.PerPage, 24)

	q := url.Values{}
	q.Set("platform_id", libraryID)
	q.Set("offset", strconv.Itoa((page-1)*perPage))
	q.Set("limit", strconv.Itoa(perPage))
	if cq.Search != "" {
		q.Set("search_term", cq.Search)
	}
	if field, desc := rommSort(cq.Sort); field != "" {
		q.Set("order_by", field)
		if desc {
			q.Set("order_dir", "desc")
		} else {
			q.Set("order_dir", "asc")
		}
	}

	var raw json.RawMessage
	if err := r.call(ctx, requestConfig{op: "roms", path: "/api/roms", query: q}, &raw); err != nil {
		return nil, err
	}

	roms, total, err := decodeRommRoms(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode romm roms: %w", err)
	}
	if total == 0 {
		total = (page-1)*perPage + len(roms)
	}

	items := make([]models.MediaRecord, 0, len(roms))
	for i := range roms {
		items = append(items, rommRecord(&roms[i]))
	}
	return models.NewContentPage(r.records(items), total, page, perPage), nil
}

func decodeRommRoms(raw json.RawMessage) ([]rommRom, int, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var roms []rommRom
		if err := json.Unmarshal(raw, &roms); err != nil {
			return nil, 0, err
		}
		return roms, 0, nil
	}
	var paged struct {
		Items []rommRom `json:"items"`
		Total int       `json:"total"`
	}
	if err := json.Unmarshal(raw, &paged); err != nil {
		return nil, 0, err
	}
	return paged.Items, paged.Total, nil
}

func rommRecord(rom *rommRom) models.MediaRecord {
	title := rom.Name
	if title == "" {
		title = rom.FsName
	}
	rec := models.MediaRecord{
		ID:        rom.ID.String(),
		Title:     title,
		Type:      models.ItemTypeGame,
		Summary:   rom.Summary,
		AddedAt:   parseTimestamp(rom.CreatedAt),
		Thumb:     rom.PathCoverSmall,
		RatingKey: rom.ID.String(),
		Rating:    floatPtr(rom.AverageRating),
		Raw:       rawJSON(rom),
	}
	if released := unixMillis(rom.FirstReleaseMS); released != nil {
		y := released.Year()
		rec.Year = &y
	}
	return rec
}

func rommSort(key models.SortKey) (string, bool) {
	switch key.Field() {
	case "title":
		return "name", key.Descending()
	case "added_at":
		return "created_at", key.Descending()
	case "rating":
		return "average_rating", key.Descending()
	}
	return "", false
}
