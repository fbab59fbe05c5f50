// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
kavita.go - Kavita adapter

Kavita does not accept its API key as a bearer token. The key is exchanged
for a JWT through the plugin authentication endpoint; the JWT is cached in
the shared TokenStore and refreshed on expiry or on a 401.

Library ids are compound ("{id}_{name}") so that access lists stay readable
and survive id reuse; the numeric part is what Kavita's own API expects.
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

	"github.com/tomtom215/mediacatalog/internal/cache"
	"github.com/tomtom215/mediacatalog/internal/identity"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// kavitaDefaultTokenLifetime is used when the JWT carries no exp claim.
const kavitaDefaultTokenLifetime = 10 * time.Minute

// kavitaLibraryTypes maps Kavita's LibraryType enum.
var kavitaLibraryTypes = map[string]string{
	"0": "manga",
	"1": "comic",
	"2": "book",
	"3": "image",
	"4": "lightnovel",
	"5": "comic",
}

// KavitaAdapter implements Service for Kavita.
type KavitaAdapter struct {
	base
	tokens *tokenSource
}

var _ Service = (*KavitaAdapter)(nil)

// NewKavitaAdapter creates a Kavita adapter for server.
func NewKavitaAdapter(server *models.MediaServer, opts Options) *KavitaAdapter {
	k := &KavitaAdapter{base: newBase(server, opts, nil)}

	plugin := opts.KavitaPluginName
	if plugin == "" {
		plugin = "mediacatalog"
	}
	store := opts.Tokens
	if store == nil {
		store = cache.NewMemoryTokenStore(time.Minute)
	}

	k.tokens = &tokenSource{
		store:           store,
		key:             cache.TokenKey(string(models.ServiceKavita), k.client.baseURL, server.APIKey),
		serviceType:     models.ServiceKavita,
		defaultLifetime: kavitaDefaultTokenLifetime,
		now:             opts.now,
		exchange: func(ctx context.Context) (string, time.Duration, error) {
			q := url.Values{}
			q.Set("apiKey", server.APIKey)
			q.Set("pluginName", plugin)
			var resp struct {
				Token string `json:"token"`
			}
			if err := k.client.do(ctx, requestConfig{
				op:     "plugin authenticate",
				method: http.MethodPost,
				path:   "/api/Plugin/authenticate",
				query:  q,
			}, &resp); err != nil {
				return "", 0, err
			}
			return resp.Token, 0, nil
		},
	}
	return k
}

// call performs an authenticated request and re-authenticates once when the
// cached token was rejected.
func (k *KavitaAdapter) call(ctx context.Context, cfg requestConfig, result interface{}) error {
	err := k.callOnce(ctx, cfg, result)
	if errors.Is(err, ErrUnauthorized) {
		k.log.Debug().Str("op", cfg.op).Msg("Kavita token rejected, re-authenticating")
		k.tokens.Invalidate(ctx)
		err = k.callOnce(ctx, cfg, result)
	}
	return err
}

func (k *KavitaAdapter) callOnce(ctx context.Context, cfg requestConfig, result interface{}) error {
	token, err := k.tokens.Token(ctx)
	if err != nil {
		return err
	}
	cfg.header = http.Header{"Authorization": []string{"Bearer " + token}}
	return k.client.do(ctx, cfg, result)
}

// Kavita API response structures

type kavitaLibrary struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Type        flexID `json:"type"`
	SeriesCount int    `json:"seriesCount"`
}

type kavitaUser struct {
	ID       flexID   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// TestConnection reads the server version.
func (k *KavitaAdapter) TestConnection(ctx context.Context) (string, error) {
	// Newer servers answer with a bare JSON string, older ones with an object.
	var raw interface{}
	if err := k.call(ctx, requestConfig{op: "server version", path: "/api/Server/version"}, &raw); err != nil {
		return "", err
	}
	version := "unknown"
	switch v := raw.(type) {
	case string:
		version = v
	case map[string]interface{}:
		if s, ok := v["version"].(string); ok {
			version = s
		}
	}
	return fmt.Sprintf("Connected to Kavita (v%s)", version), nil
}

// GetLibraries lists libraries with compound ids.
func (k *KavitaAdapter) GetLibraries(ctx context.Context) ([]models.Library, error) {
	var raw []kavitaLibrary
	if err := k.call(ctx, requestConfig{op: "libraries", path: "/api/Library"}, &raw); err != nil {
		return nil, err
	}

	libs := make([]models.Library, 0, len(raw))
	for _, l := range raw {
		id := l.ID.String()
		libs = append(libs, models.Library{
			ID:         identity.EncodeCompound(id, l.Name),
			Name:       l.Name,
			Type:       kavitaLibraryType(l.Type.String()),
			ItemCount:  l.SeriesCount,
			ExternalID: id,
		})
	}
	return k.libraries(libs), nil
}

func kavitaLibraryType(t string) string {
	if mapped, ok := kavitaLibraryTypes[t]; ok {
		return mapped
	}
	if t == "" {
		return "book"
	}
	return strings.ToLower(t)
}

// GetUsers lists users and their library grants in compound form.
func (k *KavitaAdapter) GetUsers(ctx context.Context) ([]models.User, error) {
	var raw []kavitaUser
	if err := k.call(ctx, requestConfig{op: "users", path: "/api/Account/users"}, &raw); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(raw))
	for _, u := range raw {
		id := u.ID.String()
		if id == "" {
			continue
		}
		libIDs, err := k.userLibraries(ctx, id)
		if err != nil {
			k.log.Warn().Err(err).Str("user_id", id).Msg("Failed to read Kavita user libraries")
		}
		users = append(users, models.User{
			ID:         id,
			UUID:       id,
			Username:   u.Username,
			Email:      u.Email,
			LibraryIDs: libIDs,
			IsAdmin:    hasRole(u.Roles, "Admin"),
		})
	}
	return k.users(users), nil
}

func (k *KavitaAdapter) userLibraries(ctx context.Context, userID string) ([]string, error) {
	var raw []kavitaLibrary
	if err := k.call(ctx, requestConfig{
		op:   "user libraries",
		path: "/api/Account/user/" + url.PathEscape(userID) + "/libraries",
	}, &raw); err != nil {
		return []string{}, err
	}
	ids := make([]string, 0, len(raw))
	for _, l := range raw {
		ids = append(ids, identity.EncodeCompound(l.ID.String(), l.Name))
	}
	return ids, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// CreateUser registers a user and grants the requested libraries.
func (k *KavitaAdapter) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreatedUser, error) {
	var created kavitaUser
	if err := k.call(ctx, requestConfig{
		op:     "register user",
		method: http.MethodPost,
		path:   "/api/Account/register",
		body: map[string]interface{}{
			"username": req.Username,
			"email":    req.Email,
			"password": req.Password,
			"roles":    []string{"Pleb"},
		},
	}, &created); err != nil {
		return nil, err
	}

	id := created.ID.String()
	if id == "" {
		users, err := k.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("look up new kavita user: %w", err)
		}
		for i := range users {
			if strings.EqualFold(users[i].Username, req.Username) {
				id = users[i].ID
				break
			}
		}
		if id == "" {
			return nil, fmt.Errorf("kavita register user returned no id for %s", req.Username)
		}
	}

	if len(req.LibraryIDs) > 0 {
		if err := k.grant(ctx, id, req.LibraryIDs); err != nil {
			return nil, err
		}
	}
	return &models.CreatedUser{ID: id, Username: req.Username, Email: req.Email}, nil
}

// UpdateUserAccess revokes all grants and re-grants libraryIDs. Compound and
// bare ids are accepted. An all-libraries list grants every library.
func (k *KavitaAdapter) UpdateUserAccess(ctx context.Context, userID string, libraryIDs []string) error {
	uid, err := strconv.Atoi(userID)
	if err != nil {
		return fmt.Errorf("kavita user id %q is not numeric: %w", userID, err)
	}
	if err := k.call(ctx, requestConfig{
		op:     "revoke library access",
		method: http.MethodPost,
		path:   "/api/Account/revoke-all-library-access",
		body:   map[string]int{"userId": uid},
		accept: acceptNoContent,
	}, nil); err != nil {
		return err
	}

	if wantsAllLibraries(libraryIDs) {
		libs, err := k.GetLibraries(ctx)
		if err != nil {
			return err
		}
		libraryIDs = make([]string, 0, len(libs))
		for i := range libs {
			libraryIDs = append(libraryIDs, libs[i].ExternalID)
		}
	}
	return k.grant(ctx, userID, libraryIDs)
}

func (k *KavitaAdapter) grant(ctx context.Context, userID string, libraryIDs []string) error {
	uid, err := strconv.Atoi(userID)
	if err != nil {
		return fmt.Errorf("kavita user id %q is not numeric: %w", userID, err)
	}

	var byName map[string]string
	for _, entry := range libraryIDs {
		num := kavitaLibraryNumber(entry)
		if num == "" {
			if byName == nil {
				byName, err = k.libraryNames(ctx)
				if err != nil {
					return err
				}
			}
			num = byName[strings.ToLower(strings.TrimSpace(entry))]
		}
		lid, err := strconv.Atoi(num)
		if err != nil {
			k.log.Warn().Str("library", entry).Msg("Skipping unknown Kavita library in grant")
			continue
		}
		if err := k.call(ctx, requestConfig{
			op:     "grant library access",
			method: http.MethodPost,
			path:   "/api/Account/grant-library-access",
			body:   map[string]int{"userId": uid, "libraryId": lid},
			accept: acceptNoContent,
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

// kavitaLibraryNumber returns the numeric id of a compound or bare id.
func kavitaLibraryNumber(entry string) string {
	entry = strings.TrimSpace(entry)
	if id, _, ok := identity.DecodeCompound(entry); ok {
		return id
	}
	if _, err := strconv.Atoi(entry); err == nil {
		return entry
	}
	return ""
}

func (k *KavitaAdapter) libraryNames(ctx context.Context) (map[string]string, error) {
	libs, err := k.GetLibraries(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(libs))
	for i := range libs {
		out[strings.ToLower(libs[i].Name)] = libs[i].ExternalID
	}
	return out, nil
}

// DeleteUser removes a user.
func (k *KavitaAdapter) DeleteUser(ctx context.Context, userID string) error {
	uid, err := strconv.Atoi(userID)
	if err != nil {
		return fmt.Errorf("kavita user id %q is not numeric: %w", userID, err)
	}
	return k.call(ctx, requestConfig{
		op:     "delete user",
		method: http.MethodPost,
		path:   "/api/Account/delete-user",
		body:   map[string]int{"userId": uid},
		accept: acceptNoContent,
	}, nil)
}

// CheckUsernameExists checks the user list.
func (k *KavitaAdapter) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	var raw []kavitaUser
	if err := k.call(ctx, requestConfig{op: "users", path: "/api/Account/users"}, &raw); err != nil {
		return false, err
	}
	for _, u := range raw {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

// GetActiveSessions returns an empty list; Kavita has no session tracking.
func (k *KavitaAdapter) GetActiveSessions(context.Context) ([]models.Session, error) {
	return []models.Session{}, nil
}

// TerminateSession is not supported by Kavita.
func (k *KavitaAdapter) TerminateSession(context.Context, string, string) error {
	return fmt.Errorf("kavita terminate session: %w", ErrUnsupported)
}

// GetFormattedSessions returns an empty list.
func (k *KavitaAdapter) GetFormattedSessions(context.Context) ([]models.FormattedSession, error) {
	return []models.FormattedSession{}, nil
}
