// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
jellyfin.go - Jellyfin and Emby adapter

Jellyfin forked from Emby and both still share the same REST surface, so one
adapter serves both. The differences are captured in jellyfinFlavor:

  - Emby servers are commonly mounted under /emby
  - Jellyfin stores unrestricted access as ["*"], Emby as []
  - Item counts are only requested from Jellyfin

Units: runtimes and positions are 100-ns ticks.
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

type jellyfinFlavor struct {
	name       string
	pathPrefix string
	allMarker  []string
	countItems bool
}

var (
	jellyfinServer = jellyfinFlavor{name: "Jellyfin", allMarker: []string{models.WildcardLibraryID}, countItems: true}
	embyServer     = jellyfinFlavor{name: "Emby", pathPrefix: "/emby", allMarker: []string{}}
)

// JellyfinAdapter implements Service, ContentBrowser and EpisodeBrowser for
// Jellyfin and Emby.
type JellyfinAdapter struct {
	base
	flavor jellyfinFlavor
}

var (
	_ Service        = (*JellyfinAdapter)(nil)
	_ ContentBrowser = (*JellyfinAdapter)(nil)
	_ EpisodeBrowser = (*JellyfinAdapter)(nil)
)

// NewJellyfinAdapter creates a Jellyfin adapter for server.
func NewJellyfinAdapter(server *models.MediaServer, opts Options) *JellyfinAdapter {
	return newJellyfinFamily(server, opts, jellyfinServer)
}

func newJellyfinFamily(server *models.MediaServer, opts Options, flavor jellyfinFlavor) *JellyfinAdapter {
	apiKey := server.APIKey
	return &JellyfinAdapter{
		base: newBase(server, opts, func(req *http.Request) {
			req.Header.Set("X-Emby-Token", apiKey)
			req.Header.Set("X-Emby-Authorization",
				fmt.Sprintf(`MediaBrowser Client="Media Catalog", Device="Server", DeviceId="mediacatalog", Version="1.0", Token="%s"`, apiKey))
		}),
		flavor: flavor,
	}
}

func (j *JellyfinAdapter) path(p string) string {
	return j.flavor.pathPrefix + p
}

// Jellyfin API response structures

type jellyfinSystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

type jellyfinVirtualFolder struct {
	Name           string `json:"Name"`
	ItemID         string `json:"ItemId"`
	CollectionType string `json:"CollectionType"`
}

type jellyfinUser struct {
	ID       string                 `json:"Id"`
	Name     string                 `json:"Name"`
	Policy   map[string]interface{} `json:"Policy"`
	ImageTag string                 `json:"PrimaryImageTag,omitempty"`
}

type jellyfinItemsResponse struct {
	Items            []jellyfinItem `json:"Items"`
	TotalRecordCount int            `json:"TotalRecordCount"`
}

type jellyfinItem struct {
	ID                string             `json:"Id"`
	Name              string             `json:"Name"`
	SortName          string             `json:"SortName,omitempty"`
	Type              string             `json:"Type"`
	Overview          string             `json:"Overview,omitempty"`
	ProductionYear    int                `json:"ProductionYear,omitempty"`
	CommunityRating   float64            `json:"CommunityRating,omitempty"`
	RunTimeTicks      int64              `json:"RunTimeTicks,omitempty"`
	DateCreated       string             `json:"DateCreated,omitempty"`
	PremiereDate      string             `json:"PremiereDate,omitempty"`
	SeriesID          string             `json:"SeriesId,omitempty"`
	SeriesName        string             `json:"SeriesName,omitempty"`
	IndexNumber       int                `json:"IndexNumber,omitempty"`
	ParentIndexNumber int                `json:"ParentIndexNumber,omitempty"`
	ImageTags         map[string]string  `json:"ImageTags,omitempty"`
	UserData          *jellyfinUserState `json:"UserData,omitempty"`
}

type jellyfinUserState struct {
	PlaybackPositionTicks int64 `json:"PlaybackPositionTicks"`
	Played                bool  `json:"Played"`
}

type jellyfinSession struct {
	ID             string        `json:"Id"`
	UserID         string        `json:"UserId"`
	UserName       string        `json:"UserName"`
	Client         string        `json:"Client"`
	DeviceName     string        `json:"DeviceName"`
	RemoteEndPoint string        `json:"RemoteEndPoint"`
	NowPlayingItem *jellyfinItem `json:"NowPlayingItem"`
	PlayState      struct {
		PositionTicks int64 `json:"PositionTicks"`
		IsPaused      bool  `json:"IsPaused"`
	} `json:"PlayState"`
}

// TestConnection reads /System/Info.
func (j *JellyfinAdapter) TestConnection(ctx context.Context) (string, error) {
	var info jellyfinSystemInfo
	if err := j.client.do(ctx, requestConfig{op: "system info", path: j.path("/System/Info")}, &info); err != nil {
		return "", err
	}
	return fmt.Sprintf("Connected to %s %s (v%s)", j.flavor.name, info.ServerName, info.Version), nil
}

// GetLibraries lists virtual folders.
func (j *JellyfinAdapter) GetLibraries(ctx context.Context) ([]models.Library, error) {
	var folders []jellyfinVirtualFolder
	if err := j.client.do(ctx, requestConfig{op: "libraries", path: j.path("/Library/VirtualFolders")}, &folders); err != nil {
		return nil, err
	}

	libs := make([]models.Library, 0, len(folders))
	for _, f := range folders {
		id := f.ItemID
		if id == "" {
			id = f.Name
		}
		lib := models.Library{
			ID:         id,
			Name:       f.Name,
			Type:       jellyfinLibraryType(f.CollectionType),
			ExternalID: id,
		}
		if j.flavor.countItems && f.ItemID != "" {
			count, err := j.countItems(ctx, f.ItemID)
			if err != nil {
				j.log.Warn().Err(err).Str("library", f.Name).Msg("Failed to count library items")
			}
			lib.ItemCount = count
		}
		libs = append(libs, lib)
	}
	return j.libraries(libs), nil
}

func (j *JellyfinAdapter) countItems(ctx context.Context, parentID string) (int, error) {
	q := url.Values{}
	q.Set("ParentId", parentID)
	q.Set("Recursive", "true")
	q.Set("Limit", "0")
	var resp jellyfinItemsResponse
	if err := j.client.do(ctx, requestConfig{op: "item count", path: j.path("/Items"), query: q}, &resp); err != nil {
		return 0, err
	}
	return resp.TotalRecordCount, nil
}

func jellyfinLibraryType(collectionType string) string {
	switch strings.ToLower(collectionType) {
	case "tvshows":
		return "show"
	case "movies":
		return "movie"
	case "music":
		return "music"
	case "books":
		return "book"
	case "homevideos", "photos":
		return "photo"
	case "":
		return "mixed"
	default:
		return strings.ToLower(collectionType)
	}
}

// GetUsers lists users with their folder access from the inline policy.
func (j *JellyfinAdapter) GetUsers(ctx context.Context) ([]models.User, error) {
	var raw []jellyfinUser
	if err := j.client.do(ctx, requestConfig{op: "users", path: j.path("/Users")}, &raw); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(raw))
	for i := range raw {
		u := &raw[i]
		users = append(users, models.User{
			ID:         u.ID,
			UUID:       u.ID,
			Username:   u.Name,
			LibraryIDs: j.policyLibraries(u.Policy),
			IsAdmin:    policyBool(u.Policy, "IsAdministrator"),
		})
	}
	return j.users(users), nil
}

func (j *JellyfinAdapter) policyLibraries(policy map[string]interface{}) []string {
	if policy == nil || policyBool(policy, "EnableAllFolders") {
		return append(make([]string, 0, len(j.flavor.allMarker)), j.flavor.allMarker...)
	}
	folders, _ := policy["EnabledFolders"].([]interface{})
	ids := make([]string, 0, len(folders))
	for _, f := range folders {
		if s, ok := f.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

func policyBool(policy map[string]interface{}, key string) bool {
	v, _ := policy[key].(bool)
	return v
}

// CreateUser creates a user and applies the initial folder selection.
func (j *JellyfinAdapter) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreatedUser, error) {
	var created jellyfinUser
	if err := j.client.do(ctx, requestConfig{
		op:     "create user",
		method: http.MethodPost,
		path:   j.path("/Users/New"),
		body:   map[string]string{"Name": req.Username, "Password": req.Password},
	}, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%s create user returned no id", strings.ToLower(j.flavor.name))
	}

	if len(req.LibraryIDs) > 0 {
		if err := j.UpdateUserAccess(ctx, created.ID, req.LibraryIDs); err != nil {
			return nil, fmt.Errorf("set access for new user %s: %w", req.Username, err)
		}
	}
	return &models.CreatedUser{ID: created.ID, Username: created.Name, Email: req.Email}, nil
}

// UpdateUserAccess rewrites the folder part of the user's policy. The rest
// of the policy is sent back unchanged.
func (j *JellyfinAdapter) UpdateUserAccess(ctx context.Context, userID string, libraryIDs []string) error {
	var user jellyfinUser
	if err := j.client.do(ctx, requestConfig{op: "get user", path: j.path("/Users/" + url.PathEscape(userID))}, &user); err != nil {
		return err
	}
	policy := user.Policy
	if policy == nil {
		policy = map[string]interface{}{}
	}

	if wantsAllLibraries(libraryIDs) {
		policy["EnableAllFolders"] = true
		policy["EnabledFolders"] = []string{}
	} else {
		policy["EnableAllFolders"] = false
		policy["EnabledFolders"] = libraryIDs
	}

	return j.client.do(ctx, requestConfig{
		op:     "update policy",
		method: http.MethodPost,
		path:   j.path("/Users/" + url.PathEscape(userID) + "/Policy"),
		body:   policy,
		accept: acceptNoContent,
	}, nil)
}

// DeleteUser removes a user.
func (j *JellyfinAdapter) DeleteUser(ctx context.Context, userID string) error {
	return j.client.do(ctx, requestConfig{
		op:     "delete user",
		method: http.MethodDelete,
		path:   j.path("/Users/" + url.PathEscape(userID)),
		accept: acceptNoContent,
	}, nil)
}

// CheckUsernameExists checks the user list.
func (j *JellyfinAdapter) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	users, err := j.GetUsers(ctx)
	if err != nil {
		return false, err
	}
	return usernameTaken(users, username), nil
}

// GetActiveSessions lists sessions that are currently playing something.
func (j *JellyfinAdapter) GetActiveSessions(ctx context.Context) ([]models.Session, error) {
	var raw []jellyfinSession
	if err := j.client.do(ctx, requestConfig{op: "sessions", path: j.path("/Sessions")}, &raw); err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(raw))
	for i := range raw {
		s := &raw[i]
		if s.NowPlayingItem == nil {
			continue
		}
		state := "playing"
		if s.PlayState.IsPaused {
			state = "paused"
		}
		title := s.NowPlayingItem.Name
		if s.NowPlayingItem.SeriesName != "" {
			title = s.NowPlayingItem.SeriesName + " - " + title
		}
		sessions = append(sessions, models.Session{
			SessionID:       s.ID,
			UserID:          s.UserID,
			UserName:        s.UserName,
			MediaTitle:      title,
			MediaType:       jellyfinItemType(s.NowPlayingItem.Type),
			State:           state,
			PositionSeconds: TicksToSeconds(s.PlayState.PositionTicks),
			DurationSeconds: TicksToSeconds(s.NowPlayingItem.RunTimeTicks),
			Client:          s.Client,
			Device:          s.DeviceName,
			IPAddress:       s.RemoteEndPoint,
		})
	}
	return sessions, nil
}

// TerminateSession stops playback. Jellyfin has no reason field; a message
// is sent first when a reason is given.
func (j *JellyfinAdapter) TerminateSession(ctx context.Context, sessionID, reason string) error {
	if reason != "" {
		err := j.client.do(ctx, requestConfig{
			op:     "session message",
			method: http.MethodPost,
			path:   j.path("/Sessions/" + url.PathEscape(sessionID) + "/Message"),
			body:   map[string]interface{}{"Header": "Playback stopped", "Text": reason, "TimeoutMs": 5000},
			accept: acceptNoContent,
		}, nil)
		if err != nil {
			j.log.Debug().Err(err).Str("session", sessionID).Msg("Failed to send stop message")
		}
	}
	return j.client.do(ctx, requestConfig{
		op:     "stop session",
		method: http.MethodPost,
		path:   j.path("/Sessions/" + url.PathEscape(sessionID) + "/Playing/Stop"),
		accept: acceptNoContent,
	}, nil)
}

// GetFormattedSessions returns active sessions ready for display.
func (j *JellyfinAdapter) GetFormattedSessions(ctx context.Context) ([]models.FormattedSession, error) {
	sessions, err := j.GetActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	return j.formatSessions(sessions), nil
}

// GetLibraryContent lists one page of a library's top-level items.
func (j *JellyfinAdapter) GetLibraryContent(ctx context.Context, libraryID string, cq ContentQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(cq.Page, cq.PerPage, 24)

	q := url.Values{}
	q.Set("ParentId", libraryID)
	q.Set("Recursive", "true")
	q.Set("StartIndex", strconv.Itoa((page-1)*perPage))
	q.Set("Limit", strconv.Itoa(perPage))
	q.Set("Fields", "Overview,DateCreated,SortName,PremiereDate")
	sortBy, order := jellyfinSort(cq.Sort)
	q.Set("SortBy", sortBy)
	q.Set("SortOrder", order)
	if cq.Search != "" {
		q.Set("SearchTerm", cq.Search)
	}
	if types := j.includeTypes(ctx, libraryID); types != "" {
		q.Set("IncludeItemTypes", types)
	} else {
		q.Set("ExcludeItemTypes", "Episode,Season,Folder,CollectionFolder")
	}

	var resp jellyfinItemsResponse
	if err := j.client.do(ctx, requestConfig{op: "library content", path: j.path("/Items"), query: q}, &resp); err != nil {
		return nil, err
	}
	return j.page(&resp, page, perPage), nil
}

// includeTypes picks the top-level item types from the folder's collection
// type. Unknown libraries are left unfiltered.
func (j *JellyfinAdapter) includeTypes(ctx context.Context, libraryID string) string {
	var folders []jellyfinVirtualFolder
	if err := j.client.do(ctx, requestConfig{op: "libraries", path: j.path("/Library/VirtualFolders")}, &folders); err != nil {
		return ""
	}
	for _, f := range folders {
		if f.ItemID != libraryID && f.Name != libraryID {
			continue
		}
		switch strings.ToLower(f.CollectionType) {
		case "tvshows":
			return "Series"
		case "movies":
			return "Movie"
		case "music":
			return "MusicAlbum"
		case "books":
			return "Book,AudioBook"
		}
	}
	return ""
}

// GetShowEpisodes lists a series' episodes.
func (j *JellyfinAdapter) GetShowEpisodes(ctx context.Context, showID string, eq EpisodeQuery) (*models.ContentPage, error) {
	page, perPage := normalizeQuery(eq.Page, eq.PerPage, 24)

	q := url.Values{}
	q.Set("StartIndex", strconv.Itoa((page-1)*perPage))
	q.Set("Limit", strconv.Itoa(perPage))
	q.Set("Fields", "Overview,DateCreated,PremiereDate")

	var resp jellyfinItemsResponse
	if err := j.client.do(ctx, requestConfig{
		op:    "show episodes",
		path:  j.path("/Shows/" + url.PathEscape(showID) + "/Episodes"),
		query: q,
	}, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Items {
		if resp.Items[i].SeriesID == "" {
			resp.Items[i].SeriesID = showID
		}
	}
	return j.page(&resp, page, perPage), nil
}

func (j *JellyfinAdapter) page(resp *jellyfinItemsResponse, page, perPage int) *models.ContentPage {
	items := make([]models.MediaRecord, 0, len(resp.Items))
	for i := range resp.Items {
		items = append(items, jellyfinRecord(&resp.Items[i]))
	}
	total := resp.TotalRecordCount
	if total == 0 {
		total = (page-1)*perPage + len(items)
	}
	return models.NewContentPage(j.records(items), total, page, perPage)
}

func jellyfinRecord(it *jellyfinItem) models.MediaRecord {
	rec := models.MediaRecord{
		ID:              it.ID,
		Title:           it.Name,
		Type:            jellyfinItemType(it.Type),
		Year:            intPtr(it.ProductionYear),
		Summary:         it.Overview,
		DurationSeconds: secondsPtr(TicksToSeconds(it.RunTimeTicks)),
		AddedAt:         parseTimestamp(it.DateCreated),
		RatingKey:       it.ID,
		SortTitle:       it.SortName,
		Rating:          floatPtr(it.CommunityRating),
		Raw:             rawJSON(it),
	}
	if rec.Year == nil {
		rec.Year = yearFromDate(it.PremiereDate)
	}
	if tag, ok := it.ImageTags["Primary"]; ok && tag != "" {
		rec.Thumb = "/Items/" + it.ID + "/Images/Primary?tag=" + url.QueryEscape(tag)
	}
	if rec.Type == models.ItemTypeEpisode {
		rec.ParentID = it.SeriesID
		rec.SeasonNumber = intPtr(it.ParentIndexNumber)
		rec.EpisodeNumber = intPtr(it.IndexNumber)
	}
	return rec
}

func jellyfinItemType(t string) string {
	switch t {
	case "Series":
		return models.ItemTypeShow
	case "MusicAlbum":
		return models.ItemTypeAlbum
	case "MusicArtist":
		return models.ItemTypeArtist
	case "Audio":
		return models.ItemTypeTrack
	case "AudioBook":
		return models.ItemTypeBook
	default:
		return strings.ToLower(t)
	}
}

func jellyfinSort(key models.SortKey) (sortBy, order string) {
	order = "Ascending"
	if key.Descending() {
		order = "Descending"
	}
	switch key.Field() {
	case "year":
		return "ProductionYear,SortName", order
	case "added_at":
		return "DateCreated,SortName", order
	case "rating":
		return "CommunityRating,SortName", order
	default:
		return "SortName", order
	}
}
