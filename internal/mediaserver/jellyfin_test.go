// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/tomtom215/mediacatalog/internal/models"
)

const jellyfinFoldersResponse = `[
	{"Name":"Movies","ItemId":"lib-movies","CollectionType":"movies"},
	{"Name":"Shows","ItemId":"lib-shows","CollectionType":"tvshows"},
	{"Name":"Legacy","CollectionType":"music"}
]`

const jellyfinUsersResponse = `[
	{"Id":"u1","Name":"admin","Policy":{"IsAdministrator":true,"EnableAllFolders":true,"EnabledFolders":[]}},
	{"Id":"u2","Name":"kid","Policy":{"IsAdministrator":false,"EnableAllFolders":false,"EnabledFolders":["lib-shows"]}}
]`

// jellyfinMux serves the Jellyfin API under prefix and records the last
// policy update.
type jellyfinFake struct {
	t      *testing.T
	prefix string

	mu     sync.Mutex
	policy map[string]interface{}
}

func (f *jellyfinFake) mux() *http.ServeMux {
	t, p := f.t, f.prefix
	mux := http.NewServeMux()
	mux.HandleFunc(p+"/System/Info", func(w http.ResponseWriter, r *http.Request) {
		checkStringEqual(t, "X-Emby-Token", r.Header.Get("X-Emby-Token"), "test-api-key")
		writeRaw(w, `{"ServerName":"den","Version":"10.9.1","Id":"x"}`)
	})
	mux.HandleFunc(p+"/Library/VirtualFolders", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, jellyfinFoldersResponse)
	})
	mux.HandleFunc(p+"/Items", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("Limit") == "0" {
			writeRaw(w, `{"Items":[],"TotalRecordCount":12}`)
			return
		}
		checkStringEqual(t, "ParentId", q.Get("ParentId"), "lib-shows")
		checkStringEqual(t, "IncludeItemTypes", q.Get("IncludeItemTypes"), "Series")
		checkStringEqual(t, "StartIndex", q.Get("StartIndex"), "0")
		checkStringEqual(t, "SortBy", q.Get("SortBy"), "SortName")
		checkStringEqual(t, "SortOrder", q.Get("SortOrder"), "Descending")
		checkStringEqual(t, "SearchTerm", q.Get("SearchTerm"), "office")
		writeRaw(w, `{"Items":[
			{"Id":"show-1","Name":"The Office","SortName":"Office","Type":"Series","ProductionYear":2005,"DateCreated":"2023-01-02T03:04:05.0000000Z","CommunityRating":8.5,"ImageTags":{"Primary":"tag1"}}
		],"TotalRecordCount":1}`)
	})
	mux.HandleFunc(p+"/Shows/show-1/Episodes", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `{"Items":[
			{"Id":"ep-1","Name":"Pilot","Type":"Episode","SeriesId":"show-1","ParentIndexNumber":1,"IndexNumber":1,"RunTimeTicks":13200000000},
			{"Id":"ep-2","Name":"Diversity Day","Type":"Episode","ParentIndexNumber":1,"IndexNumber":2}
		],"TotalRecordCount":2}`)
	})
	mux.HandleFunc(p+"/Users", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, jellyfinUsersResponse)
	})
	mux.HandleFunc(p+"/Users/u2", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeRaw(w, `{"Id":"u2","Name":"kid","Policy":{"IsAdministrator":false,"EnableAllFolders":false,"EnabledFolders":["lib-shows"],"EnableDownloads":true}}`)
	})
	mux.HandleFunc(p+"/Users/u2/Policy", func(w http.ResponseWriter, r *http.Request) {
		checkStringEqual(t, "method", r.Method, http.MethodPost)
		body := decodeBody(t, r)
		f.mu.Lock()
		f.policy = body
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc(p+"/Sessions", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[
			{"Id":"s1","UserId":"u2","UserName":"kid","Client":"Jellyfin Web","DeviceName":"Tablet",
			 "NowPlayingItem":{"Id":"ep-1","Name":"Pilot","Type":"Episode","SeriesName":"The Office","RunTimeTicks":12000000000},
			 "PlayState":{"PositionTicks":3000000000,"IsPaused":true}},
			{"Id":"s2","UserName":"idle"}
		]`)
	})
	mux.HandleFunc(p+"/Sessions/s1/Playing/Stop", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestJellyfinGetLibraries(t *testing.T) {
	fake := &jellyfinFake{t: t}
	server := newTestServer(t, models.ServiceJellyfin, fake.mux())
	j := NewJellyfinAdapter(server, Options{})

	libs, err := j.GetLibraries(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "libraries", len(libs), 3)
	checkStringEqual(t, "ID", libs[0].ID, "lib-movies")
	checkStringEqual(t, "Type", libs[0].Type, "movie")
	checkIntEqual(t, "ItemCount", libs[0].ItemCount, 12)
	checkStringEqual(t, "Type", libs[1].Type, "show")

	// Folders without an ItemId fall back to the name and are not counted.
	checkStringEqual(t, "ID fallback", libs[2].ID, "Legacy")
	checkIntEqual(t, "ItemCount", libs[2].ItemCount, 0)
}

func TestJellyfinUsersWildcard(t *testing.T) {
	fake := &jellyfinFake{t: t}
	server := newTestServer(t, models.ServiceJellyfin, fake.mux())
	users, err := NewJellyfinAdapter(server, Options{}).GetUsers(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "users", len(users), 2)
	checkStrings(t, "admin libraries", users[0].LibraryIDs, []string{"*"})
	checkTrue(t, "admin flag", users[0].IsAdmin)
	checkStrings(t, "kid libraries", users[1].LibraryIDs, []string{"lib-shows"})
}

func TestJellyfinUpdateUserAccess(t *testing.T) {
	tests := []struct {
		name        string
		ids         []string
		wantAll     bool
		wantFolders int
	}{
		{"wildcard", []string{"*"}, true, 0},
		{"empty", nil, true, 0},
		{"explicit", []string{"lib-movies", "lib-shows"}, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &jellyfinFake{t: t}
			server := newTestServer(t, models.ServiceJellyfin, fake.mux())
			checkNoError(t, NewJellyfinAdapter(server, Options{}).UpdateUserAccess(context.Background(), "u2", tt.ids))

			fake.mu.Lock()
			defer fake.mu.Unlock()
			checkTrue(t, "policy posted", fake.policy != nil)
			checkTrue(t, "EnableAllFolders", fake.policy["EnableAllFolders"] == tt.wantAll)
			folders, _ := fake.policy["EnabledFolders"].([]interface{})
			checkIntEqual(t, "EnabledFolders", len(folders), tt.wantFolders)
			// Unrelated policy fields are preserved.
			checkTrue(t, "EnableDownloads kept", fake.policy["EnableDownloads"] == true)
		})
	}
}

func TestJellyfinGetLibraryContent(t *testing.T) {
	fake := &jellyfinFake{t: t}
	server := newTestServer(t, models.ServiceJellyfin, fake.mux())
	j := NewJellyfinAdapter(server, Options{})

	page, err := j.GetLibraryContent(context.Background(), "lib-shows", ContentQuery{Page: 1, PerPage: 10, Search: "office", Sort: models.SortTitleDesc})
	checkNoError(t, err)
	checkIntEqual(t, "items", len(page.Items), 1)
	item := page.Items[0]
	checkStringEqual(t, "Type", item.Type, models.ItemTypeShow)
	checkStringEqual(t, "SortTitle", item.SortTitle, "Office")
	checkIntPtrEqual(t, "Year", item.Year, 2005)
	checkTrue(t, "AddedAt parsed", item.AddedAt != nil && item.AddedAt.Year() == 2023)
	checkStringEqual(t, "Thumb", item.Thumb, "/Items/show-1/Images/Primary?tag=tag1")
}

func TestJellyfinGetShowEpisodes(t *testing.T) {
	fake := &jellyfinFake{t: t}
	server := newTestServer(t, models.ServiceJellyfin, fake.mux())

	page, err := NewJellyfinAdapter(server, Options{}).GetShowEpisodes(context.Background(), "show-1", EpisodeQuery{PerPage: 1000})
	checkNoError(t, err)
	checkIntEqual(t, "episodes", len(page.Items), 2)
	checkIntPtrEqual(t, "Duration", page.Items[0].DurationSeconds, 1320)
	// Missing SeriesId falls back to the requested show.
	checkStringEqual(t, "ParentID", page.Items[1].ParentID, "show-1")
	checkIntPtrEqual(t, "Episode", page.Items[1].EpisodeNumber, 2)
}

func TestJellyfinSessions(t *testing.T) {
	fake := &jellyfinFake{t: t}
	server := newTestServer(t, models.ServiceJellyfin, fake.mux())
	j := NewJellyfinAdapter(server, Options{})

	sessions, err := j.GetActiveSessions(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "sessions", len(sessions), 1)
	s := sessions[0]
	checkStringEqual(t, "State", s.State, "paused")
	checkStringEqual(t, "MediaTitle", s.MediaTitle, "The Office - Pilot")
	checkIntEqual(t, "Position", s.PositionSeconds, 300)
	checkIntEqual(t, "Duration", s.DurationSeconds, 1200)

	checkNoError(t, j.TerminateSession(context.Background(), "s1", ""))
}

func TestEmbyPrefixAndEmptyMarker(t *testing.T) {
	fake := &jellyfinFake{t: t, prefix: "/emby"}
	server := newTestServer(t, models.ServiceEmby, fake.mux())
	e := NewEmbyAdapter(server, Options{})

	msg, err := e.TestConnection(context.Background())
	checkNoError(t, err)
	checkStringEqual(t, "message", msg, "Connected to Emby den (v10.9.1)")

	libs, err := e.GetLibraries(context.Background())
	checkNoError(t, err)
	for _, l := range libs {
		checkIntEqual(t, "emby item count", l.ItemCount, 0)
	}

	users, err := e.GetUsers(context.Background())
	checkNoError(t, err)
	checkTrue(t, "emby all-folders is an empty list", users[0].LibraryIDs != nil && len(users[0].LibraryIDs) == 0)
	checkStringEqual(t, "service type", string(e.ServiceType()), "emby")
}
