// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/tomtom215/mediacatalog/internal/models"
)

func komgaMux(t *testing.T, patched *map[string]interface{}) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `{"id":"me","email":"admin@example.com","roles":["ADMIN"]}`)
	})
	mux.HandleFunc("/api/v1/libraries", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[{"id":"L1","name":"Comics","root":"/data/comics"}]`)
	})
	mux.HandleFunc("/api/v1/series", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		checkStringEqual(t, "library_id", q.Get("library_id"), "L1")
		if q.Get("size") == "1" {
			writeRaw(w, `{"content":[],"totalElements":17,"totalPages":17}`)
			return
		}
		checkStringEqual(t, "page", q.Get("page"), "0")
		checkStringEqual(t, "sort", q.Get("sort"), "createdDate,desc")
		checkStringEqual(t, "search", q.Get("search"), "saga")
		writeRaw(w, `{"content":[
			{"id":"S1","libraryId":"L1","name":"saga","booksCount":9,"created":"2022-03-04T05:06:07Z",
			 "metadata":{"title":"Saga","titleSort":"Saga","summary":"Space opera"},
			 "booksMetadata":{"releaseDate":"2012-03-14"}}
		],"totalElements":1,"totalPages":1}`)
	})
	mux.HandleFunc("/api/v1/series/S1/books", func(w http.ResponseWriter, r *http.Request) {
		checkStringEqual(t, "sort", r.URL.Query().Get("sort"), "metadata.numberSort,asc")
		writeRaw(w, `{"content":[
			{"id":"B1","seriesId":"S1","name":"Saga 001","number":1,"metadata":{"title":"Chapter One","numberSort":1}},
			{"id":"B2","name":"Saga 002","number":2,"metadata":{"title":""}}
		],"totalElements":2}`)
	})
	mux.HandleFunc("/api/v2/users", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[
			{"id":"U1","email":"admin@example.com","roles":["ADMIN"],"sharedAllLibraries":true},
			{"id":"U2","email":"reader@example.com","roles":["PAGE_STREAMING"],"sharedAllLibraries":false,"sharedLibrariesIds":["L1"]}
		]`)
	})
	mux.HandleFunc("/api/v2/users/U2", func(w http.ResponseWriter, r *http.Request) {
		checkStringEqual(t, "method", r.Method, http.MethodPatch)
		*patched = decodeBody(t, r)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestKomgaAuthentication(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		check  func(t *testing.T, r *http.Request)
	}{
		{"api key", "komga-key", func(t *testing.T, r *http.Request) {
			checkStringEqual(t, "X-API-Key", r.Header.Get("X-API-Key"), "komga-key")
		}},
		{"basic auth", "", func(t *testing.T, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			checkTrue(t, "basic auth present", ok)
			checkStringEqual(t, "user", user, "admin")
			checkStringEqual(t, "pass", pass, "secret")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/v2/users/me", func(w http.ResponseWriter, r *http.Request) {
				tt.check(t, r)
				writeRaw(w, `{"id":"me","email":"admin@example.com"}`)
			})
			server := newTestServer(t, models.ServiceKomga, mux)
			server.APIKey = tt.apiKey

			msg, err := NewKomgaAdapter(server, Options{}).TestConnection(context.Background())
			checkNoError(t, err)
			checkStringEqual(t, "message", msg, "Connected to Komga as admin@example.com")
		})
	}
}

func TestKomgaLibrariesAndUsers(t *testing.T) {
	var patched map[string]interface{}
	server := newTestServer(t, models.ServiceKomga, komgaMux(t, &patched))
	k := NewKomgaAdapter(server, Options{})

	libs, err := k.GetLibraries(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "libraries", len(libs), 1)
	checkIntEqual(t, "ItemCount", libs[0].ItemCount, 17)
	checkStringEqual(t, "Type", libs[0].Type, models.ItemTypeComic)

	users, err := k.GetUsers(context.Background())
	checkNoError(t, err)
	checkStringEqual(t, "username is email", users[1].Username, "reader@example.com")
	checkTrue(t, "admin", users[0].IsAdmin)
	checkIntEqual(t, "shared-all maps to empty", len(users[0].LibraryIDs), 0)
	checkStrings(t, "shared", users[1].LibraryIDs, []string{"L1"})

	checkNoError(t, k.UpdateUserAccess(context.Background(), "U2", []string{"L1"}))
	shared, _ := patched["sharedLibraries"].(map[string]interface{})
	checkTrue(t, "all false", shared["all"] == false)

	checkTrue(t, "terminate unsupported", errors.Is(k.TerminateSession(context.Background(), "x", ""), ErrUnsupported))
}

func TestKomgaContentAndBooks(t *testing.T) {
	var patched map[string]interface{}
	server := newTestServer(t, models.ServiceKomga, komgaMux(t, &patched))
	k := NewKomgaAdapter(server, Options{})

	page, err := k.GetLibraryContent(context.Background(), "L1", ContentQuery{Page: 1, PerPage: 20, Search: "saga", Sort: models.SortAddedAtDesc})
	checkNoError(t, err)
	checkIntEqual(t, "series", len(page.Items), 1)
	s := page.Items[0]
	checkStringEqual(t, "Type", s.Type, models.ItemTypeSeries)
	checkStringEqual(t, "Title", s.Title, "Saga")
	checkIntPtrEqual(t, "Year", s.Year, 2012)

	books, err := k.GetShowEpisodes(context.Background(), "S1", EpisodeQuery{PerPage: 1000})
	checkNoError(t, err)
	checkIntEqual(t, "books", len(books.Items), 2)
	checkStringEqual(t, "Title", books.Items[0].Title, "Chapter One")
	checkIntPtrEqual(t, "number", books.Items[0].EpisodeNumber, 1)
	// Title and parent fall back to the book name and requested series.
	checkStringEqual(t, "Title fallback", books.Items[1].Title, "Saga 002")
	checkStringEqual(t, "ParentID fallback", books.Items[1].ParentID, "S1")
	checkIntPtrEqual(t, "number fallback", books.Items[1].EpisodeNumber, 2)
}
