// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package mediaserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mediacatalog/internal/models"
)

// Test assertion helpers. Each uses t.Helper() so failures point at the
// calling line.

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

func checkIntPtrEqual(t *testing.T, fieldName string, ptr *int, want int) {
	t.Helper()
	if ptr == nil {
		t.Errorf("%s should not be nil, expected %d", fieldName, want)
		return
	}
	if *ptr != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, *ptr)
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

func checkStrings(t *testing.T, fieldName string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: expected %v, got %v", fieldName, want, got)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("%s: expected %v, got %v", fieldName, want, got)
			return
		}
	}
}

// newTestServer starts an httptest server for mux and returns a server row
// pointing at it.
func newTestServer(t *testing.T, st models.ServiceType, mux http.Handler) *models.MediaServer {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &models.MediaServer{
		ID:          "srv-" + string(st),
		ServiceType: st,
		Nickname:    "test-" + string(st),
		URL:         srv.URL + "/",
		APIKey:      "test-api-key",
		Username:    "admin",
		Password:    "secret",
		IsActive:    true,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return body
}
