// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package identity

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/mediacatalog/internal/models"
)

func kavitaLibraries() []models.MediaLibrary {
	return []models.MediaLibrary{
		{ID: "l1", ServerID: "s1", ExternalID: "1", Name: "Manga"},
		{ID: "l2", ServerID: "s1", ExternalID: "2", Name: "Light_Novels"},
		{ID: "l3", ServerID: "s1", ExternalID: "7", Name: "Comics"},
	}
}

func TestDecodeCompound(t *testing.T) {
	tests := []struct {
		in       string
		wantID   string
		wantName string
		wantOK   bool
	}{
		{"1_Manga", "1", "Manga", true},
		{"2_Light_Novels", "2", "Light_Novels", true},
		{"12_", "12", "", true},
		{"Manga", "", "", false},
		{"abc_Manga", "", "", false},
		{"_Manga", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, name, ok := DecodeCompound(tt.in)
			if id != tt.wantID || name != tt.wantName || ok != tt.wantOK {
				t.Errorf("DecodeCompound(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, id, name, ok, tt.wantID, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestEncodeCompoundRoundTrip(t *testing.T) {
	s := EncodeCompound("42", "My_Library")
	if s != "42_My_Library" {
		t.Fatalf("EncodeCompound = %q", s)
	}
	id, name, ok := DecodeCompound(s)
	if !ok || id != "42" || name != "My_Library" {
		t.Errorf("round trip = (%q, %q, %v)", id, name, ok)
	}
}

func TestNormalizeKavita(t *testing.T) {
	libs := kavitaLibraries()

	tests := []struct {
		name           string
		selection      []string
		wantIDs        []string
		wantUnresolved []string
		wantChanged    bool
	}{
		{
			name:      "already compound",
			selection: []string{"1_Manga", "2_Light_Novels"},
			wantIDs:   []string{"1_Manga", "2_Light_Novels"},
		},
		{
			name:        "bare ids",
			selection:   []string{"1", "7"},
			wantIDs:     []string{"1_Manga", "7_Comics"},
			wantChanged: true,
		},
		{
			name:        "bare names case-insensitive",
			selection:   []string{"manga", "Comics"},
			wantIDs:     []string{"1_Manga", "7_Comics"},
			wantChanged: true,
		},
		{
			name:        "renamed library keeps id",
			selection:   []string{"7_Old Comics"},
			wantIDs:     []string{"7_Comics"},
			wantChanged: true,
		},
		{
			name:           "unmatched preserved",
			selection:      []string{"99_Gone", "1"},
			wantIDs:        []string{"99_Gone", "1_Manga"},
			wantUnresolved: []string{"99_Gone"},
			wantChanged:    true,
		},
		{
			name:        "duplicates collapse",
			selection:   []string{"1", "1_Manga"},
			wantIDs:     []string{"1_Manga"},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(models.ServiceKavita, tt.selection, libs)
			if !reflect.DeepEqual(res.IDs, tt.wantIDs) {
				t.Errorf("IDs = %v, want %v", res.IDs, tt.wantIDs)
			}
			if !reflect.DeepEqual(res.Unresolved, tt.wantUnresolved) {
				t.Errorf("Unresolved = %v, want %v", res.Unresolved, tt.wantUnresolved)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.wantChanged)
			}
		})
	}
}

func TestNormalizePlainService(t *testing.T) {
	libs := []models.MediaLibrary{{ExternalID: "abc", Name: "Movies"}}
	res := Normalize(models.ServicePlex, []string{"abc", "Movies"}, libs)
	if !reflect.DeepEqual(res.IDs, []string{"abc", "Movies"}) {
		t.Errorf("IDs = %v", res.IDs)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"Movies"}) {
		t.Errorf("Unresolved = %v", res.Unresolved)
	}
	if res.Changed {
		t.Error("plain services must not be rewritten")
	}
}

func TestIsAllLibraries(t *testing.T) {
	tests := []struct {
		st   models.ServiceType
		ids  []string
		want bool
	}{
		{models.ServicePlex, nil, true},
		{models.ServicePlex, []string{}, true},
		{models.ServiceJellyfin, []string{"*"}, true},
		{models.ServiceKavita, []string{"*"}, true},
		{models.ServiceJellyfin, []string{"a"}, false},
		{models.ServiceJellyfin, []string{"*", "a"}, false},
		{models.ServiceKomga, []string{""}, true},
	}
	for _, tt := range tests {
		if got := IsAllLibraries(tt.st, tt.ids); got != tt.want {
			t.Errorf("IsAllLibraries(%s, %v) = %v, want %v", tt.st, tt.ids, got, tt.want)
		}
	}
}

func TestAllLibrariesMarker(t *testing.T) {
	if got := AllLibrariesMarker(models.ServiceJellyfin); !reflect.DeepEqual(got, []string{"*"}) {
		t.Errorf("jellyfin marker = %v", got)
	}
	for _, st := range []models.ServiceType{models.ServicePlex, models.ServiceEmby, models.ServiceKavita} {
		if got := AllLibrariesMarker(st); got == nil || len(got) != 0 {
			t.Errorf("%s marker = %#v, want empty non-nil list", st, got)
		}
	}
}

func TestExpandAccess(t *testing.T) {
	libs := kavitaLibraries()

	all := ExpandAccess(models.ServiceJellyfin, []string{"*"}, libs)
	if !all.All || len(all.Libraries) != len(libs) {
		t.Errorf("wildcard expanded to %+v", all)
	}

	empty := ExpandAccess(models.ServiceKavita, nil, libs)
	if !empty.All || len(empty.Libraries) != len(libs) {
		t.Errorf("empty list must mean all libraries, got %+v", empty)
	}

	some := ExpandAccess(models.ServiceKavita, []string{"7", "99_Gone"}, libs)
	if some.All {
		t.Error("explicit list flagged as all")
	}
	if len(some.Libraries) != 1 || some.Libraries[0].Name != "Comics" {
		t.Errorf("Libraries = %+v", some.Libraries)
	}
	if !reflect.DeepEqual(some.Unresolved, []string{"99_Gone"}) {
		t.Errorf("Unresolved = %v", some.Unresolved)
	}
}

func TestDisplayNames(t *testing.T) {
	libs := kavitaLibraries()

	names, unresolved := DisplayNames(models.ServiceKavita, []string{"1_Manga", "99_Gone", "55"}, libs)
	want := []string{"Manga", "Gone", "Unknown Lib 55"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if !reflect.DeepEqual(unresolved, []string{"99_Gone", "55"}) {
		t.Errorf("unresolved = %v", unresolved)
	}

	names, unresolved = DisplayNames(models.ServicePlex, nil, libs)
	if !reflect.DeepEqual(names, []string{"All Libraries"}) || unresolved != nil {
		t.Errorf("all access = %v, %v", names, unresolved)
	}
}

type fakeStore struct {
	server *models.MediaServer
	libs   []models.MediaLibrary
	saved  map[string][]string
	setErr error
}

func (f *fakeStore) GetMediaServer(_ context.Context, id string) (*models.MediaServer, error) {
	if f.server == nil || f.server.ID != id {
		return nil, errors.New("not found")
	}
	return f.server, nil
}

func (f *fakeStore) ListLibraries(context.Context, string) ([]models.MediaLibrary, error) {
	return f.libs, nil
}

func (f *fakeStore) SetAllowedLibraries(_ context.Context, id string, ids []string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.saved == nil {
		f.saved = map[string][]string{}
	}
	f.saved[id] = ids
	return nil
}

func TestNormalizeUserAccess(t *testing.T) {
	store := &fakeStore{
		server: &models.MediaServer{ID: "s1", ServiceType: models.ServiceKavita},
		libs:   kavitaLibraries(),
	}
	n := NewNormalizer(store)

	access := &models.UserMediaAccess{ID: "a1", ServerID: "s1", Username: "bob", AllowedLibraryIDs: []string{"1", "Comics"}}
	res, err := n.NormalizeUserAccess(context.Background(), access)
	if err != nil {
		t.Fatalf("NormalizeUserAccess: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected a rewrite")
	}
	want := []string{"1_Manga", "7_Comics"}
	if !reflect.DeepEqual(store.saved["a1"], want) {
		t.Errorf("persisted %v, want %v", store.saved["a1"], want)
	}
	if !reflect.DeepEqual(access.AllowedLibraryIDs, want) {
		t.Errorf("row not updated: %v", access.AllowedLibraryIDs)
	}

	// Already canonical: nothing persisted.
	store.saved = nil
	if _, err := n.NormalizeUserAccess(context.Background(), access); err != nil {
		t.Fatal(err)
	}
	if store.saved != nil {
		t.Errorf("unchanged list was persisted: %v", store.saved)
	}
}

func TestNormalizeUserAccessKeepsAllMarker(t *testing.T) {
	store := &fakeStore{
		server: &models.MediaServer{ID: "s1", ServiceType: models.ServiceJellyfin},
		setErr: errors.New("must not be called"),
	}
	n := NewNormalizer(store)
	access := &models.UserMediaAccess{ID: "a1", ServerID: "s1", AllowedLibraryIDs: []string{"*"}}
	res, err := n.NormalizeUserAccess(context.Background(), access)
	if err != nil {
		t.Fatalf("NormalizeUserAccess: %v", err)
	}
	if res.Changed || !models.IsWildcard(access.AllowedLibraryIDs) {
		t.Errorf("wildcard rewritten: %+v", res)
	}
}
