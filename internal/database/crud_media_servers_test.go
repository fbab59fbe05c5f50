// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/mediacatalog/internal/models"
)

func TestCreateMediaServer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	server := createTestServer(t, db, "living-room")
	if server.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := db.GetMediaServer(ctx, server.ID)
	if err != nil {
		t.Fatalf("GetMediaServer: %v", err)
	}
	if got.Nickname != "living-room" || got.ServiceType != models.ServiceJellyfin || got.APIKey != "key" {
		t.Errorf("unexpected server: %+v", got)
	}
	if got.Username != "" {
		t.Errorf("NULL username should scan as empty, got %q", got.Username)
	}

	dup := &models.MediaServer{ServiceType: models.ServicePlex, Nickname: "living-room", URL: "http://x"}
	if err := db.CreateMediaServer(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate nickname error = %v, want ErrDuplicate", err)
	}
}

func TestGetMediaServerNotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetMediaServer(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestEnsureMediaServer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	input := models.MediaServerInput{
		ServiceType: models.ServiceKavita,
		Nickname:    "Comics",
		URL:         "http://kavita:5000",
		APIKey:      "k1",
		IsActive:    true,
	}
	first, err := db.EnsureMediaServer(ctx, input)
	if err != nil {
		t.Fatalf("EnsureMediaServer create: %v", err)
	}

	input.Nickname = "comics"
	input.APIKey = "k2"
	input.IsActive = false
	second, err := db.EnsureMediaServer(ctx, input)
	if err != nil {
		t.Fatalf("EnsureMediaServer update: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("nickname match should reuse the row: %s != %s", second.ID, first.ID)
	}

	active, err := db.ListMediaServers(ctx, true)
	if err != nil {
		t.Fatalf("ListMediaServers: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active servers, got %d", len(active))
	}

	all, err := db.ListMediaServers(ctx, false)
	if err != nil {
		t.Fatalf("ListMediaServers: %v", err)
	}
	if len(all) != 1 || all[0].APIKey != "k2" {
		t.Errorf("unexpected servers: %+v", all)
	}
}

func TestDeleteMediaServerCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	server := createTestServer(t, db, "main")
	lib := createTestLibrary(t, db, server.ID, "1", "Movies", "movies")
	if err := db.ApplyItemDiff(ctx, &ItemDiff{Inserted: []*models.MediaItem{{
		LibraryID: lib.ID, ServerID: server.ID, ExternalID: "m1", ItemType: models.ItemTypeMovie, Title: "Heat",
	}}}); err != nil {
		t.Fatalf("ApplyItemDiff: %v", err)
	}

	if err := db.DeleteMediaServer(ctx, server.ID); err != nil {
		t.Fatalf("DeleteMediaServer: %v", err)
	}

	libs, err := db.ListLibraries(ctx, server.ID)
	if err != nil {
		t.Fatalf("ListLibraries: %v", err)
	}
	if len(libs) != 0 {
		t.Errorf("libraries should cascade, got %d", len(libs))
	}
	items, err := db.ListLibraryItems(ctx, lib.ID, false)
	if err != nil {
		t.Fatalf("ListLibraryItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items should cascade, got %d", len(items))
	}

	if err := db.DeleteMediaServer(ctx, server.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}
