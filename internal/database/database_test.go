// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// testDBSemaphore limits concurrent database creation to prevent resource exhaustion in CI.
// When many tests run in parallel, too many concurrent DuckDB CGO calls can cause hangs.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates a new in-memory test database.
// The semaphore is held for the whole test and released via t.Cleanup.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("close: %v", err)
		}
	})
	return db
}

func createTestServer(t *testing.T, db *DB, nickname string) *models.MediaServer {
	t.Helper()
	server := &models.MediaServer{
		ServiceType: models.ServiceJellyfin,
		Nickname:    nickname,
		URL:         "http://localhost:8096",
		APIKey:      "key",
		IsActive:    true,
	}
	if err := db.CreateMediaServer(context.Background(), server); err != nil {
		t.Fatalf("CreateMediaServer: %v", err)
	}
	return server
}

func createTestLibrary(t *testing.T, db *DB, serverID, externalID, name, libType string) *models.MediaLibrary {
	t.Helper()
	lib := &models.MediaLibrary{ExternalID: externalID, Name: name, LibraryType: libType}
	if err := db.ApplyLibraryDiff(context.Background(), &LibraryDiff{
		ServerID: serverID,
		Added:    []*models.MediaLibrary{lib},
	}); err != nil {
		t.Fatalf("ApplyLibraryDiff: %v", err)
	}
	return lib
}

func strPtr(s string) *string { return &s }

func intPtrOf(i int) *int { return &i }

func TestNewInMemory(t *testing.T) {
	db := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if db.Conn() == nil {
		t.Fatal("Conn() returned nil")
	}
}

func TestOrderByClauseWhitelist(t *testing.T) {
	if got := orderByClause("id; DROP TABLE media_items"); got != orderByClauses[models.SortTitleAsc] {
		t.Errorf("unknown sort should fall back to title order, got %q", got)
	}
	if got := orderByClause(models.SortTotalStreamsDesc); got != orderByClauses[models.SortTitleAsc] {
		t.Errorf("derived sort should fall back to title order, got %q", got)
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Constraint Error: Duplicate key \"id: 1\" violates primary key constraint", true},
		{"violates UNIQUE constraint", true},
		{"connection refused", false},
	}
	for _, tt := range tests {
		if got := isUniqueConstraintError(errString(tt.msg)); got != tt.want {
			t.Errorf("isUniqueConstraintError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
	if isUniqueConstraintError(nil) {
		t.Error("nil error should not be a constraint error")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
