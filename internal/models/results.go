// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import (
	"fmt"
	"time"
)

// DetailListLimit caps the per-item detail lists carried in sync results.
const DetailListLimit = 50

// LibraryChange describes one library touched by reconciliation.
type LibraryChange struct {
	Name       string   `json:"name"`
	ServerName string   `json:"server_name"`
	Type       string   `json:"type,omitempty"`
	ItemCount  int      `json:"item_count,omitempty"`
	Changes    []string `json:"changes,omitempty"`
}

// ReconcileResult is the outcome of reconciling libraries on one or more servers.
// Partial success is the expected steady state.
type ReconcileResult struct {
	ServersSynced    int             `json:"servers_synced"`
	LibrariesAdded   int             `json:"libraries_added"`
	LibrariesUpdated int             `json:"libraries_updated"`
	LibrariesRemoved int             `json:"libraries_removed"`
	Errors           int             `json:"errors"`
	ErrorMessages    []string        `json:"error_messages"`
	AddedLibraries   []LibraryChange `json:"added_libraries"`
	UpdatedLibraries []LibraryChange `json:"updated_libraries"`
	RemovedLibraries []LibraryChange `json:"removed_libraries"`
}

// NewReconcileResult returns a result with non-nil slices for stable JSON.
func NewReconcileResult() *ReconcileResult {
	return &ReconcileResult{
		ErrorMessages:    []string{},
		AddedLibraries:   []LibraryChange{},
		UpdatedLibraries: []LibraryChange{},
		RemovedLibraries: []LibraryChange{},
	}
}

// HasChanges reports whether any counter is non-zero. Callers show a detailed
// report when true and a no-op confirmation otherwise.
func (r *ReconcileResult) HasChanges() bool {
	return r.LibrariesAdded > 0 || r.LibrariesUpdated > 0 || r.LibrariesRemoved > 0 || r.Errors > 0
}

// AddError records a per-server failure.
func (r *ReconcileResult) AddError(msg string) {
	r.Errors++
	r.ErrorMessages = append(r.ErrorMessages, msg)
}

// Merge folds another result into r.
func (r *ReconcileResult) Merge(other *ReconcileResult) {
	if other == nil {
		return
	}
	r.ServersSynced += other.ServersSynced
	r.LibrariesAdded += other.LibrariesAdded
	r.LibrariesUpdated += other.LibrariesUpdated
	r.LibrariesRemoved += other.LibrariesRemoved
	r.Errors += other.Errors
	r.ErrorMessages = append(r.ErrorMessages, other.ErrorMessages...)
	r.AddedLibraries = append(r.AddedLibraries, other.AddedLibraries...)
	r.UpdatedLibraries = append(r.UpdatedLibraries, other.UpdatedLibraries...)
	r.RemovedLibraries = append(r.RemovedLibraries, other.RemovedLibraries...)
}

// Message returns a one-line summary suitable for a toast notification.
func (r *ReconcileResult) Message() string {
	if !r.HasChanges() {
		return "Library sync complete. No changes detected."
	}
	if r.Errors > 0 {
		return fmt.Sprintf("Library sync completed with %d errors. See details.", r.Errors)
	}
	return fmt.Sprintf("Library sync complete. %d added, %d updated, %d removed.",
		r.LibrariesAdded, r.LibrariesUpdated, r.LibrariesRemoved)
}

// ItemChange describes one media item touched by a content sync.
type ItemChange struct {
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Year    *int     `json:"year,omitempty"`
	Changes []string `json:"changes,omitempty"`
}

// LibrarySyncResult is the outcome of syncing one library's content.
type LibrarySyncResult struct {
	Success      bool         `json:"success"`
	Error        string       `json:"error,omitempty"`
	LibraryName  string       `json:"library_name,omitempty"`
	TotalItems   int          `json:"total_items"`
	Added        int          `json:"added"`
	Updated      int          `json:"updated"`
	Removed      int          `json:"removed"`
	AddedItems   []ItemChange `json:"added_items"`
	UpdatedItems []ItemChange `json:"updated_items"`
	RemovedItems []ItemChange `json:"removed_items"`
	Errors       []string     `json:"errors"`
}

// EpisodeSyncResult is the outcome of syncing one show's episodes.
type EpisodeSyncResult struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error,omitempty"`
	ShowTitle     string   `json:"show_title,omitempty"`
	Added         int      `json:"added"`
	Updated       int      `json:"updated"`
	Removed       int      `json:"removed"`
	TotalEpisodes int      `json:"total_episodes"`
	Errors        []string `json:"errors"`
	Shared        bool     `json:"shared,omitempty"`
}

// PurgeResult is the outcome of purging a show's cached episodes.
type PurgeResult struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
	DeletedCount int    `json:"deleted_count"`
	ShowTitle    string `json:"show_title,omitempty"`
}

// Query result sources
const (
	SourceCache = "cache"
	SourceLive  = "live"
)

// ContentResult is one page of a library's catalog.
type ContentResult struct {
	Items     []CatalogItem `json:"items"`
	Total     int           `json:"total"`
	Page      int           `json:"page"`
	PerPage   int           `json:"per_page"`
	Pages     int           `json:"pages"`
	HasPrev   bool          `json:"has_prev"`
	HasNext   bool          `json:"has_next"`
	NeedsSync bool          `json:"needs_sync"`
	Source    string        `json:"source"`
	SortBy    string        `json:"sort_by"`
	Warnings  []string      `json:"warnings"`
	Error     string        `json:"error,omitempty"`
}

// EpisodeResult is one page of a show's episodes.
type EpisodeResult struct {
	ContentResult
	ShowID     string     `json:"show_id"`
	ShowTitle  string     `json:"show_title,omitempty"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
	AutoSynced bool       `json:"auto_synced"`
}
