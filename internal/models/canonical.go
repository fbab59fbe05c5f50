// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Library is the canonical library record every adapter returns.
type Library struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ItemCount  int    `json:"item_count"`
	ExternalID string `json:"external_id"`
}

// Key returns the identifier the reconciler stores as external_id.
func (l *Library) Key() string {
	if l.ExternalID != "" {
		return l.ExternalID
	}
	return l.ID
}

// User is the canonical user record every adapter returns.
// LibraryIDs follows the access semantics described on UserMediaAccess.
type User struct {
	ID         string   `json:"id"`
	UUID       string   `json:"uuid"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Thumb      string   `json:"thumb"`
	IsHomeUser bool     `json:"is_home_user"`
	LibraryIDs []string `json:"library_ids"`
	IsAdmin    bool     `json:"is_admin"`
}

// MediaRecord is the canonical episode/media record returned by content
// and episode browsing. DurationSeconds is always seconds.
type MediaRecord struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Type            string          `json:"type"`
	Year            *int            `json:"year,omitempty"`
	Summary         string          `json:"summary,omitempty"`
	DurationSeconds *int            `json:"duration_seconds,omitempty"`
	AddedAt         *time.Time      `json:"added_at,omitempty"`
	Thumb           string          `json:"thumb,omitempty"`
	ParentID        string          `json:"parent_id,omitempty"`
	RatingKey       string          `json:"rating_key,omitempty"`
	SortTitle       string          `json:"sort_title,omitempty"`
	Rating          *float64        `json:"rating,omitempty"`
	SeasonNumber    *int            `json:"season_number,omitempty"`
	EpisodeNumber   *int            `json:"episode_number,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// ContentPage is one page of MediaRecords returned by an adapter.
type ContentPage struct {
	Items   []MediaRecord `json:"items"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
	Pages   int           `json:"pages"`
	HasPrev bool          `json:"has_prev"`
	HasNext bool          `json:"has_next"`
}

// NewContentPage builds a page envelope and derives the pagination flags.
func NewContentPage(items []MediaRecord, total, page, perPage int) *ContentPage {
	if items == nil {
		items = []MediaRecord{}
	}
	pages := TotalPages(total, perPage)
	return &ContentPage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
}

// TotalPages returns ceil(total/perPage), or 0 when perPage is not positive.
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Session is an active playback session in a service-neutral shape.
type Session struct {
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name"`
	MediaTitle      string `json:"media_title"`
	MediaType       string `json:"media_type"`
	State           string `json:"state"`
	PositionSeconds int    `json:"position_seconds"`
	DurationSeconds int    `json:"duration_seconds"`
	Client          string `json:"client"`
	Device          string `json:"device"`
	IPAddress       string `json:"ip_address,omitempty"`
}

// FormattedSession is a Session prepared for display.
type FormattedSession struct {
	SessionID       string  `json:"session_id"`
	ServerNickname  string  `json:"server_nickname"`
	ServiceType     string  `json:"service_type"`
	UserName        string  `json:"user_name"`
	MediaTitle      string  `json:"media_title"`
	MediaType       string  `json:"media_type"`
	State           string  `json:"state"`
	ProgressPercent float64 `json:"progress_percent"`
	DurationSeconds int     `json:"duration_seconds"`
	Client          string  `json:"client"`
	Device          string  `json:"device"`
}

// FormatSession converts a Session into its display form.
func FormatSession(s Session, nickname string, st ServiceType) FormattedSession {
	var progress float64
	if s.DurationSeconds > 0 {
		progress = float64(s.PositionSeconds) * 100 / float64(s.DurationSeconds)
		if progress > 100 {
			progress = 100
		}
	}
	return FormattedSession{
		SessionID:       s.SessionID,
		ServerNickname:  nickname,
		ServiceType:     st.String(),
		UserName:        s.UserName,
		MediaTitle:      s.MediaTitle,
		MediaType:       s.MediaType,
		State:           s.State,
		ProgressPercent: progress,
		DurationSeconds: s.DurationSeconds,
		Client:          s.Client,
		Device:          s.Device,
	}
}

// CreateUserRequest carries the fields needed to create a remote user.
type CreateUserRequest struct {
	Username   string   `json:"username" validate:"required,min=1,max=100"`
	Email      string   `json:"email" validate:"omitempty,email"`
	Password   string   `json:"password,omitempty"`
	LibraryIDs []string `json:"library_ids,omitempty"`
}

// CreatedUser is returned by a successful CreateUser call.
type CreatedUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ServerInfo describes a remote server's identity and reachability.
type ServerInfo struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ServiceType string `json:"service_type"`
	Online      bool   `json:"online"`
	Version     string `json:"version"`
}
