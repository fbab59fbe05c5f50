// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

// StreamTitleColumn is a media_stream_history column matched against item titles.
type StreamTitleColumn string

// Title columns usable in stream count queries
const (
	StreamMediaTitle       StreamTitleColumn = "media_title"
	StreamParentTitle      StreamTitleColumn = "parent_title"
	StreamGrandparentTitle StreamTitleColumn = "grandparent_title"
)

func (c StreamTitleColumn) valid() bool {
	return c == StreamMediaTitle || c == StreamParentTitle || c == StreamGrandparentTitle
}

// StreamCountQuery counts stream history rows per title within one scope.
type StreamCountQuery struct {
	ServerID    string
	LibraryName string
	Column      StreamTitleColumn
	Titles      []string

	// GrandparentTitle, when set, additionally requires grandparent_title to
	// equal it. Used for episodes, which are matched by episode and show title.
	GrandparentTitle string
}

// CountStreamsByTitle returns the number of streams per title. Titles with
// no streams are absent from the map. History rows carry no item id, so two
// items sharing a title in one library share a count.
func (db *DB) CountStreamsByTitle(ctx context.Context, q StreamCountQuery) (map[string]int, error) {
	start := time.Now()
	counts, err := db.countStreamsByTitle(ctx, q)
	metrics.RecordDBQuery("count", "media_stream_history", time.Since(start), err)
	return counts, err
}

func (db *DB) countStreamsByTitle(ctx context.Context, q StreamCountQuery) (map[string]int, error) {
	counts := make(map[string]int)
	if len(q.Titles) == 0 {
		return counts, nil
	}
	if !q.Column.valid() {
		return nil, fmt.Errorf("invalid stream title column %q", q.Column)
	}

	placeholders, titleArgs := buildInClause(q.Titles)
	args := append([]any{q.ServerID, q.LibraryName}, titleArgs...)

	col := string(q.Column)
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM media_stream_history
		WHERE server_id = ? AND library_name = ? AND %s IN (%s)`, col, col, placeholders)
	if q.GrandparentTitle != "" {
		query += ` AND grandparent_title = ?`
		args = append(args, q.GrandparentTitle)
	}
	query += fmt.Sprintf(` GROUP BY %s`, col)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count streams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var title string
		var count int
		if err := rows.Scan(&title, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stream count: %w", err)
		}
		counts[title] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stream counts: %w", err)
	}
	return counts, nil
}

// InsertStreamHistory records one playback event.
func (db *DB) InsertStreamHistory(ctx context.Context, h *models.MediaStreamHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.StartedAt.IsZero() {
		h.StartedAt = db.now()
	}

	_, err := db.conn.ExecContext(ctx, `INSERT INTO media_stream_history (
		id, server_id, library_name, media_title, grandparent_title, parent_title,
		user_uuid, started_at, duration_seconds
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.ServerID, h.LibraryName, h.MediaTitle, h.GrandparentTitle, h.ParentTitle,
		h.UserUUID, h.StartedAt, h.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stream history: %w", err)
	}
	return nil
}
