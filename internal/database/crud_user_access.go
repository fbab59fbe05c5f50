// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/mediacatalog/internal/models"
)

const userAccessColumns = `id, server_id, external_user_id, username, allowed_library_ids,
	created_at, updated_at`

// UpsertUserAccess inserts or replaces the access row for
// (server_id, external_user_id). The allowed list is stored verbatim.
func (db *DB) UpsertUserAccess(ctx context.Context, access *models.UserMediaAccess) error {
	ids, err := encodeLibraryIDs(access.AllowedLibraryIDs)
	if err != nil {
		return err
	}

	existing, err := db.GetUserAccess(ctx, access.ServerID, access.ExternalUserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	now := db.now()
	access.UpdatedAt = now

	if existing != nil {
		access.ID = existing.ID
		access.CreatedAt = existing.CreatedAt
		_, err = db.conn.ExecContext(ctx, `UPDATE user_media_access SET
			username = ?, allowed_library_ids = ?, updated_at = ?
		WHERE id = ?`, access.Username, ids, now, access.ID)
		if err != nil {
			return fmt.Errorf("failed to update user access: %w", err)
		}
		return nil
	}

	if access.ID == "" {
		access.ID = uuid.New().String()
	}
	access.CreatedAt = now
	_, err = db.conn.ExecContext(ctx, `INSERT INTO user_media_access (`+userAccessColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		access.ID, access.ServerID, access.ExternalUserID, access.Username, ids,
		access.CreatedAt, access.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("user access %s: %w", access.ExternalUserID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user access: %w", err)
	}
	return nil
}

// SetAllowedLibraries replaces the allowed list of an access row.
func (db *DB) SetAllowedLibraries(ctx context.Context, id string, libraryIDs []string) error {
	ids, err := encodeLibraryIDs(libraryIDs)
	if err != nil {
		return err
	}
	result, err := db.conn.ExecContext(ctx,
		`UPDATE user_media_access SET allowed_library_ids = ?, updated_at = ? WHERE id = ?`,
		ids, db.now(), id)
	if err != nil {
		return fmt.Errorf("failed to set allowed libraries: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user access %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetUserAccess retrieves the access row for a remote user.
func (db *DB) GetUserAccess(ctx context.Context, serverID, externalUserID string) (*models.UserMediaAccess, error) {
	query := `SELECT ` + userAccessColumns + ` FROM user_media_access
		WHERE server_id = ? AND external_user_id = ?`
	return scanUserAccess(db.conn.QueryRowContext(ctx, query, serverID, externalUserID))
}

// ListUserAccess returns every access row of a server ordered by username.
func (db *DB) ListUserAccess(ctx context.Context, serverID string) ([]models.UserMediaAccess, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+userAccessColumns+` FROM user_media_access
		WHERE server_id = ? ORDER BY username`, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user access: %w", err)
	}
	defer rows.Close()

	out := make([]models.UserMediaAccess, 0)
	for rows.Next() {
		access, err := scanUserAccess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *access)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user access: %w", err)
	}
	return out, nil
}

func scanUserAccess(row rowScanner) (*models.UserMediaAccess, error) {
	var access models.UserMediaAccess
	var ids string

	err := row.Scan(&access.ID, &access.ServerID, &access.ExternalUserID, &access.Username,
		&ids, &access.CreatedAt, &access.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user access: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan user access: %w", err)
	}

	access.AllowedLibraryIDs = []string{}
	if ids != "" {
		if err := json.Unmarshal([]byte(ids), &access.AllowedLibraryIDs); err != nil {
			return nil, fmt.Errorf("failed to decode allowed_library_ids: %w", err)
		}
	}
	return &access, nil
}

// encodeLibraryIDs stores nil as [] so "all libraries" survives a round trip.
func encodeLibraryIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode allowed_library_ids: %w", err)
	}
	return string(b), nil
}
