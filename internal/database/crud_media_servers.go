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
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/mediacatalog/internal/models"
)

const mediaServerColumns = `id, service_type, nickname, url, api_key, username, password,
	is_active, created_at, updated_at`

// CreateMediaServer inserts a new media server. Returns ErrDuplicate when the
// nickname is taken.
func (db *DB) CreateMediaServer(ctx context.Context, server *models.MediaServer) error {
	if server.ID == "" {
		server.ID = uuid.New().String()
	}
	if server.CreatedAt.IsZero() {
		server.CreatedAt = db.now()
	}
	server.UpdatedAt = server.CreatedAt

	query := `INSERT INTO media_servers (` + mediaServerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		server.ID, string(server.ServiceType), server.Nickname, server.URL,
		nullString(server.APIKey), nullString(server.Username), nullString(server.Password),
		server.IsActive, server.CreatedAt, server.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("media server %q: %w", server.Nickname, ErrDuplicate)
		}
		return fmt.Errorf("failed to create media server: %w", err)
	}

	return nil
}

// EnsureMediaServer creates the server described by input, or refreshes the
// connection fields of the existing server with the same nickname.
func (db *DB) EnsureMediaServer(ctx context.Context, input models.MediaServerInput) (*models.MediaServer, error) {
	existing, err := db.GetMediaServerByNickname(ctx, input.Nickname)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		server := &models.MediaServer{
			ServiceType: input.ServiceType,
			Nickname:    input.Nickname,
			URL:         input.URL,
			APIKey:      input.APIKey,
			Username:    input.Username,
			Password:    input.Password,
			IsActive:    input.IsActive,
		}
		if err := db.CreateMediaServer(ctx, server); err != nil {
			return nil, err
		}
		return server, nil
	}

	existing.ServiceType = input.ServiceType
	existing.URL = input.URL
	existing.APIKey = input.APIKey
	existing.Username = input.Username
	existing.Password = input.Password
	existing.IsActive = input.IsActive
	existing.UpdatedAt = db.now()

	query := `UPDATE media_servers SET
		service_type = ?, url = ?, api_key = ?, username = ?, password = ?,
		is_active = ?, updated_at = ?
	WHERE id = ?`

	if _, err := db.conn.ExecContext(ctx, query,
		string(existing.ServiceType), existing.URL,
		nullString(existing.APIKey), nullString(existing.Username), nullString(existing.Password),
		existing.IsActive, existing.UpdatedAt, existing.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to update media server: %w", err)
	}

	return existing, nil
}

// GetMediaServer retrieves a media server by ID.
func (db *DB) GetMediaServer(ctx context.Context, id string) (*models.MediaServer, error) {
	query := `SELECT ` + mediaServerColumns + ` FROM media_servers WHERE id = ?`
	return scanMediaServer(db.conn.QueryRowContext(ctx, query, id))
}

// GetMediaServerByNickname retrieves a media server by nickname (case-insensitive).
func (db *DB) GetMediaServerByNickname(ctx context.Context, nickname string) (*models.MediaServer, error) {
	query := `SELECT ` + mediaServerColumns + ` FROM media_servers WHERE lower(nickname) = ?`
	return scanMediaServer(db.conn.QueryRowContext(ctx, query, strings.ToLower(nickname)))
}

// ListMediaServers retrieves media servers ordered by nickname.
func (db *DB) ListMediaServers(ctx context.Context, activeOnly bool) ([]models.MediaServer, error) {
	query := `SELECT ` + mediaServerColumns + ` FROM media_servers`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY nickname`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list media servers: %w", err)
	}
	defer rows.Close()

	servers := make([]models.MediaServer, 0)
	for rows.Next() {
		server, err := scanMediaServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, *server)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media servers: %w", err)
	}

	return servers, nil
}

// DeleteMediaServer removes a server along with its libraries, items and
// access grants.
func (db *DB) DeleteMediaServer(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM media_items WHERE server_id = ?`,
			`DELETE FROM media_libraries WHERE server_id = ?`,
			`DELETE FROM user_media_access WHERE server_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("failed to cascade server delete: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM media_servers WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete media server: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("media server %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaServer(row rowScanner) (*models.MediaServer, error) {
	var server models.MediaServer
	var serviceType string
	var apiKey, username, password sql.NullString

	err := row.Scan(
		&server.ID, &serviceType, &server.Nickname, &server.URL,
		&apiKey, &username, &password,
		&server.IsActive, &server.CreatedAt, &server.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("media server: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan media server: %w", err)
	}

	server.ServiceType = models.ServiceType(serviceType)
	server.APIKey = apiKey.String
	server.Username = username.String
	server.Password = password.String

	return &server, nil
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
