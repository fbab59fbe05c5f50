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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

const mediaLibraryColumns = `id, server_id, external_id, name, library_type, item_count,
	last_scanned, created_at, updated_at`

// LibraryDiff is the set of changes reconciliation applies to one server.
type LibraryDiff struct {
	ServerID string
	Added    []*models.MediaLibrary
	Updated  []*models.MediaLibrary
	// Removed holds library row ids. Their items are deleted with them.
	Removed []string
}

// Empty reports whether the diff has nothing to apply.
func (d *LibraryDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// ApplyLibraryDiff applies a reconciliation diff in one transaction.
// Added libraries receive ids and timestamps.
func (db *DB) ApplyLibraryDiff(ctx context.Context, diff *LibraryDiff) error {
	start := time.Now()
	err := db.applyLibraryDiff(ctx, diff)
	metrics.RecordDBQuery("apply_diff", "media_libraries", time.Since(start), err)
	return err
}

func (db *DB) applyLibraryDiff(ctx context.Context, diff *LibraryDiff) error {
	if diff.Empty() {
		return nil
	}
	now := db.now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range diff.Removed {
			if _, err := tx.ExecContext(ctx, `DELETE FROM media_items WHERE library_id = ?`, id); err != nil {
				return fmt.Errorf("failed to delete items of library %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM media_libraries WHERE id = ? AND server_id = ?`, id, diff.ServerID); err != nil {
				return fmt.Errorf("failed to delete library %s: %w", id, err)
			}
		}

		for _, lib := range diff.Updated {
			lib.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, `UPDATE media_libraries SET
				name = ?, library_type = ?, item_count = ?, updated_at = ?
			WHERE id = ?`,
				lib.Name, lib.LibraryType, lib.ItemCount, lib.UpdatedAt, lib.ID,
			); err != nil {
				return fmt.Errorf("failed to update library %s: %w", lib.Name, err)
			}
		}

		for _, lib := range diff.Added {
			if lib.ID == "" {
				lib.ID = uuid.New().String()
			}
			lib.ServerID = diff.ServerID
			lib.CreatedAt = now
			lib.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, `INSERT INTO media_libraries (`+mediaLibraryColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				lib.ID, lib.ServerID, lib.ExternalID, lib.Name, lib.LibraryType, lib.ItemCount,
				lib.LastScanned, lib.CreatedAt, lib.UpdatedAt,
			); err != nil {
				if isUniqueConstraintError(err) {
					return fmt.Errorf("library %s: %w", lib.ExternalID, ErrDuplicate)
				}
				return fmt.Errorf("failed to insert library %s: %w", lib.Name, err)
			}
		}

		return nil
	})
}

// GetLibrary retrieves a library by row id.
func (db *DB) GetLibrary(ctx context.Context, id string) (*models.MediaLibrary, error) {
	query := `SELECT ` + mediaLibraryColumns + ` FROM media_libraries WHERE id = ?`
	return scanLibrary(db.conn.QueryRowContext(ctx, query, id))
}

// ListLibraries returns a server's cached libraries ordered by name.
// An empty serverID lists every library.
func (db *DB) ListLibraries(ctx context.Context, serverID string) ([]models.MediaLibrary, error) {
	query := `SELECT ` + mediaLibraryColumns + ` FROM media_libraries`
	args := []any{}
	if serverID != "" {
		query += ` WHERE server_id = ?`
		args = append(args, serverID)
	}
	query += ` ORDER BY name`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	libs := make([]models.MediaLibrary, 0)
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libs = append(libs, *lib)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating libraries: %w", err)
	}
	return libs, nil
}

// MarkLibraryScanned stamps last_scanned.
func (db *DB) MarkLibraryScanned(ctx context.Context, id string, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE media_libraries SET last_scanned = ?, updated_at = ? WHERE id = ?`, at, db.now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark library scanned: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanLibrary(row rowScanner) (*models.MediaLibrary, error) {
	var lib models.MediaLibrary
	var lastScanned sql.NullTime

	err := row.Scan(
		&lib.ID, &lib.ServerID, &lib.ExternalID, &lib.Name, &lib.LibraryType, &lib.ItemCount,
		&lastScanned, &lib.CreatedAt, &lib.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("library: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan library: %w", err)
	}
	if lastScanned.Valid {
		lib.LastScanned = &lastScanned.Time
	}
	return &lib, nil
}
