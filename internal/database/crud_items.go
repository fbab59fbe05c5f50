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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/mediacatalog/internal/metrics"
	"github.com/tomtom215/mediacatalog/internal/models"
)

const mediaItemColumns = `id, library_id, server_id, external_id, rating_key, parent_id,
	item_type, title, sort_title, summary, year, rating, duration, thumb_path,
	added_at, last_synced, season_number, episode_number, extra_metadata`

// sortTitleExpr is the case-insensitive title used for ordering and tiebreaks.
const sortTitleExpr = `lower(COALESCE(NULLIF(sort_title, ''), title))`

// orderByClauses whitelists static sorts. Derived sorts fall back to title
// order; callers sort those in memory.
var orderByClauses = map[models.SortKey]string{
	models.SortTitleAsc:    sortTitleExpr + ` ASC, id ASC`,
	models.SortTitleDesc:   sortTitleExpr + ` DESC, id ASC`,
	models.SortYearAsc:     `year ASC NULLS FIRST, ` + sortTitleExpr + ` ASC, id ASC`,
	models.SortYearDesc:    `year DESC NULLS LAST, ` + sortTitleExpr + ` ASC, id ASC`,
	models.SortAddedAtAsc:  `added_at ASC NULLS FIRST, ` + sortTitleExpr + ` ASC, id ASC`,
	models.SortAddedAtDesc: `added_at DESC NULLS LAST, ` + sortTitleExpr + ` ASC, id ASC`,
	models.SortRatingAsc:   `rating ASC NULLS FIRST, ` + sortTitleExpr + ` ASC, id ASC`,
	models.SortRatingDesc:  `rating DESC NULLS LAST, ` + sortTitleExpr + ` ASC, id ASC`,
}

// orderByClause returns the ORDER BY body for key.
func orderByClause(key models.SortKey) string {
	if clause, ok := orderByClauses[key]; ok {
		return clause
	}
	return orderByClauses[models.SortTitleAsc]
}

// ItemQuery selects cached items for catalog reads.
type ItemQuery struct {
	LibraryID string

	// ItemTypes restricts item_type when non-empty.
	ItemTypes []string

	// ExcludeEpisodes drops item_type = 'episode'.
	ExcludeEpisodes bool

	// ParentKeys restricts to children of a parent matched by any key.
	ParentKeys []string

	// IncludeOrphans adds rows with a NULL parent_id to a ParentKeys query.
	IncludeOrphans bool

	// Search is a case-insensitive substring match on title or summary.
	Search string

	Sort models.SortKey

	// Limit <= 0 returns every matching row.
	Limit  int
	Offset int
}

// where builds the WHERE clause shared by the count and page queries.
// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (q *ItemQuery) where() (string, []any) {
	conditions := []string{"library_id = ?"}
	args := []any{q.LibraryID}

	if len(q.ItemTypes) > 0 {
		placeholders, typeArgs := buildInClause(q.ItemTypes)
		conditions = append(conditions, fmt.Sprintf("item_type IN (%s)", placeholders))
		args = append(args, typeArgs...)
	}
	if q.ExcludeEpisodes {
		conditions = append(conditions, "item_type != ?")
		args = append(args, models.ItemTypeEpisode)
	}
	if len(q.ParentKeys) > 0 || q.IncludeOrphans {
		parent := []string{}
		if len(q.ParentKeys) > 0 {
			placeholders, keyArgs := buildInClause(q.ParentKeys)
			parent = append(parent, fmt.Sprintf("parent_id IN (%s)", placeholders))
			args = append(args, keyArgs...)
		}
		if q.IncludeOrphans {
			parent = append(parent, "parent_id IS NULL")
		}
		conditions = append(conditions, "("+strings.Join(parent, " OR ")+")")
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := "%" + likeEscaper.Replace(s) + "%"
		conditions = append(conditions, `(title ILIKE ? ESCAPE '\' OR summary ILIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// QueryItems returns one page of matching items and the total match count.
func (db *DB) QueryItems(ctx context.Context, q ItemQuery) ([]models.MediaItem, int, error) {
	start := time.Now()
	items, total, err := db.queryItemPage(ctx, q)
	metrics.RecordDBQuery("select", "media_items", time.Since(start), err)
	return items, total, err
}

func (db *DB) queryItemPage(ctx context.Context, q ItemQuery) ([]models.MediaItem, int, error) {
	where, args := q.where()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query := `SELECT ` + mediaItemColumns + ` FROM media_items` + where + ` ORDER BY ` + orderByClause(q.Sort)
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, max(q.Offset, 0))
	}

	items, err := db.queryItems(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListLibraryItems returns every cached item of a library, optionally
// without episodes, in title order.
func (db *DB) ListLibraryItems(ctx context.Context, libraryID string, excludeEpisodes bool) ([]models.MediaItem, error) {
	items, _, err := db.QueryItems(ctx, ItemQuery{LibraryID: libraryID, ExcludeEpisodes: excludeEpisodes})
	return items, err
}

// ListEpisodes returns cached episodes whose parent_id matches any of
// parentKeys, plus orphans when includeOrphans is set.
func (db *DB) ListEpisodes(ctx context.Context, libraryID string, parentKeys []string, includeOrphans bool) ([]models.MediaItem, error) {
	if len(parentKeys) == 0 && !includeOrphans {
		return []models.MediaItem{}, nil
	}
	items, _, err := db.QueryItems(ctx, ItemQuery{
		LibraryID:      libraryID,
		ItemTypes:      []string{models.ItemTypeEpisode},
		ParentKeys:     parentKeys,
		IncludeOrphans: includeOrphans,
	})
	return items, err
}

// GetMediaItem retrieves an item by row id.
func (db *DB) GetMediaItem(ctx context.Context, id string) (*models.MediaItem, error) {
	query := `SELECT ` + mediaItemColumns + ` FROM media_items WHERE id = ?`
	return scanItem(db.conn.QueryRowContext(ctx, query, id))
}

// ItemDiff is the set of changes one content or episode sync applies.
type ItemDiff struct {
	Inserted []*models.MediaItem
	Updated  []*models.MediaItem
	// Removed holds item row ids.
	Removed []string

	// ScannedLibraryID, when set, stamps media_libraries.last_scanned.
	ScannedLibraryID string
	// SyncedItemID, when set, stamps media_items.last_synced on that item.
	SyncedItemID string
	// StampedAt is the time used for both stamps. Zero means now.
	StampedAt time.Time
}

// ApplyItemDiff applies a sync diff in one transaction. Inserted items
// receive ids when missing.
func (db *DB) ApplyItemDiff(ctx context.Context, diff *ItemDiff) error {
	start := time.Now()
	err := db.applyItemDiff(ctx, diff)
	metrics.RecordDBQuery("apply_diff", "media_items", time.Since(start), err)
	return err
}

func (db *DB) applyItemDiff(ctx context.Context, diff *ItemDiff) error {
	stamp := diff.StampedAt
	if stamp.IsZero() {
		stamp = db.now()
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if len(diff.Removed) > 0 {
			placeholders, args := buildInClause(diff.Removed)
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM media_items WHERE id IN (%s)`, placeholders), args...); err != nil {
				return fmt.Errorf("failed to remove items: %w", err)
			}
		}

		for _, item := range diff.Updated {
			if _, err := tx.ExecContext(ctx, `UPDATE media_items SET
				rating_key = ?, parent_id = ?, title = ?, sort_title = ?, summary = ?,
				year = ?, rating = ?, duration = ?, thumb_path = ?, added_at = ?,
				last_synced = ?, season_number = ?, episode_number = ?, extra_metadata = ?
			WHERE id = ?`,
				item.RatingKey, item.ParentID, item.Title, item.SortTitle, item.Summary,
				item.Year, item.Rating, item.Duration, item.ThumbPath, item.AddedAt,
				item.LastSynced, item.SeasonNumber, item.EpisodeNumber, extraMetadata(item),
				item.ID,
			); err != nil {
				return fmt.Errorf("failed to update item %s: %w", item.ExternalID, err)
			}
		}

		for _, item := range diff.Inserted {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO media_items (`+mediaItemColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID, item.LibraryID, item.ServerID, item.ExternalID, item.RatingKey, item.ParentID,
				item.ItemType, item.Title, item.SortTitle, item.Summary, item.Year, item.Rating,
				item.Duration, item.ThumbPath, item.AddedAt, item.LastSynced,
				item.SeasonNumber, item.EpisodeNumber, extraMetadata(item),
			); err != nil {
				if isUniqueConstraintError(err) {
					return fmt.Errorf("item %s: %w", item.ExternalID, ErrDuplicate)
				}
				return fmt.Errorf("failed to insert item %s: %w", item.ExternalID, err)
			}
		}

		if diff.ScannedLibraryID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE media_libraries SET last_scanned = ?, updated_at = ? WHERE id = ?`,
				stamp, stamp, diff.ScannedLibraryID); err != nil {
				return fmt.Errorf("failed to stamp library: %w", err)
			}
		}
		if diff.SyncedItemID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE media_items SET last_synced = ? WHERE id = ?`, stamp, diff.SyncedItemID); err != nil {
				return fmt.Errorf("failed to stamp item: %w", err)
			}
		}
		return nil
	})
}

// EpisodePurge selects the episodes a targeted purge deletes.
type EpisodePurge struct {
	LibraryID string
	// ParentKeys matches episodes attached to the show by any key.
	ParentKeys []string
	// IncludeOrphans also matches episodes with a NULL parent_id.
	IncludeOrphans bool
	// ExternalIDs matches episodes by their own id regardless of parent.
	ExternalIDs []string
}

// PurgeEpisodes deletes every episode matched by p and returns the count.
func (db *DB) PurgeEpisodes(ctx context.Context, p EpisodePurge) (int, error) {
	start := time.Now()
	removed, err := db.purgeEpisodes(ctx, p)
	metrics.RecordDBQuery("delete", "media_items", time.Since(start), err)
	return removed, err
}

func (db *DB) purgeEpisodes(ctx context.Context, p EpisodePurge) (int, error) {
	var match []string
	args := []any{p.LibraryID, models.ItemTypeEpisode}

	if len(p.ParentKeys) > 0 {
		placeholders, keyArgs := buildInClause(p.ParentKeys)
		match = append(match, fmt.Sprintf("parent_id IN (%s)", placeholders))
		args = append(args, keyArgs...)
	}
	if p.IncludeOrphans {
		match = append(match, "parent_id IS NULL")
	}
	if len(p.ExternalIDs) > 0 {
		placeholders, idArgs := buildInClause(p.ExternalIDs)
		match = append(match, fmt.Sprintf("external_id IN (%s)", placeholders))
		args = append(args, idArgs...)
	}
	if len(match) == 0 {
		return 0, nil
	}

	query := `DELETE FROM media_items WHERE library_id = ? AND item_type = ? AND (` +
		strings.Join(match, " OR ") + `)`

	var deleted int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to purge episodes: %w", err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return nil
	})
	return int(deleted), err
}

func (db *DB) queryItems(ctx context.Context, query string, args ...any) ([]models.MediaItem, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]models.MediaItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

func scanItem(row rowScanner) (*models.MediaItem, error) {
	var item models.MediaItem
	var ratingKey, parentID, summary, thumb sql.NullString
	var year, duration, season, episode sql.NullInt64
	var rating sql.NullFloat64
	var addedAt, lastSynced sql.NullTime

	err := row.Scan(
		&item.ID, &item.LibraryID, &item.ServerID, &item.ExternalID, &ratingKey, &parentID,
		&item.ItemType, &item.Title, &item.SortTitle, &summary, &year, &rating, &duration, &thumb,
		&addedAt, &lastSynced, &season, &episode, &item.ExtraMetadata,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("media item: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan media item: %w", err)
	}

	item.RatingKey = stringPtr(ratingKey)
	item.ParentID = stringPtr(parentID)
	item.Summary = stringPtr(summary)
	item.ThumbPath = stringPtr(thumb)
	item.Year = intPtr(year)
	item.Duration = intPtr(duration)
	item.SeasonNumber = intPtr(season)
	item.EpisodeNumber = intPtr(episode)
	if rating.Valid {
		item.Rating = &rating.Float64
	}
	if addedAt.Valid {
		item.AddedAt = &addedAt.Time
	}
	if lastSynced.Valid {
		item.LastSynced = &lastSynced.Time
	}

	return &item, nil
}

func extraMetadata(item *models.MediaItem) string {
	if item.ExtraMetadata == "" {
		return "{}"
	}
	return item.ExtraMetadata
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// buildInClause creates a parameterized IN clause for SQL queries.
// Returns the placeholder string and the arguments slice.
func buildInClause(items []string) (string, []any) {
	placeholders := make([]string, len(items))
	args := make([]any, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = item
	}
	return strings.Join(placeholders, ","), args
}
