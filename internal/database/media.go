package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mattn/go-sqlite3"

	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
)

// ListOptions selects one page of an owner's catalog partition. Year,
// Month and Day are optional (zero means unset); a day filter without a
// month, or a month filter without a year, is ignored rather than
// rejected.
type ListOptions struct {
	Owner    string
	Year     int
	Month    int
	Day      int
	Page     int
	PageSize int
}

// InsertMedia adds a new item to the catalog. Returns ErrConflict if the
// filepath is already present — callers treat that as "already indexed".
func (d *Database) InsertMedia(ctx context.Context, item *MediaItem) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_media", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var thumb sql.NullString
	if item.ThumbnailPath != "" {
		thumb = sql.NullString{String: item.ThumbnailPath, Valid: true}
	}

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO media (filename, filepath, kind, created_at, ingested_at, size, thumbnail_path, owner_username)
		VALUES (?, ?, ?, ?, strftime('%s', 'now'), ?, ?, ?)`,
		item.Filename,
		item.Filepath,
		string(item.Kind),
		item.CreatedAt.Unix(),
		item.Size,
		thumb,
		item.Owner,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			err = fmt.Errorf("media path %s: %w", item.Filepath, ErrConflict)
		}
		return err
	}

	item.ID, _ = result.LastInsertId()
	item.IngestedAt = time.Now()
	return nil
}

// HasPath reports whether a filepath is already indexed. The scanner
// uses this check to make re-scans of an unchanged tree a no-op.
func (d *Database) HasPath(ctx context.Context, filepath string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM media WHERE filepath = ?)", filepath,
	).Scan(&exists)
	return exists, err
}

// GetMediaByID retrieves a single item. Returns ErrNotFound if the id
// does not resolve.
func (d *Database) GetMediaByID(ctx context.Context, id int64) (*MediaItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_media_by_id", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT id, filename, filepath, kind, created_at, ingested_at, size, thumbnail_path, owner_username
		FROM media WHERE id = ?`, id)

	item, err := scanMediaItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("media %d: %w", id, ErrNotFound)
		return nil, err
	}
	return item, err
}

// ListMedia returns one page of the owner's catalog, newest first.
// Ties on created_at break by id descending so that repeated identical
// queries return a stable ordering.
func (d *Database) ListMedia(ctx context.Context, opts ListOptions) (*MediaPage, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_media", start, err) }()

	if opts.Owner == "" {
		err = fmt.Errorf("owner is required: %w", ErrInvalidInput)
		return nil, err
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	if opts.PageSize > 500 {
		opts.PageSize = 500
	}

	where, args := buildMediaFilter(opts)

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var total int
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(opts.PageSize)))
	offset := (opts.Page - 1) * opts.PageSize

	query := `
		SELECT id, filename, filepath, kind, created_at, ingested_at, size, thumbnail_path, owner_username
		FROM media ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	queryArgs := append(args, opts.PageSize, offset)

	rows, err := d.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("select query failed: %w", err)
	}
	defer rows.Close()

	items := []MediaItem{}
	for rows.Next() {
		item, scanErr := scanMediaItem(rows)
		if scanErr != nil {
			err = fmt.Errorf("scan failed: %w", scanErr)
			return nil, err
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &MediaPage{
		Items:      items,
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
		Owner:      opts.Owner,
	}, nil
}

// buildMediaFilter assembles the WHERE clause for an owner's partition
// with optional date filters. Month requires year and day requires month;
// an orphaned filter is dropped, matching the listing contract.
func buildMediaFilter(opts ListOptions) (string, []interface{}) {
	where := "WHERE owner_username = ?"
	args := []interface{}{opts.Owner}

	if opts.Year > 0 {
		where += " AND CAST(strftime('%Y', created_at, 'unixepoch') AS INTEGER) = ?"
		args = append(args, opts.Year)

		if opts.Month > 0 {
			where += " AND CAST(strftime('%m', created_at, 'unixepoch') AS INTEGER) = ?"
			args = append(args, opts.Month)

			if opts.Day > 0 {
				where += " AND CAST(strftime('%d', created_at, 'unixepoch') AS INTEGER) = ?"
				args = append(args, opts.Day)
			}
		}
	}

	return where, args
}

// DeleteMediaByOwner removes all catalog rows owned by a username and
// returns the number removed. Files on disk are untouched; the catalog
// converges toward the filesystem, never the reverse.
func (d *Database) DeleteMediaByOwner(ctx context.Context, owner string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_media_by_owner", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM media WHERE owner_username = ?", owner)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetFilterOptions enumerates the distinct years, and months/days within
// the selection, available for filter menus. Years are enumerated across
// the whole catalog, not per owner.
func (d *Database) GetFilterOptions(ctx context.Context, year, month int) (*FilterOptions, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("filter_options", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := &FilterOptions{
		Years:  []int{},
		Months: []int{},
		Days:   []int{},
	}

	opts.Years, err = d.distinctBuckets(ctx,
		`SELECT DISTINCT CAST(strftime('%Y', created_at, 'unixepoch') AS INTEGER) AS y
		 FROM media ORDER BY y DESC`)
	if err != nil {
		return nil, err
	}

	if year > 0 {
		opts.Months, err = d.distinctBuckets(ctx,
			`SELECT DISTINCT CAST(strftime('%m', created_at, 'unixepoch') AS INTEGER) AS m
			 FROM media
			 WHERE CAST(strftime('%Y', created_at, 'unixepoch') AS INTEGER) = ?
			 ORDER BY m DESC`, year)
		if err != nil {
			return nil, err
		}

		if month > 0 {
			opts.Days, err = d.distinctBuckets(ctx,
				`SELECT DISTINCT CAST(strftime('%d', created_at, 'unixepoch') AS INTEGER) AS dd
				 FROM media
				 WHERE CAST(strftime('%Y', created_at, 'unixepoch') AS INTEGER) = ?
				   AND CAST(strftime('%m', created_at, 'unixepoch') AS INTEGER) = ?
				 ORDER BY dd DESC`, year, month)
			if err != nil {
				return nil, err
			}
		}
	}

	return opts, nil
}

func (d *Database) distinctBuckets(ctx context.Context, query string, args ...interface{}) ([]int, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []int{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			logging.Warn("filter option scan failed: %v", err)
			continue
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMediaItem(row rowScanner) (*MediaItem, error) {
	var item MediaItem
	var kind string
	var createdAt, ingestedAt int64
	var thumb sql.NullString

	err := row.Scan(
		&item.ID, &item.Filename, &item.Filepath, &kind,
		&createdAt, &ingestedAt, &item.Size, &thumb, &item.Owner,
	)
	if err != nil {
		return nil, err
	}

	item.Kind = mediatypes.MediaKind(kind)
	item.CreatedAt = time.Unix(createdAt, 0)
	item.IngestedAt = time.Unix(ingestedAt, 0)
	if thumb.Valid {
		item.ThumbnailPath = thumb.String
	}
	return &item, nil
}
