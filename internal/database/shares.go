package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// AddShare creates the edge (owner, grantee) in the share graph.
// Fails with ErrSelfShare when owner == grantee, ErrUnknownUser when the
// grantee is neither the operator nor a stored user, and ErrAlreadyShared
// when the edge already exists.
func (d *Database) AddShare(ctx context.Context, owner, grantee string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_share", start, err) }()

	if owner == grantee {
		err = ErrSelfShare
		return err
	}

	known, err := d.UserKnown(ctx, grantee)
	if err != nil {
		return err
	}
	if !known {
		err = fmt.Errorf("grantee %s: %w", grantee, ErrUnknownUser)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		"INSERT INTO shares (owner_username, shared_with_username) VALUES (?, ?)",
		owner, grantee,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			err = ErrAlreadyShared
		}
		return err
	}
	return nil
}

// RemoveShare deletes the edge (owner, grantee). Fails with ErrNotShared
// if the edge does not exist.
func (d *Database) RemoveShare(ctx context.Context, owner, grantee string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_share", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"DELETE FROM shares WHERE owner_username = ? AND shared_with_username = ?",
		owner, grantee,
	)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = ErrNotShared
		return err
	}
	return nil
}

// IsShared reports whether the edge (owner, grantee) exists. Consulted
// by the access gate on every cross-user read; never cached, so a
// revoked share takes effect on the next request.
func (d *Database) IsShared(ctx context.Context, owner, grantee string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("is_shared", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err = d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM shares
			WHERE owner_username = ? AND shared_with_username = ?
		)`, owner, grantee,
	).Scan(&exists)
	return exists, err
}

// SharedWith returns the owners whose galleries are shared with the
// grantee, oldest share first.
func (d *Database) SharedWith(ctx context.Context, grantee string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("shared_with", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT owner_username FROM shares WHERE shared_with_username = ? ORDER BY created_at, id",
		grantee,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming shares: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("share scan failed: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// Grantees returns the users the owner has shared their gallery with,
// oldest share first.
func (d *Database) Grantees(ctx context.Context, owner string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("grantees", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT shared_with_username FROM shares WHERE owner_username = ? ORDER BY created_at, id",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing shares: %w", err)
	}
	defer rows.Close()

	grantees := []string{}
	for rows.Next() {
		var grantee string
		if err := rows.Scan(&grantee); err != nil {
			return nil, fmt.Errorf("share scan failed: %w", err)
		}
		grantees = append(grantees, grantee)
	}
	return grantees, rows.Err()
}
