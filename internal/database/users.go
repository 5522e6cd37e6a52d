package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// CreateUser stores a new account with a bcrypt-hashed credential.
// Returns ErrConflict for a duplicate username (the operator name is the
// caller's responsibility to reject, since it lives in configuration).
func (d *Database) CreateUser(ctx context.Context, username, password string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_user", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, string(hash),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			err = fmt.Errorf("username %s: %w", username, ErrConflict)
		}
		return nil, err
	}

	id, _ := result.LastInsertId()
	return &User{
		ID:        id,
		Username:  username,
		CreatedAt: time.Now(),
	}, nil
}

// ValidateCredentials checks a stored user's password. Returns
// ErrNotFound for an unknown username and ErrInvalidInput for a wrong
// password, so callers can collapse both into one login failure.
func (d *Database) ValidateCredentials(ctx context.Context, username, password string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("validate_credentials", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var hash string
	var createdAt int64

	err = d.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username, &hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("user %s: %w", username, ErrNotFound)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		err = fmt.Errorf("wrong password: %w", ErrInvalidInput)
		return nil, err
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// UserExists reports whether a username resolves to a stored account.
func (d *Database) UserExists(ctx context.Context, username string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)", username,
	).Scan(&exists)
	return exists, err
}

// UserKnown reports whether a username is a valid principal: either the
// configured operator or a stored account.
func (d *Database) UserKnown(ctx context.Context, username string) (bool, error) {
	if username == d.operator {
		return true, nil
	}
	return d.UserExists(ctx, username)
}

// ListUsers returns all stored accounts, newest first.
func (d *Database) ListUsers(ctx context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, username, created_at FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var user User
		var createdAt int64
		if err := rows.Scan(&user.ID, &user.Username, &createdAt); err != nil {
			return nil, fmt.Errorf("user scan failed: %w", err)
		}
		user.CreatedAt = time.Unix(createdAt, 0)
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListUsernames returns every username the scanner should walk: the
// operator first, then all stored accounts.
func (d *Database) ListUsernames(ctx context.Context) ([]string, error) {
	users, err := d.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(users)+1)
	names = append(names, d.operator)
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names, nil
}

// DeleteUser removes a stored account and cascades to its share edges
// (both directions), its sessions, and its media rows. Files on disk are
// untouched. Returns ErrNotFound if the username does not resolve.
func (d *Database) DeleteUser(ctx context.Context, username string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_user", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
		}
	}()

	result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = fmt.Errorf("user %s: %w", username, ErrNotFound)
		return err
	}

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM shares WHERE owner_username = ? OR shared_with_username = ?",
		username, username,
	); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM media WHERE owner_username = ?", username); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM sessions WHERE username = ?", username); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// UpdatePassword replaces a stored user's credential and invalidates the
// user's sessions. Returns ErrNotFound if the username does not resolve.
func (d *Database) UpdatePassword(ctx context.Context, username, newPassword string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_password", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := d.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE username = ?",
		string(hash), username,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = fmt.Errorf("user %s: %w", username, ErrNotFound)
		return err
	}

	if _, delErr := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE username = ?", username); delErr != nil {
		return fmt.Errorf("password updated but session invalidation failed: %w", delErr)
	}
	return nil
}
