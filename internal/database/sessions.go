package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"media-gallery/internal/logging"
)

// SessionDuration is the length of time a session remains valid.
const SessionDuration = 30 * 24 * time.Hour

// CreateSession creates a session for an authenticated principal. Only
// the SHA-256 hash of the token is stored; the plain token is returned
// to the client once and never persisted.
func (d *Database) CreateSession(ctx context.Context, username string) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tokenBytes := make([]byte, 32)
	if _, err = rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	hash := sha256.Sum256(tokenBytes)
	tokenHash := hex.EncodeToString(hash[:])
	token := hex.EncodeToString(tokenBytes)

	expiresAt := time.Now().Add(SessionDuration)

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (username, token, expires_at) VALUES (?, ?, ?)",
		username, tokenHash, expiresAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, _ := result.LastInsertId()

	return &Session{
		ID:        id,
		Username:  username,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// ValidateSession resolves a session token to its username. Returns
// ErrNotFound for unknown, malformed, or expired tokens.
func (d *Database) ValidateSession(ctx context.Context, token string) (string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("validate_session", start, err) }()

	tokenBytes, err := hex.DecodeString(token)
	if err != nil {
		err = fmt.Errorf("malformed session token: %w", ErrNotFound)
		return "", err
	}
	hash := sha256.Sum256(tokenBytes)
	tokenHash := hex.EncodeToString(hash[:])

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var username string
	var expiresAt int64

	err = d.db.QueryRowContext(ctx,
		"SELECT username, expires_at FROM sessions WHERE token = ?",
		tokenHash,
	).Scan(&username, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("unknown session: %w", ErrNotFound)
		return "", err
	}
	if err != nil {
		return "", err
	}

	if time.Now().Unix() > expiresAt {
		// Clean up in the background; validation should not block on it.
		go func() {
			if delErr := d.deleteSessionByHash(tokenHash); delErr != nil {
				logging.Error("failed to delete expired session: %v", delErr)
			}
		}()
		err = fmt.Errorf("session expired: %w", ErrNotFound)
		return "", err
	}

	return username, nil
}

// DeleteSession removes a session by its plain token.
func (d *Database) DeleteSession(token string) error {
	tokenBytes, err := hex.DecodeString(token)
	if err != nil {
		return fmt.Errorf("malformed session token: %w", err)
	}
	hash := sha256.Sum256(tokenBytes)
	return d.deleteSessionByHash(hex.EncodeToString(hash[:]))
}

func (d *Database) deleteSessionByHash(tokenHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", tokenHash)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (d *Database) CleanExpiredSessions() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clean_expired_sessions", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	return err
}
