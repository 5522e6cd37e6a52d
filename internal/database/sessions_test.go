package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	session, err := db.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Token == "" {
		t.Fatal("session token is empty")
	}
	if until := time.Until(session.ExpiresAt); until < SessionDuration-time.Minute {
		t.Errorf("session expires in %v, want about %v", until, SessionDuration)
	}

	username, err := db.ValidateSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if username != "alice" {
		t.Errorf("ValidateSession returned %q, want alice", username)
	}

	if err := db.DeleteSession(session.Token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := db.ValidateSession(ctx, session.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("validation after delete = %v, want ErrNotFound", err)
	}
}

func TestValidateSessionRejectsBadTokens(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not hex", "zzzz"},
		{"valid hex, unknown", "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := db.ValidateSession(ctx, tt.token); !errors.Is(err, ErrNotFound) {
				t.Errorf("ValidateSession(%q) = %v, want ErrNotFound", tt.token, err)
			}
		})
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	session, err := db.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Backdate the expiry directly; there is no API for shortening it.
	if _, err := db.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ? WHERE username = ?",
		time.Now().Add(-time.Hour).Unix(), "alice",
	); err != nil {
		t.Fatalf("failed to backdate session: %v", err)
	}

	if _, err := db.ValidateSession(ctx, session.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session validation = %v, want ErrNotFound", err)
	}
}

func TestCleanExpiredSessions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	live, err := db.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	stale, err := db.CreateSession(ctx, "bob")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := db.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ? WHERE username = ?",
		time.Now().Add(-time.Hour).Unix(), "bob",
	); err != nil {
		t.Fatalf("failed to backdate session: %v", err)
	}

	if err := db.CleanExpiredSessions(); err != nil {
		t.Fatalf("CleanExpiredSessions: %v", err)
	}

	if _, err := db.ValidateSession(ctx, live.Token); err != nil {
		t.Errorf("live session should survive cleanup: %v", err)
	}
	if _, err := db.ValidateSession(ctx, stale.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale session should be removed, got %v", err)
	}
}
