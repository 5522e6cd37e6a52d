package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"media-gallery/internal/mediatypes"
)

const testOperator = "admin"

// newTestDB creates a throwaway catalog database in a temp directory.
func newTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "gallery.db"), testOperator)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

// insertTestItem inserts a media item with a deterministic path and the
// given creation time.
func insertTestItem(t *testing.T, db *Database, owner, path string, createdAt time.Time) *MediaItem {
	t.Helper()

	item := &MediaItem{
		Filename:  filepath.Base(path),
		Filepath:  path,
		Kind:      mediatypes.KindImage,
		CreatedAt: createdAt,
		Size:      1024,
		Owner:     owner,
	}
	if err := db.InsertMedia(context.Background(), item); err != nil {
		t.Fatalf("failed to insert %s: %v", path, err)
	}
	return item
}

func TestOperator(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	if got := db.Operator(); got != testOperator {
		t.Errorf("Operator() = %q, want %q", got, testOperator)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gallery.db")
	ctx := context.Background()

	db, err := New(ctx, dbPath, testOperator)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	insertTestItem(t, db, "alice", "/media/alice/a.jpg", time.Now())
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening must run schema setup idempotently and keep data.
	db2, err := New(ctx, dbPath, testOperator)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db2.Close()

	has, err := db2.HasPath(ctx, "/media/alice/a.jpg")
	if err != nil {
		t.Fatalf("HasPath: %v", err)
	}
	if !has {
		t.Error("item inserted before reopen should still be indexed")
	}
}
