package gallery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-gallery/internal/database"
	"media-gallery/internal/filesystem"
	"media-gallery/internal/media"
	"media-gallery/internal/mediatypes"
)

func newTestService(t *testing.T) (*Service, *database.Database, *filesystem.Roots) {
	t.Helper()

	dir := t.TempDir()
	roots, err := filesystem.NewRoots(
		filepath.Join(dir, "media", "{username}"),
		filepath.Join(dir, "thumbs", "{username}"),
	)
	if err != nil {
		t.Fatalf("failed to build roots: %v", err)
	}

	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(dir, "gallery.db"), "admin")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, username := range []string{"alice", "bob", "carol"} {
		if _, err := db.CreateUser(ctx, username, "password"); err != nil {
			t.Fatalf("failed to create user %s: %v", username, err)
		}
	}

	svc := NewService(db, roots, media.NewGenerator(media.PlaceholderThumbnailer{}))
	return svc, db, roots
}

func insertItem(t *testing.T, db *database.Database, owner, path string, createdAt int64) int64 {
	t.Helper()

	item := database.MediaItem{
		Filename:  filepath.Base(path),
		Filepath:  path,
		Kind:      mediatypes.KindImage,
		CreatedAt: time.Unix(createdAt, 0),
		Size:      100,
		Owner:     owner,
	}
	if err := db.InsertMedia(context.Background(), &item); err != nil {
		t.Fatalf("failed to insert item: %v", err)
	}
	return item.ID
}

func TestCanRead(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	if err := db.AddShare(ctx, "alice", "bob"); err != nil {
		t.Fatalf("AddShare failed: %v", err)
	}

	tests := []struct {
		name      string
		principal string
		owner     string
		want      bool
	}{
		{"own gallery", "alice", "alice", true},
		{"granted share", "bob", "alice", true},
		{"no share", "carol", "alice", false},
		{"share is directed", "alice", "bob", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanRead(ctx, tt.principal, tt.owner)
			if err != nil {
				t.Fatalf("CanRead failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanRead(%s, %s) = %v, want %v", tt.principal, tt.owner, got, tt.want)
			}
		})
	}
}

func TestListDeniedWithoutShare(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	insertItem(t, db, "alice", "/m/alice/a.jpg", 1700000000)

	_, err := svc.List(ctx, "bob", database.ListOptions{Owner: "alice"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("List error = %v, want ErrForbidden", err)
	}
}

func TestRevocationTakesEffectImmediately(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	insertItem(t, db, "alice", "/m/alice/a.jpg", 1700000000)

	if err := svc.Share(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if _, err := svc.List(ctx, "bob", database.ListOptions{Owner: "alice"}); err != nil {
		t.Fatalf("List after share failed: %v", err)
	}

	if err := svc.Unshare(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Unshare failed: %v", err)
	}
	if _, err := svc.List(ctx, "bob", database.ListOptions{Owner: "alice"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("List after unshare error = %v, want ErrForbidden", err)
	}
}

func TestGetItemAuthorizedByOwner(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	id := insertItem(t, db, "alice", "/m/alice/a.jpg", 1700000000)

	if _, err := svc.GetItem(ctx, "alice", id); err != nil {
		t.Errorf("owner GetItem failed: %v", err)
	}
	if _, err := svc.GetItem(ctx, "bob", id); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger GetItem error = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetItem(ctx, "alice", 99999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("missing GetItem error = %v, want ErrNotFound", err)
	}
}

func TestGalleries(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	if err := db.AddShare(ctx, "alice", "carol"); err != nil {
		t.Fatalf("AddShare failed: %v", err)
	}
	if err := db.AddShare(ctx, "bob", "carol"); err != nil {
		t.Fatalf("AddShare failed: %v", err)
	}

	got, err := svc.Galleries(ctx, "carol")
	if err != nil {
		t.Fatalf("Galleries failed: %v", err)
	}
	if len(got) != 3 || got[0] != "carol" {
		t.Fatalf("Galleries = %v, want [carol alice bob] ordering with self first", got)
	}
}

func TestShareViolationsPropagate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Share(ctx, "alice", "alice"); !errors.Is(err, database.ErrSelfShare) {
		t.Errorf("self share error = %v, want ErrSelfShare", err)
	}
	if err := svc.Share(ctx, "alice", "nobody"); !errors.Is(err, database.ErrUnknownUser) {
		t.Errorf("unknown grantee error = %v, want ErrUnknownUser", err)
	}
	if err := svc.Unshare(ctx, "alice", "bob"); !errors.Is(err, database.ErrNotShared) {
		t.Errorf("unshare missing error = %v, want ErrNotShared", err)
	}
}

func TestSaveUpload(t *testing.T) {
	t.Parallel()

	svc, db, roots := newTestService(t)
	ctx := context.Background()

	item, err := svc.SaveUpload(ctx, "alice", "photo.jpg", strings.NewReader("jpeg bytes"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if item.Filename != "photo.jpg" {
		t.Errorf("Filename = %s, want photo.jpg", item.Filename)
	}
	if item.Owner != "alice" {
		t.Errorf("Owner = %s, want alice", item.Owner)
	}

	if _, err := os.Stat(filepath.Join(roots.MediaRoot("alice"), "photo.jpg")); err != nil {
		t.Errorf("uploaded file missing: %v", err)
	}

	page, err := db.ListMedia(ctx, database.ListOptions{Owner: "alice"})
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("catalog has %d items, want 1", page.Total)
	}
}

func TestSaveUploadCollisionSuffix(t *testing.T) {
	t.Parallel()

	svc, _, roots := newTestService(t)
	ctx := context.Background()

	first, err := svc.SaveUpload(ctx, "alice", "a.png", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("first SaveUpload failed: %v", err)
	}
	second, err := svc.SaveUpload(ctx, "alice", "a.png", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("second SaveUpload failed: %v", err)
	}
	third, err := svc.SaveUpload(ctx, "alice", "a.png", strings.NewReader("three"))
	if err != nil {
		t.Fatalf("third SaveUpload failed: %v", err)
	}

	if first.Filename != "a.png" || second.Filename != "a_1.png" || third.Filename != "a_2.png" {
		t.Errorf("filenames = %s, %s, %s, want a.png, a_1.png, a_2.png",
			first.Filename, second.Filename, third.Filename)
	}

	// The original file is untouched.
	data, err := os.ReadFile(filepath.Join(roots.MediaRoot("alice"), "a.png"))
	if err != nil {
		t.Fatalf("failed to read original: %v", err)
	}
	if string(data) != "one" {
		t.Errorf("original content = %q, want %q", data, "one")
	}
}

func TestSaveUploadRejectsNonMedia(t *testing.T) {
	t.Parallel()

	svc, _, roots := newTestService(t)
	ctx := context.Background()

	tests := []string{"notes.txt", "script.sh", ".hidden.jpg", "noext"}
	for _, name := range tests {
		if _, err := svc.SaveUpload(ctx, "alice", name, strings.NewReader("x")); !errors.Is(err, ErrUnsupportedFile) {
			t.Errorf("SaveUpload(%s) error = %v, want ErrUnsupportedFile", name, err)
		}
	}

	// A path-traversal name is reduced to its base before any check.
	item, err := svc.SaveUpload(ctx, "alice", "../../../etc/evil.png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveUpload with traversal name failed: %v", err)
	}
	if item.Filename != "evil.png" {
		t.Errorf("Filename = %s, want evil.png", item.Filename)
	}
	if !strings.HasPrefix(item.Filepath, roots.MediaRoot("alice")) {
		t.Errorf("Filepath %s escaped media root", item.Filepath)
	}
}
