package scanner

import (
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-gallery/internal/database"
	"media-gallery/internal/filesystem"
	"media-gallery/internal/media"
	"media-gallery/internal/mediatypes"

	"github.com/disintegration/imaging"
)

func newTestScanner(t *testing.T) (*Scanner, *database.Database, *filesystem.Roots) {
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

	gen := media.NewGenerator(media.PlaceholderThumbnailer{})
	return New(db, roots, gen, time.Hour), db, roots
}

func addUser(t *testing.T, db *database.Database, username string, roots *filesystem.Roots) {
	t.Helper()

	ctx := context.Background()
	if _, err := db.CreateUser(ctx, username, "password"); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	if err := roots.EnsureUserDirs(username); err != nil {
		t.Fatalf("failed to create dirs for %s: %v", username, err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()

	img := imaging.New(64, 48, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

func TestScanCatalogsNewFiles(t *testing.T) {
	t.Parallel()

	s, db, roots := newTestScanner(t)
	ctx := context.Background()
	addUser(t, db, "alice", roots)

	mediaRoot := roots.MediaRoot("alice")
	writePNG(t, filepath.Join(mediaRoot, "photo.png"))
	if err := os.WriteFile(filepath.Join(mediaRoot, "clip.mp4"), []byte("video bytes"), 0o644); err != nil {
		t.Fatalf("failed to write clip: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mediaRoot, "notes.txt"), []byte("not media"), 0o644); err != nil {
		t.Fatalf("failed to write notes: %v", err)
	}

	added, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if added != 2 {
		t.Errorf("Scan added %d items, want 2", added)
	}

	page, err := db.ListMedia(ctx, database.ListOptions{Owner: "alice"})
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("catalog has %d items, want 2", page.Total)
	}

	kinds := make(map[string]mediatypes.MediaKind)
	for _, item := range page.Items {
		kinds[item.Filename] = item.Kind
		if item.ThumbnailPath == "" {
			t.Errorf("item %s has no thumbnail", item.Filename)
			continue
		}
		if _, err := os.Stat(item.ThumbnailPath); err != nil {
			t.Errorf("thumbnail %s missing on disk: %v", item.ThumbnailPath, err)
		}
	}
	if kinds["photo.png"] != mediatypes.KindImage {
		t.Errorf("photo.png kind = %s, want image", kinds["photo.png"])
	}
	if kinds["clip.mp4"] != mediatypes.KindVideo {
		t.Errorf("clip.mp4 kind = %s, want video", kinds["clip.mp4"])
	}
}

func TestScanIdempotent(t *testing.T) {
	t.Parallel()

	s, db, roots := newTestScanner(t)
	ctx := context.Background()
	addUser(t, db, "alice", roots)
	writePNG(t, filepath.Join(roots.MediaRoot("alice"), "photo.png"))

	if added, err := s.Scan(ctx); err != nil || added != 1 {
		t.Fatalf("first Scan = (%d, %v), want (1, nil)", added, err)
	}
	if added, err := s.Scan(ctx); err != nil || added != 0 {
		t.Errorf("second Scan = (%d, %v), want (0, nil)", added, err)
	}
}

func TestScanMissingRootSkipped(t *testing.T) {
	t.Parallel()

	s, db, _ := newTestScanner(t)
	ctx := context.Background()

	// User exists in the catalog but has no directory on disk.
	if _, err := db.CreateUser(ctx, "ghost", "password"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	added, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if added != 0 {
		t.Errorf("Scan added %d items, want 0", added)
	}
}

func TestScanCorruptImageCatalogedWithoutThumbnail(t *testing.T) {
	t.Parallel()

	s, db, roots := newTestScanner(t)
	ctx := context.Background()
	addUser(t, db, "alice", roots)

	broken := filepath.Join(roots.MediaRoot("alice"), "broken.jpg")
	if err := os.WriteFile(broken, []byte("not a jpeg"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	added, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("Scan added %d items, want 1", added)
	}

	page, err := db.ListMedia(ctx, database.ListOptions{Owner: "alice"})
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("catalog has %d items, want 1", len(page.Items))
	}
	if page.Items[0].ThumbnailPath != "" {
		t.Errorf("corrupt image has thumbnail path %q, want empty", page.Items[0].ThumbnailPath)
	}
}

func TestScanHiddenFilesIgnored(t *testing.T) {
	t.Parallel()

	s, db, roots := newTestScanner(t)
	ctx := context.Background()
	addUser(t, db, "alice", roots)

	mediaRoot := roots.MediaRoot("alice")
	writePNG(t, filepath.Join(mediaRoot, ".hidden.png"))
	hiddenDir := filepath.Join(mediaRoot, ".trash")
	if err := os.MkdirAll(hiddenDir, 0o755); err != nil {
		t.Fatalf("failed to create hidden dir: %v", err)
	}
	writePNG(t, filepath.Join(hiddenDir, "buried.png"))

	added, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if added != 0 {
		t.Errorf("Scan added %d hidden items, want 0", added)
	}
}

func TestScanCreatedAtFromModTime(t *testing.T) {
	t.Parallel()

	s, db, roots := newTestScanner(t)
	ctx := context.Background()
	addUser(t, db, "alice", roots)

	path := filepath.Join(roots.MediaRoot("alice"), "old.png")
	writePNG(t, path)

	taken := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, taken, taken); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}

	if _, err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	page, err := db.ListMedia(ctx, database.ListOptions{Owner: "alice", Year: 2023})
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("year filter found %d items, want 1", page.Total)
	}
	if page.Items[0].CreatedAt.Unix() != taken.Unix() {
		t.Errorf("CreatedAt = %v, want %v", page.Items[0].CreatedAt, taken)
	}
}

func TestScanMultipleUsers(t *testing.T) {
	t.Parallel()

	s, db, roots := newTestScanner(t)
	ctx := context.Background()
	addUser(t, db, "alice", roots)
	addUser(t, db, "bob", roots)

	writePNG(t, filepath.Join(roots.MediaRoot("alice"), "a.png"))
	writePNG(t, filepath.Join(roots.MediaRoot("bob"), "b1.png"))
	writePNG(t, filepath.Join(roots.MediaRoot("bob"), "b2.png"))

	added, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if added != 3 {
		t.Errorf("Scan added %d items, want 3", added)
	}

	alicePage, err := db.ListMedia(ctx, database.ListOptions{Owner: "alice"})
	if err != nil {
		t.Fatalf("ListMedia(alice) failed: %v", err)
	}
	if alicePage.Total != 1 {
		t.Errorf("alice has %d items, want 1", alicePage.Total)
	}

	bobPage, err := db.ListMedia(ctx, database.ListOptions{Owner: "bob"})
	if err != nil {
		t.Fatalf("ListMedia(bob) failed: %v", err)
	}
	if bobPage.Total != 2 {
		t.Errorf("bob has %d items, want 2", bobPage.Total)
	}
}
