package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"media-gallery/internal/database"
	"media-gallery/internal/filesystem"
	"media-gallery/internal/logging"
	"media-gallery/internal/media"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"
)

var (
	// ErrForbidden indicates the principal may not read the requested
	// owner's gallery.
	ErrForbidden = errors.New("access denied")

	// ErrUnsupportedFile indicates an upload with a non-media extension.
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// Upper bound on collision-renaming attempts for a single upload.
const maxRenameAttempts = 1000

// Service enforces gallery access and mediates reads and writes between
// handlers and the catalog. Every read of another user's gallery is
// re-checked against the share graph at call time, so a revoked grant
// takes effect on the next request.
type Service struct {
	db     *database.Database
	roots  *filesystem.Roots
	thumbs *media.Generator
}

// NewService creates a gallery Service.
func NewService(db *database.Database, roots *filesystem.Roots, thumbs *media.Generator) *Service {
	return &Service{db: db, roots: roots, thumbs: thumbs}
}

// CanRead reports whether principal may read owner's gallery: users
// always read their own, everyone else needs a share grant from owner.
func (s *Service) CanRead(ctx context.Context, principal, owner string) (bool, error) {
	if principal == owner {
		return true, nil
	}
	return s.db.IsShared(ctx, owner, principal)
}

// authorize returns ErrForbidden unless principal may read owner.
func (s *Service) authorize(ctx context.Context, principal, owner string) error {
	ok, err := s.CanRead(ctx, principal, owner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s cannot read gallery of %s", ErrForbidden, principal, owner)
	}
	return nil
}

// List returns a page of opts.Owner's media, newest first, after
// checking that principal may read that gallery.
func (s *Service) List(ctx context.Context, principal string, opts database.ListOptions) (*database.MediaPage, error) {
	if err := s.authorize(ctx, principal, opts.Owner); err != nil {
		return nil, err
	}
	return s.db.ListMedia(ctx, opts)
}

// GetItem returns a single media item by id, authorizing principal
// against the item's owner.
func (s *Service) GetItem(ctx context.Context, principal string, id int64) (*database.MediaItem, error) {
	item, err := s.db.GetMediaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, principal, item.Owner); err != nil {
		return nil, err
	}
	return item, nil
}

// FilterOptions returns the date buckets available for narrowing a
// listing of owner's gallery.
func (s *Service) FilterOptions(ctx context.Context, principal, owner string, year, month int) (*database.FilterOptions, error) {
	if err := s.authorize(ctx, principal, owner); err != nil {
		return nil, err
	}
	return s.db.GetFilterOptions(ctx, year, month)
}

// Galleries returns every gallery principal may read: their own first,
// then owners who have shared with them.
func (s *Service) Galleries(ctx context.Context, principal string) ([]string, error) {
	shared, err := s.db.SharedWith(ctx, principal)
	if err != nil {
		return nil, err
	}
	return append([]string{principal}, shared...), nil
}

// Share grants grantee read access to owner's gallery.
func (s *Service) Share(ctx context.Context, owner, grantee string) error {
	if err := s.db.AddShare(ctx, owner, grantee); err != nil {
		return err
	}
	logging.Info("User %s shared gallery with %s", owner, grantee)
	return nil
}

// Unshare revokes grantee's read access to owner's gallery.
func (s *Service) Unshare(ctx context.Context, owner, grantee string) error {
	if err := s.db.RemoveShare(ctx, owner, grantee); err != nil {
		return err
	}
	logging.Info("User %s unshared gallery from %s", owner, grantee)
	return nil
}

// SharedWithMe returns the owners who have shared their gallery with
// principal.
func (s *Service) SharedWithMe(ctx context.Context, principal string) ([]string, error) {
	return s.db.SharedWith(ctx, principal)
}

// Grantees returns the users owner has shared their gallery with.
func (s *Service) Grantees(ctx context.Context, owner string) ([]string, error) {
	return s.db.Grantees(ctx, owner)
}

// SaveUpload stores one uploaded file into owner's media directory and
// catalogs it immediately, so the item is visible without waiting for
// the next scan pass. A name collision gets a numeric suffix rather
// than overwriting the existing file.
func (s *Service) SaveUpload(ctx context.Context, owner, filename string, r io.Reader) (*database.MediaItem, error) {
	filename = filepath.Base(filename)
	if filename == "" || filename == "." || strings.HasPrefix(filename, ".") {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: invalid filename", ErrUnsupportedFile)
	}

	kind := mediatypes.KindForName(filename)
	if kind == mediatypes.KindOther {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(filename))
	}

	if err := s.roots.EnsureUserDirs(owner); err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	path, file, err := s.createUnique(s.roots.MediaRoot(owner), filename)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(path)
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to close upload: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	item := database.MediaItem{
		Filename:  filepath.Base(path),
		Filepath:  path,
		Kind:      kind,
		CreatedAt: info.ModTime(),
		Size:      info.Size(),
		Owner:     owner,
	}

	thumbPath := s.roots.ThumbnailPath(owner, path)
	if s.thumbs.Ensure(path, kind, thumbPath) {
		item.ThumbnailPath = thumbPath
	}

	if err := s.db.InsertMedia(ctx, &item); err != nil {
		os.Remove(path)
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	logging.Info("User %s uploaded %s (%d bytes)", owner, item.Filename, item.Size)
	return &item, nil
}

// createUnique opens a new file under dir for exclusive creation,
// appending _1, _2, ... to the stem until an unused name is found. The
// O_EXCL open makes concurrent uploads of the same name race-free.
func (s *Service) createUnique(dir, filename string) (string, *os.File, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	name := filename
	for attempt := 1; attempt <= maxRenameAttempts; attempt++ {
		path := filepath.Join(dir, name)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, file, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, fmt.Errorf("failed to create upload file: %w", err)
		}
		name = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
	}
	return "", nil, fmt.Errorf("could not find free name for %s after %d attempts", filename, maxRenameAttempts)
}
