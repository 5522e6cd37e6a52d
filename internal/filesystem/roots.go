package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Placeholder is the token substituted with the username in path templates.
const Placeholder = "{username}"

// ThumbnailSuffix is appended to the source file's stem when deriving
// the thumbnail filename. All thumbnails are re-encoded as JPEG.
const (
	ThumbnailSuffix = "_thumb"
	ThumbnailExt    = ".jpg"
)

// Roots resolves per-user storage directories from configured path
// templates. Templates contain the {username} placeholder, e.g.
// "/media/{username}"; resolution is plain substitution followed by
// absolute-path normalization.
type Roots struct {
	mediaTemplate string
	thumbTemplate string
}

// NewRoots creates a Roots resolver from the media and thumbnail path
// templates. Both templates must contain the {username} placeholder so
// that users cannot observe each other's trees.
func NewRoots(mediaTemplate, thumbTemplate string) (*Roots, error) {
	if !strings.Contains(mediaTemplate, Placeholder) {
		return nil, fmt.Errorf("media path template %q must contain %s", mediaTemplate, Placeholder)
	}
	if !strings.Contains(thumbTemplate, Placeholder) {
		return nil, fmt.Errorf("thumbnail path template %q must contain %s", thumbTemplate, Placeholder)
	}
	return &Roots{
		mediaTemplate: mediaTemplate,
		thumbTemplate: thumbTemplate,
	}, nil
}

// MediaRoot returns the absolute media directory for a user.
func (r *Roots) MediaRoot(username string) string {
	return resolve(r.mediaTemplate, username)
}

// ThumbnailRoot returns the absolute thumbnail directory for a user.
func (r *Roots) ThumbnailRoot(username string) string {
	return resolve(r.thumbTemplate, username)
}

// ThumbnailPath returns the derived thumbnail path for a user's media
// file: thumbnail root + source stem + fixed suffix + fixed extension.
// The mapping is deterministic so repeated scans agree on the target.
func (r *Roots) ThumbnailPath(username, sourcePath string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(r.ThumbnailRoot(username), stem+ThumbnailSuffix+ThumbnailExt)
}

// EnsureUserDirs creates the media and thumbnail directories for a user
// if they do not exist. Safe to call repeatedly.
func (r *Roots) EnsureUserDirs(username string) error {
	if err := os.MkdirAll(r.MediaRoot(username), 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.MkdirAll(r.ThumbnailRoot(username), 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	return nil
}

func resolve(template, username string) string {
	path := strings.ReplaceAll(template, Placeholder, username)
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ValidUsername reports whether a username is safe to substitute into a
// path template. Usernames become directory names, so anything that
// could escape the per-user tree is rejected.
func ValidUsername(username string) bool {
	if username == "" || username == "." || username == ".." {
		return false
	}
	if strings.ContainsAny(username, `/\`) {
		return false
	}
	return true
}
