package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-gallery/internal/database"
	"media-gallery/internal/filesystem"
	"media-gallery/internal/logging"
	"media-gallery/internal/media"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"
	"media-gallery/internal/workers"
)

// Maximum thumbnail workers per scan pass.
const maxThumbnailWorkers = 8

// Scanner reconciles each user's media directory with the catalog. Files
// already recorded are left untouched; new media files get a thumbnail
// and a catalog row. Rows are never removed for missing files, so a
// temporarily unmounted volume cannot empty a user's gallery.
type Scanner struct {
	db       *database.Database
	roots    *filesystem.Roots
	thumbs   *media.Generator
	interval time.Duration
	stopChan chan struct{}

	scanMu          sync.Mutex
	isScanning      bool
	lastScanTime    time.Time
	initialComplete bool
}

// New creates a Scanner. interval controls the periodic re-scan cadence.
func New(db *database.Database, roots *filesystem.Roots, thumbs *media.Generator, interval time.Duration) *Scanner {
	return &Scanner{
		db:       db,
		roots:    roots,
		thumbs:   thumbs,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the periodic scan loop in the background.
func (s *Scanner) Start() {
	go s.periodicScan()
}

// Stop terminates the periodic scan loop.
func (s *Scanner) Stop() {
	close(s.stopChan)
}

// IsReady reports whether at least one full scan has completed.
func (s *Scanner) IsReady() bool {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.initialComplete
}

// IsScanning reports whether a scan pass is currently in progress.
func (s *Scanner) IsScanning() bool {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.isScanning
}

// LastScanTime returns the completion time of the most recent scan.
func (s *Scanner) LastScanTime() time.Time {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.lastScanTime
}

// Scan runs one reconciliation pass over every known user and returns
// the number of newly cataloged items. A failure for one user is logged
// and counted but does not abort the pass; only a failure to enumerate
// users is returned as an error. Overlapping passes are coalesced.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	if !s.tryStartScan() {
		logging.Info("Scan already in progress, skipping")
		return 0, nil
	}
	defer s.finishScan()

	metrics.ScannerIsRunning.Set(1)
	defer metrics.ScannerIsRunning.Set(0)
	metrics.ScannerRunsTotal.Inc()

	start := time.Now()
	logging.Info("Starting media scan...")

	usernames, err := s.db.ListUsernames(ctx)
	if err != nil {
		return 0, err
	}

	totalNew := 0
	for _, username := range usernames {
		added, err := s.scanUser(ctx, username)
		if err != nil {
			metrics.ScannerUserErrors.Inc()
			logging.Error("Scan failed for user %s: %v", username, err)
			continue
		}
		totalNew += added
	}

	duration := time.Since(start)
	metrics.ScannerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.ScannerLastRunDuration.Set(duration.Seconds())
	metrics.ScannerItemsDiscovered.Add(float64(totalNew))

	logging.Info("Media scan complete: %d new items across %d users in %v",
		totalNew, len(usernames), duration)
	return totalNew, nil
}

func (s *Scanner) tryStartScan() bool {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if s.isScanning {
		return false
	}
	s.isScanning = true
	return true
}

func (s *Scanner) finishScan() {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	s.isScanning = false
	s.initialComplete = true
	s.lastScanTime = time.Now()
}

// scanUser walks one user's media root and catalogs new files.
func (s *Scanner) scanUser(ctx context.Context, username string) (int, error) {
	mediaRoot := s.roots.MediaRoot(username)

	if _, err := os.Stat(mediaRoot); err != nil {
		if os.IsNotExist(err) {
			// No directory yet for this user, nothing to scan.
			logging.Debug("Media root %s does not exist, skipping", mediaRoot)
			return 0, nil
		}
		return 0, err
	}

	pending, err := s.collectNewFiles(ctx, username, mediaRoot)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	logging.Info("Found %d new files for user %s", len(pending), username)
	return s.ingestFiles(ctx, username, pending), nil
}

type pendingFile struct {
	path string
	kind mediatypes.MediaKind
	info fs.FileInfo
}

// collectNewFiles walks the media root and returns media files not yet
// in the catalog. Hidden entries are skipped entirely.
func (s *Scanner) collectNewFiles(ctx context.Context, username, mediaRoot string) ([]pendingFile, error) {
	var pending []pendingFile

	err := filepath.WalkDir(mediaRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return fs.SkipAll
		default:
		}

		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") && path != mediaRoot {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		metrics.ScannerFilesExamined.Inc()

		kind := mediatypes.KindForName(d.Name())
		if kind == mediatypes.KindOther {
			return nil
		}

		known, err := s.db.HasPath(ctx, path)
		if err != nil {
			return err
		}
		if known {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error reading file info for %s: %v", path, err)
			return nil
		}

		pending = append(pending, pendingFile{path: path, kind: kind, info: info})
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return nil, err
	}

	return pending, nil
}

// ingestFiles generates thumbnails and inserts catalog rows using a
// bounded worker pool. Returns the number of rows actually inserted.
func (s *Scanner) ingestFiles(ctx context.Context, username string, pending []pendingFile) int {
	numWorkers := workers.ForCPU(maxThumbnailWorkers)
	if numWorkers > len(pending) {
		numWorkers = len(pending)
	}

	jobs := make(chan pendingFile)
	var inserted atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				if s.ingestOne(ctx, username, file) {
					inserted.Add(1)
				}
			}
		}()
	}

	for _, file := range pending {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return int(inserted.Load())
		case jobs <- file:
		}
	}
	close(jobs)
	wg.Wait()

	return int(inserted.Load())
}

// ingestOne generates the thumbnail for one file and records it. A
// thumbnail failure still records the item, just without a thumbnail.
func (s *Scanner) ingestOne(ctx context.Context, username string, file pendingFile) bool {
	thumbPath := s.roots.ThumbnailPath(username, file.path)

	item := database.MediaItem{
		Filename:  filepath.Base(file.path),
		Filepath:  file.path,
		Kind:      file.kind,
		CreatedAt: file.info.ModTime(),
		Size:      file.info.Size(),
		Owner:     username,
	}

	if s.thumbs.Ensure(file.path, file.kind, thumbPath) {
		item.ThumbnailPath = thumbPath
	}

	if err := s.db.InsertMedia(ctx, &item); err != nil {
		if errors.Is(err, database.ErrConflict) {
			// Another pass recorded it first.
			return false
		}
		logging.Error("Failed to catalog %s: %v", file.path, err)
		return false
	}

	logging.Debug("Cataloged %s for user %s", file.path, username)
	return true
}

// periodicScan re-runs Scan on the configured interval until Stop.
func (s *Scanner) periodicScan() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Scan(context.Background()); err != nil {
				logging.Error("Periodic scan failed: %v", err)
			}
		case <-s.stopChan:
			logging.Info("Scanner stopped")
			return
		}
	}
}
