package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
	"media-gallery/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// Thumbnails fit within this bounding box, aspect ratio preserved.
	thumbMaxWidth  = 400
	thumbMaxHeight = 400

	// JPEG quality for re-encoded thumbnails.
	thumbQuality = 85
)

// Generator derives thumbnail files from media items. Image thumbnails
// are decoded, fitted and re-encoded in place; video thumbnails come
// from the configured VideoThumbnailer strategy.
type Generator struct {
	video VideoThumbnailer
}

// NewGenerator creates a Generator with the given video strategy. A nil
// strategy falls back to the fixed placeholder.
func NewGenerator(video VideoThumbnailer) *Generator {
	if video == nil {
		video = PlaceholderThumbnailer{}
	}
	return &Generator{video: video}
}

// Ensure generates the thumbnail for sourcePath at targetPath and
// reports success. An existing target is left untouched. Failures are
// logged and reported as false; they never propagate, so a corrupt file
// degrades to an item without a thumbnail instead of aborting the
// ingest that requested it.
func (g *Generator) Ensure(sourcePath string, kind mediatypes.MediaKind, targetPath string) bool {
	if _, err := os.Stat(targetPath); err == nil {
		return true
	}

	start := time.Now()
	err := g.generate(sourcePath, kind, targetPath)
	metrics.ThumbnailGenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ThumbnailsGenerated.WithLabelValues(string(kind), "error").Inc()
		logging.Warn("Thumbnail generation failed for %s: %v", sourcePath, err)
		return false
	}

	metrics.ThumbnailsGenerated.WithLabelValues(string(kind), "success").Inc()
	logging.Debug("Thumbnail generated: %s -> %s", sourcePath, targetPath)
	return true
}

func (g *Generator) generate(sourcePath string, kind mediatypes.MediaKind, targetPath string) error {
	var img image.Image
	var err error

	switch kind {
	case mediatypes.KindImage:
		img, err = decodeImage(sourcePath)
		if err == nil {
			img = imaging.Fit(img, thumbMaxWidth, thumbMaxHeight, imaging.Lanczos)
		}
	case mediatypes.KindVideo:
		img, err = g.video.Frame(sourcePath)
		if err == nil && (img.Bounds().Dx() > thumbMaxWidth || img.Bounds().Dy() > thumbMaxHeight) {
			img = imaging.Fit(img, thumbMaxWidth, thumbMaxHeight, imaging.Lanczos)
		}
	default:
		return fmt.Errorf("unsupported media kind: %s", kind)
	}

	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if img == nil {
		return fmt.Errorf("decode returned nil image")
	}

	return writeJPEG(flatten(img), targetPath)
}

// decodeImage opens an image with EXIF auto-orientation, falling back to
// the registered stdlib decoders for formats imaging cannot sniff.
func decodeImage(sourcePath string) (image.Image, error) {
	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	logging.Debug("imaging.Open failed for %s: %v, trying standard decode", sourcePath, err)

	file, openErr := os.Open(sourcePath)
	if openErr != nil {
		return nil, openErr
	}
	defer file.Close()

	img, format, decErr := image.Decode(file)
	if decErr != nil {
		return nil, fmt.Errorf("all decode methods failed: %w", decErr)
	}
	logging.Debug("Decoded %s as %s", sourcePath, format)
	return img, nil
}

// flatten composites the image onto a solid white background so that
// transparency survives the JPEG re-encode.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// writeJPEG encodes the image and writes it to targetPath, creating the
// parent directory if needed.
func writeJPEG(img image.Image, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := os.WriteFile(targetPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return nil
}
