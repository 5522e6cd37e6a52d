package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os/exec"

	"media-gallery/internal/logging"

	"github.com/disintegration/imaging"
)

const (
	// Dimensions of the generic video placeholder.
	placeholderWidth  = 400
	placeholderHeight = 300
)

// VideoThumbnailer produces a representative still image for a video
// file. The choice of strategy is a deploy-time decision: placeholder
// works everywhere, ffmpeg needs the binary on PATH.
type VideoThumbnailer interface {
	Frame(sourcePath string) (image.Image, error)
}

// PlaceholderThumbnailer renders the same fixed gray card for every
// video. It never touches the source file, so it cannot fail on
// corrupt or exotic containers.
type PlaceholderThumbnailer struct{}

// Frame returns a solid 400x300 gray image regardless of sourcePath.
func (PlaceholderThumbnailer) Frame(string) (image.Image, error) {
	return imaging.New(placeholderWidth, placeholderHeight, color.NRGBA{R: 100, G: 100, B: 100, A: 255}), nil
}

// FFmpegThumbnailer extracts a real frame one second into the video by
// shelling out to ffmpeg.
type FFmpegThumbnailer struct{}

// Frame runs ffmpeg against sourcePath and decodes the extracted frame.
func (FFmpegThumbnailer) Frame(sourcePath string) (image.Image, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	logging.Debug("Extracting video frame from %s with %s", sourcePath, ffmpegPath)

	cmd := exec.Command("ffmpeg",
		"-i", sourcePath,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", sourcePath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
