// Package media generates thumbnail images for gallery items.
//
// Image thumbnails are decoded (with EXIF auto-orientation), fitted
// into a 400x400 bounding box and re-encoded as JPEG on a white
// background. Video thumbnails come from a pluggable VideoThumbnailer;
// the default renders a fixed gray placeholder, and an ffmpeg-backed
// strategy extracts a real frame when the binary is available.
//
// Generation is best-effort: a failure is logged and reported as a
// boolean so callers can record the item without a thumbnail.
package media
