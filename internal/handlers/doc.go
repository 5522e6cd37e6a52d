// Package handlers provides the HTTP request handlers for the gallery
// API.
//
// It includes handlers for:
//   - Login, logout and session checks
//   - Gallery listing, media files and thumbnails
//   - Uploads
//   - Share grants and revocations
//   - User administration (operator only)
//   - Health checks and version info
package handlers
