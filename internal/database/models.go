package database

import (
	"time"

	"media-gallery/internal/mediatypes"
)

// MediaItem is one indexed media file. Identity is the absolute filepath;
// the file fields are never mutated after insert.
type MediaItem struct {
	ID            int64               `json:"id"`
	Filename      string              `json:"filename"`
	Filepath      string              `json:"filepath"`
	Kind          mediatypes.MediaKind `json:"kind"`
	CreatedAt     time.Time           `json:"createdAt"`
	IngestedAt    time.Time           `json:"ingestedAt"`
	Size          int64               `json:"size"`
	ThumbnailPath string              `json:"thumbnailPath,omitempty"`
	Owner         string              `json:"owner"`
}

// User is a stored account. The operator account lives in configuration
// and is never represented as a User.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Share is one edge of the share graph: grantee may read owner's catalog.
type Share struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Grantee   string    `json:"grantee"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an authenticated browser session.
type Session struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// MediaPage is one page of an owner's catalog partition.
type MediaPage struct {
	Items      []MediaItem `json:"media"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"perPage"`
	TotalPages int         `json:"totalPages"`
	Owner      string      `json:"owner"`
}

// FilterOptions enumerates the date buckets available for filter menus.
// Years are catalog-wide; months and days are scoped to the selection.
type FilterOptions struct {
	Years  []int `json:"years"`
	Months []int `json:"months"`
	Days   []int `json:"days"`
}
