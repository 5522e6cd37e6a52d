// Package database is the catalog store for the gallery server. It owns
// the SQLite database holding media items, stored user accounts, the
// share graph, and sessions.
//
// The filesystem is the authority for file bytes; the catalog converges
// toward it. Media rows are inserted when a file first appears and their
// file fields are never mutated afterwards; rows are only removed as a
// side effect of user deletion, and files on disk are never touched.
//
// Catalog and share-graph violations surface as the sentinel errors in
// errors.go, matched with errors.Is.
package database
