// Package scanner keeps the catalog in sync with media on disk.
//
// Each pass enumerates every known user, walks that user's media root,
// and catalogs files the database has not seen. New items get a
// thumbnail generated up front by a bounded worker pool. Passes are
// additive: a file that disappears from disk keeps its catalog row, and
// failures are isolated per user so one bad directory cannot block the
// rest of the pass.
package scanner
