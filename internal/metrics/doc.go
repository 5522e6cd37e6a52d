// Package metrics provides Prometheus instrumentation for the gallery
// server. All metrics are prefixed with "media_gallery_" to avoid naming
// collisions with other applications.
//
// Metrics fall into four categories: HTTP request performance, database
// query performance, scanner pass statistics, and thumbnail generation
// outcomes. InitializeMetrics pre-registers expected label combinations
// so the full series set is visible from the first scrape.
package metrics
