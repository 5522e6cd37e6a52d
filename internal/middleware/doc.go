// Package middleware provides HTTP middleware for the gallery server:
// access logging, Prometheus request metrics, and gzip compression of
// textual responses.
package middleware
