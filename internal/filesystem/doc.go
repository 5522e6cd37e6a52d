// Package filesystem resolves per-user storage directories from the
// configured path templates and provisions them on disk. The filesystem
// is the authority for file bytes; the catalog converges toward it and
// nothing in this package ever deletes user files.
package filesystem
