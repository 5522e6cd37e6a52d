// Package mediatypes classifies files by extension into the media kinds
// the gallery understands (image or video) and maps extensions to MIME
// types. The kind is derived once at ingest time; files with unrecognized
// extensions are ignored by the scanner and rejected by the upload path.
package mediatypes
