// Package store is the SQLite format cache behind `shapefmt fmt --cache`.
//
// One row per file path records the content hash of the last output that
// shapefmt wrote or verified, the hash of the pattern document used, and
// the engine version. A file whose content, document and engine all still
// match is skipped. Entries carry a per-database seq counter; listings are
// ordered by it rather than by wall-clock time.
//
// The database runs in WAL mode with synchronous=NORMAL and a 5s busy
// timeout, through a single connection shared by all fmt workers.
package store
