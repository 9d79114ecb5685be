package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/shapefmt/internal/ir"
)

// Entry is one cached file.
type Entry struct {
	Path          string `json:"path"`
	ContentHash   string `json:"content_hash"`
	DocumentHash  string `json:"document_hash"`
	EngineVersion string `json:"engine_version"`
	Seq           int64  `json:"seq"`
}

// IsFormatted reports whether path was last seen with contentHash under
// documentHash and the running engine version.
func (s *Store) IsFormatted(ctx context.Context, path, contentHash, documentHash string) (bool, error) {
	var stored Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT content_hash, document_hash, engine_version
		FROM formatted
		WHERE path = ?
	`, path).Scan(&stored.ContentHash, &stored.DocumentHash, &stored.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is formatted: %w", err)
	}
	return stored.ContentHash == contentHash &&
		stored.DocumentHash == documentHash &&
		stored.EngineVersion == ir.EngineVersion, nil
}

// MarkFormatted records that path now holds formatted content. An existing
// entry is replaced and moves to the end of the seq order.
func (s *Store) MarkFormatted(ctx context.Context, path, contentHash, documentHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO formatted (path, content_hash, document_hash, engine_version, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM formatted))
		ON CONFLICT(path) DO UPDATE SET
			content_hash   = excluded.content_hash,
			document_hash  = excluded.document_hash,
			engine_version = excluded.engine_version,
			seq            = excluded.seq
	`, path, contentHash, documentHash, ir.EngineVersion)
	if err != nil {
		return fmt.Errorf("mark formatted: %w", err)
	}
	return nil
}

// Forget removes path from the cache. Forgetting an unknown path is not an error.
func (s *Store) Forget(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM formatted WHERE path = ?`, path); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	return nil
}

// Entries returns every cached file in seq order.
//
// Returns an empty slice (not nil) for an empty cache.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, content_hash, document_hash, engine_version, seq
		FROM formatted
		ORDER BY seq ASC, path COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.ContentHash, &e.DocumentHash, &e.EngineVersion, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
