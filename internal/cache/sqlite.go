package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists cache entries in a local sqlite database so the
// cache survives coordinator restarts.
type SQLiteStore struct {
	db *sql.DB
}

// migrations returns the schema statements, one SQL statement each
// (SQLite executes one at a time).
func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS explain_cache (
			fingerprint TEXT PRIMARY KEY,
			created_at  TEXT NOT NULL,
			expires_at  TEXT NOT NULL,
			entry_json  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_explain_cache_expires ON explain_cache(expires_at)`,
	}
}

// OpenSQLite opens (or creates) the cache database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	for _, stmt := range migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate cache db: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Get loads the entry for key, reporting absence without error.
func (s *SQLiteStore) Get(key string) (Entry, bool, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT entry_json FROM explain_cache WHERE fingerprint = ?`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false, fmt.Errorf("cache decode: %w", err)
	}
	return e, true, nil
}

// Put stores or replaces the entry for key.
func (s *SQLiteStore) Put(key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO explain_cache (fingerprint, created_at, expires_at, entry_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			entry_json = excluded.entry_json`,
		key, e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.ExpiresAt.UTC().Format(time.RFC3339Nano), string(raw))
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Purge deletes every entry that expired at or before now.
func (s *SQLiteStore) Purge(now time.Time) error {
	_, err := s.db.Exec(`DELETE FROM explain_cache WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache purge: %w", err)
	}
	return nil
}

// Clear deletes every entry.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM explain_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
