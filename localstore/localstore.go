// Package localstore persists small client-side state in SQLite: the owner
// identity, the startup snapshot, and the legacy identity-mapping table.
package localstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS identity_mappings (
	legacy_id  TEXT PRIMARY KEY,
	stable_id  TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

// Well-known kv keys.
const (
	KeySnapshot = "snapshot"
)

// Store is the flat key→blob store backing local persistence. It also
// implements identity.MappingStore and identity.OwnerStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and ensures the
// schema exists. The caller is responsible for calling Close.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the value stored under key, reporting whether it exists.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting an absent key is not
// an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// LookupMapping returns the stable identifier recorded for legacyID.
func (s *Store) LookupMapping(legacyID string) (string, bool, error) {
	var stable string
	err := s.db.QueryRow(
		`SELECT stable_id FROM identity_mappings WHERE legacy_id = ?`, legacyID,
	).Scan(&stable)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup mapping %s: %w", legacyID, err)
	}
	return stable, true, nil
}

// SaveMapping records legacyID → stableID. The table is append-only: an
// existing mapping for legacyID is kept, so the first resolution wins.
func (s *Store) SaveMapping(legacyID, stableID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO identity_mappings (legacy_id, stable_id, created_at)
		VALUES (?, ?, ?)`,
		legacyID, stableID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save mapping %s: %w", legacyID, err)
	}
	return nil
}
