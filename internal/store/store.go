// Package store persists the symbol index to SQLite so separate CLI
// invocations share one view of the codebase: scan writes, detect reads,
// merges write back.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/sigdrift/internal/index"
)

// Store is the SQLite data access layer for the persisted index.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS definitions (
  name            TEXT PRIMARY KEY,
  file            TEXT NOT NULL,
  signature       TEXT NOT NULL,
  code            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS usages (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  file            TEXT NOT NULL,
  line            INTEGER NOT NULL,
  code            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scans (
  id              INTEGER PRIMARY KEY,
  root            TEXT NOT NULL,
  files           INTEGER NOT NULL,
  scanned_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usages_name ON usages(name);
CREATE INDEX IF NOT EXISTS idx_definitions_file ON definitions(file);
`

// SaveSnapshot transactionally replaces the persisted index with snap.
func (s *Store) SaveSnapshot(snap index.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{"DELETE FROM usages", "DELETE FROM definitions"} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clear persisted index: %w", err)
		}
	}

	defStmt, err := tx.Prepare("INSERT INTO definitions (name, file, signature, code) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare definition insert: %w", err)
	}
	defer defStmt.Close()
	for name, def := range snap.Definitions {
		if _, err := defStmt.Exec(name, def.File, def.Signature, def.Code); err != nil {
			return fmt.Errorf("insert definition %s: %w", name, err)
		}
	}

	useStmt, err := tx.Prepare("INSERT INTO usages (name, ordinal, file, line, code) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare usage insert: %w", err)
	}
	defer useStmt.Close()
	for name, usages := range snap.Usages {
		for ordinal, u := range usages {
			if _, err := useStmt.Exec(name, ordinal, u.File, u.Line, u.Code); err != nil {
				return fmt.Errorf("insert usage %s: %w", name, err)
			}
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the persisted index. An empty database yields an empty
// snapshot, not an error.
func (s *Store) LoadSnapshot() (index.Snapshot, error) {
	snap := index.Snapshot{
		Definitions: map[string]index.Definition{},
		Usages:      map[string][]index.Usage{},
	}

	rows, err := s.db.Query("SELECT name, file, signature, code FROM definitions")
	if err != nil {
		return snap, fmt.Errorf("query definitions: %w", err)
	}
	for rows.Next() {
		var def index.Definition
		if err := rows.Scan(&def.Name, &def.File, &def.Signature, &def.Code); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan definition: %w", err)
		}
		snap.Definitions[def.Name] = def
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return snap, fmt.Errorf("iterate definitions: %w", err)
	}
	rows.Close()

	rows, err = s.db.Query("SELECT name, file, line, code FROM usages ORDER BY name, ordinal")
	if err != nil {
		return snap, fmt.Errorf("query usages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var u index.Usage
		if err := rows.Scan(&name, &u.File, &u.Line, &u.Code); err != nil {
			return snap, fmt.Errorf("scan usage: %w", err)
		}
		snap.Usages[name] = append(snap.Usages[name], u)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate usages: %w", err)
	}

	return snap, nil
}

// RecordScan appends a scan history row.
func (s *Store) RecordScan(root string, files int) error {
	_, err := s.db.Exec(
		"INSERT INTO scans (root, files, scanned_at) VALUES (?, ?, ?)",
		root, files, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

// LastScan returns the most recent scan root and time. ok is false when no
// scan has been recorded.
func (s *Store) LastScan() (root string, at time.Time, ok bool, err error) {
	row := s.db.QueryRow("SELECT root, scanned_at FROM scans ORDER BY id DESC LIMIT 1")
	switch scanErr := row.Scan(&root, &at); scanErr {
	case nil:
		return root, at, true, nil
	case sql.ErrNoRows:
		return "", time.Time{}, false, nil
	default:
		return "", time.Time{}, false, fmt.Errorf("query last scan: %w", scanErr)
	}
}
