package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPath = "data/racecards.db"
)

// Store wraps a SQLite DB connection.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures the race-card tables exist.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes the race-card tables.
func (s *Store) DropTables(ctx context.Context) error {
	return s.execAll(ctx,
		`DROP TABLE IF EXISTS race_card_runners;`,
		`DROP TABLE IF EXISTS race_cards;`,
	)
}

// ClearTables truncates the race-card tables.
func (s *Store) ClearTables(ctx context.Context) error {
	return s.execAll(ctx,
		`DELETE FROM race_card_runners;`,
		`DELETE FROM race_cards;`,
	)
}

func (s *Store) execAll(ctx context.Context, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS race_cards (
	market_id TEXT PRIMARY KEY,
	course TEXT,
	distance TEXT,
	going TEXT,
	race_type TEXT,
	fields_json TEXT,
	updated_at TEXT
);
CREATE TABLE IF NOT EXISTS race_card_runners (
	market_id TEXT NOT NULL,
	selection_id TEXT NOT NULL,
	jockey TEXT,
	trainer TEXT,
	form TEXT,
	fields_json TEXT,
	PRIMARY KEY (market_id, selection_id)
);
CREATE INDEX IF NOT EXISTS race_card_runners_market_idx ON race_card_runners(market_id);
`
