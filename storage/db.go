package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the config dir
const FileName = "history.db"

type DB struct {
	conn *sql.DB
}

// Open opens the database in configDir and initializes the schema
func Open(configDir string) (*DB, error) {
	return OpenPath(filepath.Join(configDir, FileName))
}

// OpenPath opens the database file at dbPath
func OpenPath(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single writer keeps sqlite from returning SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the database schema
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pastes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		paste_id TEXT NOT NULL UNIQUE,
		timestamp DATETIME NOT NULL,

		-- What was pasted
		trigger TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		source_type TEXT NOT NULL DEFAULT '',
		had_image BOOLEAN NOT NULL,

		-- How it ended
		outcome TEXT NOT NULL,
		injected BOOLEAN NOT NULL,
		forced BOOLEAN NOT NULL,
		latency_ms INTEGER NOT NULL,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pastes_timestamp ON pastes(timestamp);
	CREATE INDEX IF NOT EXISTS idx_pastes_outcome ON pastes(outcome);
	`

	_, err := db.conn.Exec(schema)
	return err
}
