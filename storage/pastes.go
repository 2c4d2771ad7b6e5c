package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a paste does not exist
var ErrNotFound = errors.New("paste not found")

// Paste is one recorded paste attempt
type Paste struct {
	ID           int64     `json:"id"`
	PasteID      string    `json:"paste_id"`
	Timestamp    time.Time `json:"timestamp"`
	Trigger      string    `json:"trigger"`
	Path         string    `json:"path"`
	SourceType   string    `json:"source_type"`
	HadImage     bool      `json:"had_image"`
	Outcome      string    `json:"outcome"`
	Injected     bool      `json:"injected"`
	Forced       bool      `json:"forced"`
	LatencyMs    int64     `json:"latency_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// SavePaste saves a paste to the database
func (db *DB) SavePaste(p *Paste) error {
	query := `
		INSERT INTO pastes (
			paste_id, timestamp, trigger, path, source_type, had_image,
			outcome, injected, forced, latency_ms, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage sql.NullString
	if p.ErrorMessage != "" {
		errorMessage = sql.NullString{String: p.ErrorMessage, Valid: true}
	}

	result, err := db.conn.Exec(query,
		p.PasteID, p.Timestamp.UTC(), p.Trigger, p.Path, p.SourceType, p.HadImage,
		p.Outcome, p.Injected, p.Forced, p.LatencyMs, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to save paste: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	p.ID = id
	return nil
}

// GetPastes retrieves pastes newest first with pagination
func (db *DB) GetPastes(limit, offset int) ([]Paste, error) {
	query := `
		SELECT
			id, paste_id, timestamp, trigger, path, source_type, had_image,
			outcome, injected, forced, latency_ms, error_message
		FROM pastes
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query pastes: %w", err)
	}
	defer rows.Close()

	var pastes []Paste
	for rows.Next() {
		var p Paste
		var errorMessage sql.NullString

		err := rows.Scan(
			&p.ID, &p.PasteID, &p.Timestamp, &p.Trigger, &p.Path, &p.SourceType, &p.HadImage,
			&p.Outcome, &p.Injected, &p.Forced, &p.LatencyMs, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paste: %w", err)
		}

		if errorMessage.Valid {
			p.ErrorMessage = errorMessage.String
		}

		pastes = append(pastes, p)
	}

	return pastes, rows.Err()
}

// DeletePaste deletes a paste by ID
func (db *DB) DeletePaste(id int64) error {
	query := `DELETE FROM pastes WHERE id = ?`

	result, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete paste: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetPasteCount returns the total number of pastes
func (db *DB) GetPasteCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pastes").Scan(&count)
	return count, err
}

// RecentImagePaths returns up to limit distinct saved image paths, newest first
func (db *DB) RecentImagePaths(limit int) ([]string, error) {
	query := `
		SELECT path
		FROM pastes
		WHERE path != ''
		GROUP BY path
		ORDER BY MAX(timestamp) DESC, MAX(id) DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
