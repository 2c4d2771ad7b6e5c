package storage

import (
	"fmt"
	"time"
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date          string `json:"date"`
	TotalPastes   int    `json:"total_pastes"`
	ImagePastes   int    `json:"image_pastes"`
	InjectedCount int    `json:"injected_count"`
	FailureCount  int    `json:"failure_count"`
}

// TriggerStats represents statistics grouped by what started the paste
type TriggerStats struct {
	Trigger       string  `json:"trigger"`
	TotalPastes   int     `json:"total_pastes"`
	InjectedCount int     `json:"injected_count"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalPastes     int     `json:"total_pastes"`
	ImagePastes     int     `json:"image_pastes"`
	InjectedCount   int     `json:"injected_count"`
	ForcedCount     int     `json:"forced_count"`
	DeniedCount     int     `json:"denied_count"`
	SupersededCount int     `json:"superseded_count"`
	FailureCount    int     `json:"failure_count"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	MaxLatencyMs    int64   `json:"max_latency_ms"`
}

const overallColumns = `
	COUNT(*) as total_pastes,
	COALESCE(SUM(CASE WHEN had_image = 1 THEN 1 ELSE 0 END), 0) as image_pastes,
	COALESCE(SUM(CASE WHEN injected = 1 THEN 1 ELSE 0 END), 0) as injected_count,
	COALESCE(SUM(CASE WHEN forced = 1 THEN 1 ELSE 0 END), 0) as forced_count,
	COALESCE(SUM(CASE WHEN outcome = 'denied' THEN 1 ELSE 0 END), 0) as denied_count,
	COALESCE(SUM(CASE WHEN outcome = 'superseded' THEN 1 ELSE 0 END), 0) as superseded_count,
	COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0) as failure_count,
	COALESCE(AVG(CASE WHEN injected = 1 THEN latency_ms END), 0) as avg_latency_ms,
	COALESCE(MAX(latency_ms), 0) as max_latency_ms
`

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total_pastes,
			SUM(CASE WHEN had_image = 1 THEN 1 ELSE 0 END) as image_pastes,
			SUM(CASE WHEN injected = 1 THEN 1 ELSE 0 END) as injected_count,
			SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END) as failure_count
		FROM pastes
		WHERE timestamp >= ?
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.TotalPastes, &s.ImagePastes, &s.InjectedCount, &s.FailureCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetTriggerStats retrieves statistics grouped by trigger for the last N days
func (db *DB) GetTriggerStats(days int) ([]TriggerStats, error) {
	query := `
		SELECT
			trigger,
			COUNT(*) as total_pastes,
			SUM(CASE WHEN injected = 1 THEN 1 ELSE 0 END) as injected_count,
			COALESCE(AVG(latency_ms), 0) as avg_latency_ms
		FROM pastes
		WHERE timestamp >= ?
		GROUP BY trigger
		ORDER BY total_pastes DESC
	`

	rows, err := db.conn.Query(query, since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger stats: %w", err)
	}
	defer rows.Close()

	var stats []TriggerStats
	for rows.Next() {
		var s TriggerStats
		if err := rows.Scan(&s.Trigger, &s.TotalPastes, &s.InjectedCount, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan trigger stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	return db.GetStatsForDateRange(since(days), time.Now().UTC())
}

// GetStatsForDateRange retrieves overall stats for a custom date range
func (db *DB) GetStatsForDateRange(startTime, endTime time.Time) (*OverallStats, error) {
	query := `SELECT ` + overallColumns + ` FROM pastes WHERE timestamp >= ? AND timestamp <= ?`

	var stats OverallStats
	err := db.conn.QueryRow(query, startTime.UTC(), endTime.UTC()).Scan(
		&stats.TotalPastes,
		&stats.ImagePastes,
		&stats.InjectedCount,
		&stats.ForcedCount,
		&stats.DeniedCount,
		&stats.SupersededCount,
		&stats.FailureCount,
		&stats.AvgLatencyMs,
		&stats.MaxLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	return &stats, nil
}

func since(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}
