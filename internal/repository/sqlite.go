package repository

import (
	"context"
	"database/sql"
	"fmt"

	"container-health/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{dbPath: path}
}

func (s *SQLiteStore) Init() error {
	var err error

	s.db, err = sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	if err = s.db.Ping(); err != nil {
		s.reset()
		return fmt.Errorf("error connecting to database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		cpu_percent REAL,
		memory_percent REAL,
		uptime_seconds REAL,
		score INTEGER,
		level TEXT,
		source TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots(timestamp);`

	if _, err = s.db.Exec(createTableSQL); err != nil {
		s.reset()
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

// reset drops a half-opened handle so Init can be retried.
func (s *SQLiteStore) reset() {
	s.db.Close()
	s.db = nil
}

func (s *SQLiteStore) StoreSnapshot(ctx context.Context, snap domain.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO snapshots(timestamp, cpu_percent, memory_percent, uptime_seconds, score, level, source) VALUES(?, ?, ?, ?, ?, ?, ?)",
		snap.Timestamp, snap.CPUPercent, snap.MemoryPercent, snap.UptimeSeconds, snap.Score, snap.Level, snap.Source)
	if err != nil {
		return fmt.Errorf("error inserting snapshot: %w", err)
	}
	return nil
}

// GetSnapshots returns snapshots with startTime <= timestamp <= endTime in
// insertion order. A non-positive limit returns every match; a negative
// offset is treated as zero.
func (s *SQLiteStore) GetSnapshots(ctx context.Context, startTime, endTime int64, limit, offset int) ([]domain.Snapshot, error) {
	query := `SELECT timestamp, cpu_percent, memory_percent, uptime_seconds, score, level, source
		FROM snapshots WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC, id ASC LIMIT ? OFFSET ?`

	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, query, startTime, endTime, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	var fetched []domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		if err := rows.Scan(&snap.Timestamp, &snap.CPUPercent, &snap.MemoryPercent,
			&snap.UptimeSeconds, &snap.Score, &snap.Level, &snap.Source); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		fetched = append(fetched, snap)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return fetched, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
