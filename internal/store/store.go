package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite connection holding the telemetry log and the
// persisted model record.
type Store struct {
	conn *sql.DB
}

// Open creates a new store backed by the SQLite file at dbPath.
func Open(dbPath string) (*Store, error) {
	// Enable WAL mode and other optimizations via connection string
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000", dbPath)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer; this also serializes the
	// model swap against concurrent readers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn}

	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// initialize creates tables and indexes
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipment_id TEXT NOT NULL DEFAULT 'unknown',
		timestamp DATETIME NOT NULL,
		temperature REAL NOT NULL,
		vibration REAL NOT NULL,
		pressure REAL NOT NULL,
		current REAL NOT NULL,
		failure INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS ml_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);
	CREATE INDEX IF NOT EXISTS idx_readings_equipment_timestamp ON readings(equipment_id, timestamp);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Stats returns store statistics
func (s *Store) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalReadings int64
	s.conn.QueryRow("SELECT COUNT(*) FROM readings").Scan(&totalReadings)
	stats["total_readings"] = totalReadings

	var equipmentCount int64
	s.conn.QueryRow("SELECT COUNT(DISTINCT equipment_id) FROM readings").Scan(&equipmentCount)
	stats["equipment_count"] = equipmentCount

	var failureCount int64
	s.conn.QueryRow("SELECT COUNT(*) FROM readings WHERE failure = 1").Scan(&failureCount)
	stats["labeled_failures"] = failureCount

	var modelCount int64
	s.conn.QueryRow("SELECT COUNT(*) FROM ml_models").Scan(&modelCount)
	stats["trained_models"] = modelCount

	return stats, nil
}
