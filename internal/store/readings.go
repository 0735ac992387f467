package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"equipment-health-monitor/internal/models"
)

// Append validates and stores a single reading. Readings with a non-finite
// metric fail with models.ErrInvalidReading and are not stored. A missing
// timestamp is assigned at ingestion time; a missing equipment ID gets the
// "unknown" sentinel. The write is committed before Append returns.
func (s *Store) Append(r *models.SensorReading) error {
	if !r.Valid() {
		return models.ErrInvalidReading
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.EquipmentID == "" {
		r.EquipmentID = models.UnknownEquipment
	}

	query := `
		INSERT INTO readings (equipment_id, timestamp, temperature, vibration, pressure, current, failure)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	// Stored as UTC so timestamp comparisons in SQL stay consistent.
	result, err := s.conn.Exec(query,
		r.EquipmentID, r.Timestamp.UTC(), r.Temperature, r.Vibration, r.Pressure, r.Current, r.Failure,
	)
	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	r.ID = id
	return nil
}

// AppendBatch efficiently inserts multiple readings in one transaction.
// Invalid readings are rejected individually and do not abort the batch;
// the rejected count is reported alongside the inserted count.
func (s *Store) AppendBatch(readings []models.SensorReading) (inserted int64, rejected int, err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO readings (equipment_id, timestamp, temperature, vibration, pressure, current, failure)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, err
	}
	defer stmt.Close()

	now := time.Now()
	for i := range readings {
		r := &readings[i]
		if !r.Valid() {
			rejected++
			continue
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		if r.EquipmentID == "" {
			r.EquipmentID = models.UnknownEquipment
		}
		_, err := stmt.Exec(r.EquipmentID, r.Timestamp.UTC(), r.Temperature, r.Vibration, r.Pressure, r.Current, r.Failure)
		if err != nil {
			return inserted, rejected, err
		}
		inserted++
	}

	return inserted, rejected, tx.Commit()
}

const selectReading = `
	SELECT id, equipment_id, timestamp, temperature, vibration, pressure, current, failure
	FROM readings
`

// ReadAll returns every stored reading in insertion order. Intended for
// training paths; serving paths should use ReadRecent to bound memory.
func (s *Store) ReadAll() ([]models.SensorReading, error) {
	rows, err := s.conn.Query(selectReading + " ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

// ReadRecent returns the most recent limit readings in insertion order,
// optionally filtered by equipment ID.
func (s *Store) ReadRecent(limit int, equipmentID string) ([]models.SensorReading, error) {
	if limit <= 0 {
		limit = 100
	}

	inner := selectReading
	var args []interface{}
	if equipmentID != "" {
		inner += " WHERE equipment_id = ?"
		args = append(args, equipmentID)
	}
	inner += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	// Re-sort the capped window back into insertion order.
	query := fmt.Sprintf("SELECT * FROM (%s) ORDER BY id ASC", inner)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

// ReadWindow returns readings with timestamp >= since, oldest first,
// optionally filtered by exact equipment ID match.
func (s *Store) ReadWindow(since time.Time, equipmentID string) ([]models.SensorReading, error) {
	conditions := []string{"timestamp >= ?"}
	args := []interface{}{since.UTC()}

	if equipmentID != "" {
		conditions = append(conditions, "equipment_id = ?")
		args = append(args, equipmentID)
	}

	query := selectReading + " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY timestamp ASC, id ASC"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

// Count returns the total number of stored readings.
func (s *Store) Count() (int64, error) {
	var count int64
	err := s.conn.QueryRow("SELECT COUNT(*) FROM readings").Scan(&count)
	return count, err
}

func scanReadings(rows *sql.Rows) ([]models.SensorReading, error) {
	defer rows.Close()

	var results []models.SensorReading
	for rows.Next() {
		var r models.SensorReading
		err := rows.Scan(
			&r.ID, &r.EquipmentID, &r.Timestamp,
			&r.Temperature, &r.Vibration, &r.Pressure, &r.Current, &r.Failure,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return results, rows.Err()
}
