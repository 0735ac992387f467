package aggregate

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"equipment-health-monitor/internal/models"
	"equipment-health-monitor/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEngine(db), db
}

func TestAggregate_RangeValidation(t *testing.T) {
	e, _ := setupEngine(t)

	for _, days := range []int{0, -1, 366, 400} {
		if _, err := e.Aggregate(days, ""); !errors.Is(err, models.ErrInvalidRange) {
			t.Errorf("days=%d: expected ErrInvalidRange, got %v", days, err)
		}
	}
	for _, days := range []int{1, 365} {
		if _, err := e.Aggregate(days, ""); err != nil {
			t.Errorf("days=%d: unexpected error %v", days, err)
		}
	}
}

func TestAggregate_HourlyBucketing(t *testing.T) {
	e, db := setupEngine(t)

	now := time.Now().UTC()
	hour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC).Add(-2 * time.Hour)

	readings := []models.SensorReading{
		{Timestamp: hour.Add(5 * time.Minute), Temperature: 50, Vibration: 2, Pressure: 5, Current: 100},
		{Timestamp: hour.Add(55 * time.Minute), Temperature: 60, Vibration: 3, Pressure: 6, Current: 110},
	}
	if _, _, err := db.AppendBatch(readings); err != nil {
		t.Fatal(err)
	}

	series, err := e.Aggregate(1, "")
	if err != nil {
		t.Fatal(err)
	}

	if len(series) != 1 {
		t.Fatalf("bucket count: got %d, want 1", len(series))
	}
	bucket := series[0]
	if !bucket.Timestamp.Equal(hour) {
		t.Errorf("bucket start: got %v, want %v", bucket.Timestamp, hour)
	}
	if bucket.Temperature != 55.0 {
		t.Errorf("temperature average: got %v, want 55.0", bucket.Temperature)
	}
	if bucket.Vibration != 2.5 {
		t.Errorf("vibration average: got %v, want 2.5", bucket.Vibration)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	e, db := setupEngine(t)

	now := time.Now().UTC()
	for i := 0; i < 12; i++ {
		r := models.SensorReading{
			Timestamp:   now.Add(-time.Duration(i) * 37 * time.Minute),
			Temperature: 60 + float64(i),
			Vibration:   2 + float64(i)*0.1,
			Pressure:    5.2,
			Current:     108,
		}
		if err := db.Append(&r); err != nil {
			t.Fatal(err)
		}
	}

	first, err := e.Aggregate(2, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Aggregate(2, "")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("aggregating twice with no intervening ingestion returned different buckets")
	}
}

func TestAggregate_EquipmentFilter(t *testing.T) {
	e, db := setupEngine(t)

	now := time.Now().UTC()
	readings := []models.SensorReading{
		{EquipmentID: "EQ-1", Timestamp: now.Add(-time.Hour), Temperature: 50, Vibration: 2, Pressure: 5, Current: 100},
		{EquipmentID: "EQ-2", Timestamp: now.Add(-time.Hour), Temperature: 90, Vibration: 4, Pressure: 6, Current: 130},
	}
	if _, _, err := db.AppendBatch(readings); err != nil {
		t.Fatal(err)
	}

	series, err := e.Aggregate(1, "EQ-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 1 {
		t.Fatalf("bucket count: got %d, want 1", len(series))
	}
	if series[0].Temperature != 50 {
		t.Errorf("filtered average picked up other equipment: got %v, want 50", series[0].Temperature)
	}
}

func TestHourly_SortedAndRounded(t *testing.T) {
	base := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	readings := []models.SensorReading{
		{Timestamp: base.Add(3 * time.Hour), Temperature: 10.123, Vibration: 1, Pressure: 1, Current: 1},
		{Timestamp: base.Add(1 * time.Hour), Temperature: 20.456, Vibration: 1, Pressure: 1, Current: 1},
		{Timestamp: base.Add(2 * time.Hour), Temperature: 30.789, Vibration: 1, Pressure: 1, Current: 1},
	}

	series := Hourly(readings)
	if len(series) != 3 {
		t.Fatalf("bucket count: got %d, want 3", len(series))
	}
	for i := 1; i < len(series); i++ {
		if !series[i-1].Timestamp.Before(series[i].Timestamp) {
			t.Error("buckets not in ascending order")
		}
	}
	if series[0].Temperature != 20.46 {
		t.Errorf("rounding: got %v, want 20.46", series[0].Temperature)
	}
}

func TestHourly_Empty(t *testing.T) {
	if got := Hourly(nil); len(got) != 0 {
		t.Errorf("empty input: got %d buckets, want 0", len(got))
	}
}
