package store

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"equipment-health-monitor/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func validReading() models.SensorReading {
	return models.SensorReading{
		EquipmentID: "EQ-1",
		Temperature: 65,
		Vibration:   2.5,
		Pressure:    5.2,
		Current:     108,
	}
}

func TestAppend_AssignsDefaults(t *testing.T) {
	s := setupStore(t)

	r := validReading()
	r.EquipmentID = ""
	before := time.Now()
	if err := s.Append(&r); err != nil {
		t.Fatal(err)
	}

	if r.ID == 0 {
		t.Error("ID not assigned")
	}
	if r.EquipmentID != models.UnknownEquipment {
		t.Errorf("equipment default: got %q, want %q", r.EquipmentID, models.UnknownEquipment)
	}
	if r.Timestamp.Before(before.Add(-time.Second)) {
		t.Error("timestamp not assigned at ingestion")
	}
}

func TestAppend_RejectsNonFinite(t *testing.T) {
	s := setupStore(t)

	good := validReading()
	if err := s.Append(&good); err != nil {
		t.Fatal(err)
	}

	bad := []models.SensorReading{
		{Temperature: math.NaN(), Vibration: 2.5, Pressure: 5.2, Current: 108},
		{Temperature: 65, Vibration: math.Inf(1), Pressure: 5.2, Current: 108},
		{Temperature: 65, Vibration: 2.5, Pressure: math.Inf(-1), Current: 108},
		{Temperature: 65, Vibration: 2.5, Pressure: 5.2, Current: math.NaN()},
	}
	for i := range bad {
		if err := s.Append(&bad[i]); !errors.Is(err, models.ErrInvalidReading) {
			t.Errorf("reading %d: expected ErrInvalidReading, got %v", i, err)
		}
	}

	count, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("store length changed by rejected readings: got %d, want 1", count)
	}
}

func TestAppendBatch_SkipsInvalidWithoutAborting(t *testing.T) {
	s := setupStore(t)

	readings := []models.SensorReading{
		validReading(),
		{Temperature: math.NaN(), Vibration: 2.5, Pressure: 5.2, Current: 108},
		validReading(),
	}

	inserted, rejected, err := s.AppendBatch(readings)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 2 || rejected != 1 {
		t.Errorf("got inserted=%d rejected=%d, want 2/1", inserted, rejected)
	}
}

func TestReadAll_InsertionOrder(t *testing.T) {
	s := setupStore(t)

	// Insert out of chronological order; read-back follows insertion order.
	now := time.Now().UTC()
	for _, offset := range []time.Duration{0, -2 * time.Hour, -time.Hour} {
		r := validReading()
		r.Timestamp = now.Add(offset)
		if err := s.Append(&r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("count: got %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Error("readings not in insertion order")
		}
	}
}

func TestReadRecent_CapsAndFilters(t *testing.T) {
	s := setupStore(t)

	for i := 0; i < 10; i++ {
		r := validReading()
		if i%2 == 0 {
			r.EquipmentID = "EQ-2"
		}
		r.Temperature = float64(i)
		if err := s.Append(&r); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.ReadRecent(3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("cap: got %d, want 3", len(recent))
	}
	// Most recent three, still in insertion order.
	if recent[0].Temperature != 7 || recent[2].Temperature != 9 {
		t.Errorf("window: got %v..%v, want 7..9", recent[0].Temperature, recent[2].Temperature)
	}

	filtered, err := s.ReadRecent(100, "EQ-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 5 {
		t.Fatalf("filter: got %d, want 5", len(filtered))
	}
	for _, r := range filtered {
		if r.EquipmentID != "EQ-2" {
			t.Errorf("filter leaked equipment %q", r.EquipmentID)
		}
	}
}

func TestReadWindow(t *testing.T) {
	s := setupStore(t)

	now := time.Now().UTC()
	old := validReading()
	old.Timestamp = now.Add(-48 * time.Hour)
	recent := validReading()
	recent.Timestamp = now.Add(-time.Hour)
	other := validReading()
	other.EquipmentID = "EQ-2"
	other.Timestamp = now.Add(-30 * time.Minute)

	for _, r := range []*models.SensorReading{&old, &recent, &other} {
		if err := s.Append(r); err != nil {
			t.Fatal(err)
		}
	}

	window, err := s.ReadWindow(now.Add(-24*time.Hour), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(window) != 2 {
		t.Fatalf("window count: got %d, want 2", len(window))
	}

	scoped, err := s.ReadWindow(now.Add(-24*time.Hour), "EQ-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].EquipmentID != "EQ-1" {
		t.Fatalf("scoped window: got %d readings", len(scoped))
	}
}

func TestModelPersistence_LoadWithoutSave(t *testing.T) {
	s := setupStore(t)

	pm, err := s.LoadModel()
	if err != nil {
		t.Fatalf("load with no model must not error: %v", err)
	}
	if pm != nil {
		t.Fatalf("expected no model, got %+v", pm)
	}
}

func TestModelPersistence_LastWriteWins(t *testing.T) {
	s := setupStore(t)

	normalizer := &models.NormalizedModel{
		Features: models.FeatureNames,
		Mean:     map[string]float64{"temperature": 65, "vibration": 2.5, "pressure": 5.2, "current": 108},
		Std:      map[string]float64{"temperature": 5, "vibration": 1, "pressure": 1, "current": 8},
	}
	if err := s.SaveNormalizer(normalizer); err != nil {
		t.Fatal(err)
	}

	pm, err := s.LoadModel()
	if err != nil {
		t.Fatal(err)
	}
	if pm.Kind != KindZScore || pm.Normalizer == nil {
		t.Fatalf("loaded model: got kind %q", pm.Kind)
	}
	if pm.Normalizer.Mean["temperature"] != 65 {
		t.Errorf("roundtrip mean: got %v", pm.Normalizer.Mean["temperature"])
	}

	forest := &models.StumpEnsembleModel{
		Features: models.FeatureNames,
		Trees:    []models.Stump{{Feature: "temperature", Threshold: 70, LeftProb: 0.1, RightProb: 0.8}},
	}
	if err := s.SaveForest(forest); err != nil {
		t.Fatal(err)
	}

	pm, err = s.LoadModel()
	if err != nil {
		t.Fatal(err)
	}
	if pm.Kind != KindStumpForest || pm.Forest == nil {
		t.Fatalf("last write did not win: got kind %q", pm.Kind)
	}
	if pm.Normalizer != nil {
		t.Error("stale normalizer attached to forest record")
	}
}

func TestModelPersistence_UnknownKind(t *testing.T) {
	s := setupStore(t)

	_, err := s.conn.Exec(
		`INSERT INTO ml_models (kind, payload, created_at) VALUES (?, ?, ?)`,
		"mystery", "{}", time.Now(),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadModel(); err == nil {
		t.Fatal("expected error for unknown model kind")
	}
}

func TestStats(t *testing.T) {
	s := setupStore(t)

	r := validReading()
	r.Failure = true
	if err := s.Append(&r); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats["total_readings"].(int64) != 1 {
		t.Errorf("total_readings: got %v", stats["total_readings"])
	}
	if stats["labeled_failures"].(int64) != 1 {
		t.Errorf("labeled_failures: got %v", stats["labeled_failures"])
	}
}
