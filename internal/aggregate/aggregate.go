// Package aggregate buckets time-filtered telemetry into fixed-width hourly
// windows for charting and historical queries.
package aggregate

import (
	"math"
	"sort"
	"time"

	"equipment-health-monitor/internal/models"
	"equipment-health-monitor/internal/store"
)

// Engine serves hourly aggregates over the telemetry store.
type Engine struct {
	db  *store.Store
	now func() time.Time
}

// NewEngine creates an aggregation engine over the given store.
func NewEngine(db *store.Store) *Engine {
	return &Engine{db: db, now: time.Now}
}

// Aggregate returns hourly per-feature averages over the trailing
// windowDays days, optionally filtered by equipment ID, sorted by bucket
// start ascending. windowDays outside [1,365] fails with
// models.ErrInvalidRange.
func (e *Engine) Aggregate(windowDays int, equipmentID string) ([]models.HourlyAverage, error) {
	if windowDays < 1 || windowDays > 365 {
		return nil, models.ErrInvalidRange
	}

	since := e.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	readings, err := e.db.ReadWindow(since, equipmentID)
	if err != nil {
		return nil, err
	}

	return Hourly(readings), nil
}

type bucketAccumulator struct {
	count       int
	temperature float64
	vibration   float64
	pressure    float64
	current     float64
}

// Hourly groups readings by their timestamp truncated to the hour, in the
// timezone each reading was recorded in, and averages each feature per
// bucket. Averages are rounded to two decimals; buckets come back sorted by
// bucket start, which matches the lexicographic order of their ISO-8601
// keys.
func Hourly(readings []models.SensorReading) []models.HourlyAverage {
	buckets := make(map[time.Time]*bucketAccumulator)

	for i := range readings {
		r := &readings[i]
		ts := r.Timestamp
		key := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, ts.Location())

		entry := buckets[key]
		if entry == nil {
			entry = &bucketAccumulator{}
			buckets[key] = entry
		}
		entry.count++
		entry.temperature += r.Temperature
		entry.vibration += r.Vibration
		entry.pressure += r.Pressure
		entry.current += r.Current
	}

	series := make([]models.HourlyAverage, 0, len(buckets))
	for key, entry := range buckets {
		n := float64(entry.count)
		series = append(series, models.HourlyAverage{
			Timestamp:   key,
			Temperature: round2(entry.temperature / n),
			Vibration:   round2(entry.vibration / n),
			Pressure:    round2(entry.pressure / n),
			Current:     round2(entry.current / n),
		})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
	return series
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
