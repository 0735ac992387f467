package models

import (
	"math"
	"time"
)

// UnknownEquipment is the sentinel equipment ID assigned to readings whose
// producer did not identify the source equipment.
const UnknownEquipment = "unknown"

// FeatureNames lists the four canonical sensor features in canonical order.
// Every model trained by this subsystem scores exactly these features.
var FeatureNames = []string{"temperature", "vibration", "pressure", "current"}

// SensorReading represents a single sensor sample from a piece of equipment
type SensorReading struct {
	ID          int64     `json:"id,omitempty"`
	EquipmentID string    `json:"equipment_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"` // degrees C
	Vibration   float64   `json:"vibration"`   // mm/s
	Pressure    float64   `json:"pressure"`    // bar
	Current     float64   `json:"current"`     // A
	Failure     bool      `json:"failure,omitempty"` // training label
}

// Feature returns the named feature value, or NaN for an unknown name.
func (r *SensorReading) Feature(name string) float64 {
	switch name {
	case "temperature":
		return r.Temperature
	case "vibration":
		return r.Vibration
	case "pressure":
		return r.Pressure
	case "current":
		return r.Current
	}
	return math.NaN()
}

// Valid reports whether all four metrics are finite numbers. Readings that
// fail this check are rejected at the ingestion boundary and never stored.
func (r *SensorReading) Valid() bool {
	for _, name := range FeatureNames {
		v := r.Feature(name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NormalizedModel holds per-feature mean and standard deviation fitted from
// a training batch. Standard deviations are floored to 1 at fit time, so
// scoring never divides by zero.
type NormalizedModel struct {
	Features []string           `json:"features"`
	Mean     map[string]float64 `json:"mean"`
	Std      map[string]float64 `json:"std"`
}

// Stump is a one-level decision tree splitting on a single feature.
type Stump struct {
	Feature   string  `json:"feature"`
	Threshold float64 `json:"threshold"`
	LeftProb  float64 `json:"left_prob"`  // failure fraction at or below threshold
	RightProb float64 `json:"right_prob"` // failure fraction above threshold
}

// StumpEnsembleModel is a bag of decision stumps. Its prediction is the
// plain arithmetic mean of each stump's matching-branch probability.
type StumpEnsembleModel struct {
	Features []string `json:"features"`
	Trees    []Stump  `json:"trees"`
}

// Prediction is the result of scoring a reading against a trained model.
type Prediction struct {
	FailureProbability float64 `json:"failure_probability"`
	HealthScore        float64 `json:"health_score"`
}

// HourlyAverage is one hourly bucket of per-feature averages, used for
// charting and historical queries. Computed on demand, never persisted.
type HourlyAverage struct {
	Timestamp   time.Time `json:"timestamp"` // bucket start, truncated to the hour
	Temperature float64   `json:"temperature"`
	Vibration   float64   `json:"vibration"`
	Pressure    float64   `json:"pressure"`
	Current     float64   `json:"current"`
}

// Alert flags a stored reading whose failure probability crossed one of the
// alerting thresholds.
type Alert struct {
	Equipment   string    `json:"equipment"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
	Probability float64   `json:"probability"`
	Time        time.Time `json:"time"`
}

// EquipmentStatus summarizes the latest scored reading for one equipment.
type EquipmentStatus struct {
	ID                 string        `json:"id"`
	HealthScore        float64       `json:"health_score"`
	FailureProbability float64       `json:"failure_probability"`
	Last               SensorReading `json:"last"`
}
