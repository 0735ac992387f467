package models

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the scoring subsystem. Every failure is scoped
// to the single operation that triggered it; none is process-fatal.
var (
	// ErrInvalidReading marks a reading with a missing or non-finite metric.
	ErrInvalidReading = errors.New("invalid reading: all metrics must be finite numbers")

	// ErrModelNotTrained is returned when inference is attempted before any
	// model has been trained and persisted.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrInvalidRange is returned when an aggregation window falls outside
	// the supported bounds.
	ErrInvalidRange = errors.New("days must be a number between 1 and 365")
)

// TrainingError marks a failed training attempt. The previously persisted
// model, if any, stays intact and usable.
type TrainingError struct {
	Reason string
	Err    error
}

func (e *TrainingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("training failed: %s: %v", e.Reason, e.Err)
	}
	return "training failed: " + e.Reason
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}
