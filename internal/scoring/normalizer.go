// Package scoring implements the statistical models behind failure-risk
// estimation: a per-feature z-score normalizer, a bagged decision-stump
// ensemble, a rolling anomaly detector and a rule-based risk heuristic.
package scoring

import (
	"math"

	"equipment-health-monitor/internal/models"
)

// FitNormalizer computes per-feature arithmetic mean and population standard
// deviation (dividing by the count, not count-1) over the training batch.
// A standard deviation that comes out zero or non-finite is floored to 1,
// which keeps constant-valued features scoreable.
func FitNormalizer(readings []models.SensorReading) (*models.NormalizedModel, error) {
	if len(readings) == 0 {
		return nil, &models.TrainingError{Reason: "empty input"}
	}

	m := &models.NormalizedModel{
		Features: append([]string(nil), models.FeatureNames...),
		Mean:     make(map[string]float64, len(models.FeatureNames)),
		Std:      make(map[string]float64, len(models.FeatureNames)),
	}

	n := float64(len(readings))
	for _, f := range m.Features {
		var sum float64
		for i := range readings {
			sum += readings[i].Feature(f)
		}
		mean := sum / n

		var varianceSum float64
		for i := range readings {
			d := readings[i].Feature(f) - mean
			varianceSum += d * d
		}
		std := math.Sqrt(varianceSum / n)
		if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
			std = 1
		}

		m.Mean[f] = mean
		m.Std[f] = std
	}

	return m, nil
}

// ScoreNormalized converts a reading's z-score distance from the fitted
// means into a pseudo failure probability: the absolute z-scores of the
// four features are summed, divided by twice the feature count and clamped
// to [0,1]. Non-finite z terms contribute zero.
func ScoreNormalized(m *models.NormalizedModel, r models.SensorReading) (models.Prediction, error) {
	if m == nil || len(m.Features) == 0 {
		return models.Prediction{}, models.ErrModelNotTrained
	}

	var zsum float64
	for _, f := range m.Features {
		std := m.Std[f]
		if std == 0 {
			std = 1
		}
		z := math.Abs((r.Feature(f) - m.Mean[f]) / std)
		if !math.IsNaN(z) && !math.IsInf(z, 0) {
			zsum += z
		}
	}

	risk := clamp(zsum/(float64(len(m.Features))*2), 0, 1)
	fp := round(risk, 3)
	return models.Prediction{
		FailureProbability: fp,
		HealthScore:        round((1-fp)*100, 1),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
