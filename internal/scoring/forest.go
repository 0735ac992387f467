package scoring

import (
	"math"
	"math/rand"
	"sort"

	"equipment-health-monitor/internal/models"
)

// DefaultTreeCount is the ensemble size used when the caller does not ask
// for a specific number of trees.
const DefaultTreeCount = 50

// TrainForest trains a bag of decision stumps. Per tree: a bootstrap sample
// of the input (same size, drawn with replacement), one feature picked at
// random, a threshold at a random quantile clamped to [0.05, 0.95] of the
// sampled feature values, and left/right failure fractions for the two
// partitions (zero for an empty partition).
//
// All randomness comes from a single PRNG seeded with seed, so identical
// inputs reproduce the same ensemble.
func TrainForest(readings []models.SensorReading, treeCount int, seed int64) (*models.StumpEnsembleModel, error) {
	if len(readings) == 0 {
		return nil, &models.TrainingError{Reason: "empty input"}
	}
	if treeCount < 1 {
		return nil, &models.TrainingError{Reason: "tree count must be at least 1"}
	}

	rng := rand.New(rand.NewSource(seed))
	n := len(readings)
	features := models.FeatureNames

	trees := make([]models.Stump, 0, treeCount)
	sample := make([]*models.SensorReading, n)
	vals := make([]float64, n)

	for k := 0; k < treeCount; k++ {
		for i := 0; i < n; i++ {
			sample[i] = &readings[rng.Intn(n)]
		}

		feat := features[rng.Intn(len(features))]

		for i, p := range sample {
			vals[i] = p.Feature(feat)
		}
		sort.Float64s(vals)

		q := clamp(rng.Float64(), 0.05, 0.95)
		threshold := vals[int(math.Floor(q*float64(n-1)))]

		var leftPos, leftTot, rightPos, rightTot int
		for _, p := range sample {
			if p.Feature(feat) <= threshold {
				leftTot++
				if p.Failure {
					leftPos++
				}
			} else {
				rightTot++
				if p.Failure {
					rightPos++
				}
			}
		}

		stump := models.Stump{Feature: feat, Threshold: threshold}
		if leftTot > 0 {
			stump.LeftProb = float64(leftPos) / float64(leftTot)
		}
		if rightTot > 0 {
			stump.RightProb = float64(rightPos) / float64(rightTot)
		}
		trees = append(trees, stump)
	}

	return &models.StumpEnsembleModel{
		Features: append([]string(nil), features...),
		Trees:    trees,
	}, nil
}

// PredictForest scores a reading against a trained ensemble: each stump
// contributes its left probability when the reading's feature is at or below
// the threshold and its right probability otherwise, and the failure
// probability is the arithmetic mean across all stumps.
func PredictForest(m *models.StumpEnsembleModel, r models.SensorReading) (models.Prediction, error) {
	if m == nil || len(m.Trees) == 0 {
		return models.Prediction{}, models.ErrModelNotTrained
	}

	var sum float64
	for _, t := range m.Trees {
		if r.Feature(t.Feature) <= t.Threshold {
			sum += t.LeftProb
		} else {
			sum += t.RightProb
		}
	}

	fp := sum / float64(len(m.Trees))
	return models.Prediction{
		FailureProbability: fp,
		HealthScore:        round(clamp((1-fp)*100, 0, 100), 1),
	}, nil
}
