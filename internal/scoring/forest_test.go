package scoring

import (
	"errors"
	"reflect"
	"testing"

	"equipment-health-monitor/internal/models"
)

func trainingBatch() []models.SensorReading {
	readings := make([]models.SensorReading, 0, 40)
	for i := 0; i < 40; i++ {
		r := models.SensorReading{
			Temperature: 60 + float64(i%10),
			Vibration:   2 + float64(i%5)*0.2,
			Pressure:    5.2 - float64(i%4)*0.1,
			Current:     108 + float64(i%8),
		}
		if i%10 == 0 {
			// Anomalous, labeled point.
			r.Temperature += 15
			r.Vibration += 2
			r.Current += 20
			r.Failure = true
		}
		readings = append(readings, r)
	}
	return readings
}

func TestTrainForest_TreeCountAndInvariants(t *testing.T) {
	model, err := TrainForest(trainingBatch(), 20, 1)
	if err != nil {
		t.Fatal(err)
	}

	if len(model.Trees) != 20 {
		t.Fatalf("tree count: got %d, want 20", len(model.Trees))
	}
	for i, stump := range model.Trees {
		if stump.LeftProb < 0 || stump.LeftProb > 1 || stump.RightProb < 0 || stump.RightProb > 1 {
			t.Errorf("tree %d: branch probabilities out of [0,1]: %+v", i, stump)
		}
		found := false
		for _, f := range model.Features {
			if stump.Feature == f {
				found = true
			}
		}
		if !found {
			t.Errorf("tree %d: unknown feature %q", i, stump.Feature)
		}
	}
}

func TestTrainForest_SeedReproducibility(t *testing.T) {
	batch := trainingBatch()
	a, err := TrainForest(batch, 10, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := TrainForest(batch, 10, 7)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("identical seeds produced different ensembles")
	}
}

func TestTrainForest_Errors(t *testing.T) {
	var te *models.TrainingError
	if _, err := TrainForest(nil, 10, 1); !errors.As(err, &te) {
		t.Errorf("empty input: expected TrainingError, got %v", err)
	}
	if _, err := TrainForest(trainingBatch(), 0, 1); !errors.As(err, &te) {
		t.Errorf("zero trees: expected TrainingError, got %v", err)
	}
}

func TestPredictForest_HandConstructedAverage(t *testing.T) {
	model := &models.StumpEnsembleModel{
		Features: models.FeatureNames,
		Trees: []models.Stump{
			{Feature: "temperature", Threshold: 70, LeftProb: 0.1, RightProb: 0.9},
			{Feature: "vibration", Threshold: 3, LeftProb: 0.2, RightProb: 0.6},
		},
	}

	// temperature 80 > 70 -> right (0.9); vibration 2 <= 3 -> left (0.2).
	pred, err := PredictForest(model, models.SensorReading{Temperature: 80, Vibration: 2, Pressure: 5, Current: 100})
	if err != nil {
		t.Fatal(err)
	}
	if want := (0.9 + 0.2) / 2; pred.FailureProbability != want {
		t.Errorf("failure probability: got %v, want %v", pred.FailureProbability, want)
	}
	if want := round((1-0.55)*100, 1); pred.HealthScore != want {
		t.Errorf("health score: got %v, want %v", pred.HealthScore, want)
	}

	// Boundary: a feature exactly at the threshold goes left.
	pred, err = PredictForest(model, models.SensorReading{Temperature: 70, Vibration: 3, Pressure: 5, Current: 100})
	if err != nil {
		t.Fatal(err)
	}
	if want := (0.1 + 0.2) / 2; pred.FailureProbability != want {
		t.Errorf("boundary failure probability: got %v, want %v", pred.FailureProbability, want)
	}
}

func TestPredictForest_Untrained(t *testing.T) {
	if _, err := PredictForest(nil, models.SensorReading{}); !errors.Is(err, models.ErrModelNotTrained) {
		t.Errorf("nil model: expected ErrModelNotTrained, got %v", err)
	}
	empty := &models.StumpEnsembleModel{Features: models.FeatureNames}
	if _, err := PredictForest(empty, models.SensorReading{}); !errors.Is(err, models.ErrModelNotTrained) {
		t.Errorf("empty ensemble: expected ErrModelNotTrained, got %v", err)
	}
}

func TestPredictForest_Bounds(t *testing.T) {
	model, err := TrainForest(trainingBatch(), 30, 99)
	if err != nil {
		t.Fatal(err)
	}

	cases := []models.SensorReading{
		{Temperature: 60, Vibration: 2, Pressure: 5.2, Current: 108},
		{Temperature: 90, Vibration: 5, Pressure: 4, Current: 140},
		{Temperature: -100, Vibration: -10, Pressure: 100, Current: 0},
	}
	for _, r := range cases {
		pred, err := PredictForest(model, r)
		if err != nil {
			t.Fatal(err)
		}
		if pred.FailureProbability < 0 || pred.FailureProbability > 1 {
			t.Errorf("failure probability out of bounds: %v", pred.FailureProbability)
		}
		if pred.HealthScore < 0 || pred.HealthScore > 100 {
			t.Errorf("health score out of bounds: %v", pred.HealthScore)
		}
	}
}
