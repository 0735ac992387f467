package scoring

import (
	"sort"

	"equipment-health-monitor/internal/models"
)

// Alerting thresholds on failure probability.
const (
	AlertCriticalThreshold = 0.7
	AlertWarningThreshold  = 0.4
)

// PredictFunc scores a single reading against whatever model is current.
type PredictFunc func(models.SensorReading) (models.Prediction, error)

// ScanAlerts scores each reading and flags the ones whose failure
// probability crosses the warning or critical threshold. Readings that fail
// to score are skipped.
func ScanAlerts(predict PredictFunc, readings []models.SensorReading) []models.Alert {
	alerts := make([]models.Alert, 0)
	for i := range readings {
		pred, err := predict(readings[i])
		if err != nil {
			continue
		}

		equipment := readings[i].EquipmentID
		if equipment == "" {
			equipment = models.UnknownEquipment
		}

		switch {
		case pred.FailureProbability >= AlertCriticalThreshold:
			alerts = append(alerts, models.Alert{
				Equipment:   equipment,
				Severity:    StatusCritical,
				Message:     "High failure risk detected",
				Probability: pred.FailureProbability,
				Time:        readings[i].Timestamp,
			})
		case pred.FailureProbability >= AlertWarningThreshold:
			alerts = append(alerts, models.Alert{
				Equipment:   equipment,
				Severity:    StatusWarning,
				Message:     "Elevated risk observed",
				Probability: pred.FailureProbability,
				Time:        readings[i].Timestamp,
			})
		}
	}
	return alerts
}

// EquipmentStatuses groups readings by equipment ID and scores the latest
// reading of each group. Results are sorted by equipment ID.
func EquipmentStatuses(predict PredictFunc, readings []models.SensorReading) []models.EquipmentStatus {
	latest := make(map[string]models.SensorReading)
	for i := range readings {
		id := readings[i].EquipmentID
		if id == "" {
			id = models.UnknownEquipment
		}
		latest[id] = readings[i]
	}

	statuses := make([]models.EquipmentStatus, 0, len(latest))
	for id, last := range latest {
		pred, err := predict(last)
		if err != nil {
			continue
		}
		statuses = append(statuses, models.EquipmentStatus{
			ID:                 id,
			HealthScore:        pred.HealthScore,
			FailureProbability: pred.FailureProbability,
			Last:               last,
		})
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}
