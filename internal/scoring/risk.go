package scoring

import (
	"math"

	"equipment-health-monitor/internal/models"
)

// Risk status levels reported by the rule-based heuristic.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// RiskAssessment is the result of the rule-based risk heuristic.
type RiskAssessment struct {
	Risk        int     `json:"risk"`
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	HealthScore float64 `json:"health_score"`
}

// RuleBasedRisk scores a reading with fixed per-feature thresholds, with no
// trained model required. Each metric above its operating limit adds to the
// risk score, which is clamped to [0,100]. Used as the inference fallback
// before any model has been trained.
func RuleBasedRisk(r models.SensorReading) RiskAssessment {
	var score float64
	if r.Temperature > 70 {
		score += (r.Temperature - 70) * 2
	}
	if r.Vibration > 3 {
		score += (r.Vibration - 3) * 10
	}
	if r.Pressure > 5.4 {
		score += (r.Pressure - 5.4) * 50
	}
	if r.Current > 115 {
		score += (r.Current - 115) * 1.5
	}

	risk := int(clamp(math.Round(score), 0, 100))

	status := StatusHealthy
	message := "Operating within normal parameters."
	switch {
	case risk >= 70:
		status = StatusCritical
		message = "High failure risk detected. Immediate inspection recommended."
	case risk >= 40:
		status = StatusWarning
		message = "Elevated risk detected. Schedule maintenance check."
	}

	return RiskAssessment{
		Risk:        risk,
		Status:      status,
		Message:     message,
		HealthScore: float64(100 - risk),
	}
}
