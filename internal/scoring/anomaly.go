package scoring

import (
	"math"
	"time"

	"equipment-health-monitor/internal/models"
)

// DefaultAnomalyWindow is the sliding-window size used when the caller does
// not specify one.
const DefaultAnomalyWindow = 24

// AnomalyPoint is the rolling anomaly score for one input reading.
type AnomalyPoint struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// RollingAnomalyScores computes a rolling z-score anomaly series: for each
// point, the buffer of up to window trailing points (including the current
// one) supplies per-feature mean and standard deviation, and the point's
// score is the average of the four absolute z terms, rounded to three
// decimals. Until window points have been seen the buffer simply grows.
// Standard deviations are floored to 1 when zero or non-finite.
func RollingAnomalyScores(series []models.SensorReading, window int) []AnomalyPoint {
	if window <= 0 {
		window = DefaultAnomalyWindow
	}

	scores := make([]AnomalyPoint, 0, len(series))
	buf := make([]models.SensorReading, 0, window)

	for i := range series {
		buf = append(buf, series[i])
		if len(buf) > window {
			buf = buf[1:]
		}

		var zsum float64
		for _, f := range models.FeatureNames {
			mean, std := bufferStats(buf, f)
			zsum += math.Abs((series[i].Feature(f) - mean) / std)
		}

		scores = append(scores, AnomalyPoint{
			Index:     i,
			Timestamp: series[i].Timestamp,
			Score:     round(zsum/float64(len(models.FeatureNames)), 3),
		})
	}

	return scores
}

func bufferStats(buf []models.SensorReading, feature string) (mean, std float64) {
	n := float64(len(buf))
	var sum float64
	for i := range buf {
		sum += buf[i].Feature(feature)
	}
	mean = sum / n

	var varianceSum float64
	for i := range buf {
		d := buf[i].Feature(feature) - mean
		varianceSum += d * d
	}
	std = math.Sqrt(varianceSum / n)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		std = 1
	}
	return mean, std
}
