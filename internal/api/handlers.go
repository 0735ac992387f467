package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"equipment-health-monitor/internal/models"
	"equipment-health-monitor/internal/scoring"
	"equipment-health-monitor/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Caps on the recency windows used by serving paths, matching the practice
// of bounding served history to the most recent readings.
const (
	alertScanWindow     = 200
	statusScanWindow    = 100
	anomalySeriesWindow = 500
	maxListLimit        = 1000
)

// Handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleIngest accepts a single reading or an array of readings. Readings
// with non-finite metrics are rejected without aborting the rest of a batch.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if isJSONArray(body) {
		var readings []models.SensorReading
		if err := json.Unmarshal(body, &readings); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON array")
			return
		}
		if len(readings) == 0 {
			respondError(w, http.StatusBadRequest, "empty array")
			return
		}

		inserted, rejected, err := s.db.AppendBatch(readings)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ingestTotal.Add(float64(inserted))
		ingestRejectedTotal.Add(float64(rejected))
		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"inserted": inserted,
			"rejected": rejected,
		})
		return
	}

	var reading models.SensorReading
	if err := json.Unmarshal(body, &reading); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.db.Append(&reading); err != nil {
		if errors.Is(err, models.ErrInvalidReading) {
			ingestRejectedTotal.Inc()
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ingestTotal.Inc()
	respondJSON(w, http.StatusCreated, reading)
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	if limit <= 0 || limit > maxListLimit {
		limit = 100
	}

	readings, err := s.db.ReadRecent(limit, r.URL.Query().Get("equipmentId"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithMeta(w, readings, &meta{
		Total:   len(readings),
		Limit:   limit,
		QueryMs: time.Since(start).Milliseconds(),
	})
}

// handleTrain fits a model from the posted readings, or from the full
// telemetry log when the body is empty, and persists it. The previously
// persisted model stays in service if anything fails.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var readings []models.SensorReading
	if len(body) > 0 {
		if err := json.Unmarshal(body, &readings); err != nil {
			respondError(w, http.StatusBadRequest, "body must be a JSON array of sensor readings")
			return
		}
	}
	if len(readings) == 0 {
		readings, err = s.db.ReadAll()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if len(readings) == 0 {
		respondError(w, http.StatusBadRequest, (&models.TrainingError{Reason: "empty input"}).Error())
		return
	}

	kind := r.URL.Query().Get("model")
	if kind == "" {
		kind = store.KindStumpForest
	}

	trees := scoring.DefaultTreeCount
	if v := r.URL.Query().Get("trees"); v != "" {
		trees, _ = strconv.Atoi(v)
	}
	var seed int64 = 123
	if v := r.URL.Query().Get("seed"); v != "" {
		seed, _ = strconv.ParseInt(v, 10, 64)
	}

	var payload interface{}
	switch kind {
	case store.KindStumpForest:
		model, err := scoring.TrainForest(readings, trees, seed)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.db.SaveForest(model); err != nil {
			s.logger.Error("model persistence failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError,
				(&models.TrainingError{Reason: "persist failed", Err: err}).Error())
			return
		}
		payload = model
	case store.KindZScore:
		model, err := scoring.FitNormalizer(readings)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.db.SaveNormalizer(model); err != nil {
			s.logger.Error("model persistence failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError,
				(&models.TrainingError{Reason: "persist failed", Err: err}).Error())
			return
		}
		payload = model
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown model kind %q", kind))
		return
	}

	trainingRunsTotal.WithLabelValues(kind).Inc()
	s.logger.Info("model trained", zap.String("kind", kind), zap.Int("readings", len(readings)))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Model trained",
		"kind":     kind,
		"readings": len(readings),
		"model":    payload,
	})
}

// handlePredict scores the queried metrics against the persisted model,
// falling back to the rule-based heuristic when nothing has been trained.
// Clients that require model-backed inference pass mode=model and get a 409
// instead of the fallback.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	reading := models.SensorReading{
		Temperature: queryFloat(r, "temperature", 65),
		Vibration:   queryFloat(r, "vibration", 2.5),
		Pressure:    queryFloat(r, "pressure", 5.2),
		Current:     queryFloat(r, "current", 108),
		EquipmentID: r.URL.Query().Get("equipmentId"),
	}

	pm, err := s.db.LoadModel()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if pm == nil {
		if r.URL.Query().Get("mode") == "model" {
			respondError(w, http.StatusConflict, models.ErrModelNotTrained.Error())
			return
		}
		assessment := scoring.RuleBasedRisk(reading)
		predictionsTotal.WithLabelValues("rules").Inc()
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"metrics":      reading,
			"mode":         "rules",
			"risk":         assessment.Risk,
			"status":       assessment.Status,
			"message":      assessment.Message,
			"health_score": assessment.HealthScore,
		})
		return
	}

	pred, err := scoreWith(pm, reading)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	predictionsTotal.WithLabelValues(pm.Kind).Inc()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":             reading,
		"mode":                pm.Kind,
		"failure_probability": pred.FailureProbability,
		"health_score":        pred.HealthScore,
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	reading := models.SensorReading{
		Temperature: queryFloat(r, "temperature", 65),
		Vibration:   queryFloat(r, "vibration", 2.5),
		Pressure:    queryFloat(r, "pressure", 5.2),
		Current:     queryFloat(r, "current", 108),
	}

	assessment := scoring.RuleBasedRisk(reading)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":      reading,
		"risk":         assessment.Risk,
		"status":       assessment.Status,
		"message":      assessment.Message,
		"health_score": assessment.HealthScore,
	})
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	days, err := strconv.Atoi(mux.Vars(r)["days"])
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrInvalidRange.Error())
		return
	}

	series, err := s.agg.Aggregate(days, r.URL.Query().Get("equipmentId"))
	if err != nil {
		if errors.Is(err, models.ErrInvalidRange) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithMeta(w, map[string]interface{}{"series": series}, &meta{
		Total:   len(series),
		QueryMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleAnomalyScores(w http.ResponseWriter, r *http.Request) {
	window := scoring.DefaultAnomalyWindow
	if v := r.URL.Query().Get("window"); v != "" {
		window, _ = strconv.Atoi(v)
	}

	readings, err := s.db.ReadRecent(anomalySeriesWindow, r.URL.Query().Get("equipmentId"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scores := scoring.RollingAnomalyScores(readings, window)
	respondWithMeta(w, map[string]interface{}{"scores": scores}, &meta{Total: len(scores)})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	pm, err := s.db.LoadModel()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	alerts := []models.Alert{}
	if pm != nil {
		readings, err := s.db.ReadRecent(alertScanWindow, "")
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		alerts = scoring.ScanAlerts(func(r models.SensorReading) (models.Prediction, error) {
			return scoreWith(pm, r)
		}, readings)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

func (s *Server) handleEquipmentStatus(w http.ResponseWriter, r *http.Request) {
	pm, err := s.db.LoadModel()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	statuses := []models.EquipmentStatus{}
	if pm != nil {
		readings, err := s.db.ReadRecent(statusScanWindow, "")
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		statuses = scoring.EquipmentStatuses(func(r models.SensorReading) (models.Prediction, error) {
			return scoreWith(pm, r)
		}, readings)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"equipment": statuses})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// scoreWith dispatches to the scorer matching the persisted model's kind.
func scoreWith(pm *store.PersistedModel, r models.SensorReading) (models.Prediction, error) {
	switch pm.Kind {
	case store.KindZScore:
		return scoring.ScoreNormalized(pm.Normalizer, r)
	case store.KindStumpForest:
		return scoring.PredictForest(pm.Forest, r)
	}
	return models.Prediction{}, fmt.Errorf("unknown model kind %q", pm.Kind)
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func isJSONArray(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
