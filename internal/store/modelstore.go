package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"equipment-health-monitor/internal/models"
)

// Model kinds recorded alongside each persisted payload. The two schemas are
// not interchangeable, so the loader validates the tag before decoding.
const (
	KindZScore      = "zscore"
	KindStumpForest = "stump-forest"
)

// PersistedModel is the most recently saved model artifact. Exactly one of
// Normalizer and Forest is set, according to Kind.
type PersistedModel struct {
	Kind       string
	Normalizer *models.NormalizedModel
	Forest     *models.StumpEnsembleModel
	CreatedAt  time.Time
}

// SaveNormalizer persists a fitted z-score model. Last write wins.
func (s *Store) SaveNormalizer(m *models.NormalizedModel) error {
	return s.saveModel(KindZScore, m)
}

// SaveForest persists a trained stump ensemble. Last write wins.
func (s *Store) SaveForest(m *models.StumpEnsembleModel) error {
	return s.saveModel(KindStumpForest, m)
}

func (s *Store) saveModel(kind string, m interface{}) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	_, err = s.conn.Exec(
		`INSERT INTO ml_models (kind, payload, created_at) VALUES (?, ?, ?)`,
		kind, string(payload), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to persist model: %w", err)
	}
	return nil
}

// LoadModel returns the most recently saved model, or (nil, nil) when
// nothing has been trained yet. Callers treat the nil model as
// models.ErrModelNotTrained, not a fatal condition.
func (s *Store) LoadModel() (*PersistedModel, error) {
	var kind, payload string
	var createdAt time.Time

	err := s.conn.QueryRow(
		`SELECT kind, payload, created_at FROM ml_models ORDER BY id DESC LIMIT 1`,
	).Scan(&kind, &payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pm := &PersistedModel{Kind: kind, CreatedAt: createdAt}
	switch kind {
	case KindZScore:
		var m models.NormalizedModel
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("corrupt %s model payload: %w", kind, err)
		}
		pm.Normalizer = &m
	case KindStumpForest:
		var m models.StumpEnsembleModel
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("corrupt %s model payload: %w", kind, err)
		}
		pm.Forest = &m
	default:
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}

	return pm, nil
}
