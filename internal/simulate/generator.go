// Package simulate produces synthetic labeled sensor data for demos and
// model bootstrapping. The generator is explicitly seeded and keeps no
// shared state, so identical parameters reproduce identical datasets.
package simulate

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"equipment-health-monitor/internal/models"

	"github.com/google/uuid"
)

// Generator synthesizes plausible equipment sensor traces: sinusoidal base
// signals with noise, plus injected anomalies that carry failure labels.
type Generator struct {
	rng       *rand.Rand
	equipment []string
}

// NewGenerator creates a seeded generator simulating equipmentCount
// machines. equipmentCount values below 1 are treated as 1.
func NewGenerator(seed int64, equipmentCount int) *Generator {
	if equipmentCount < 1 {
		equipmentCount = 1
	}

	equipment := make([]string, equipmentCount)
	for i := range equipment {
		equipment[i] = fmt.Sprintf("EQ-%s", uuid.NewString()[:8])
	}

	return &Generator{
		rng:       rand.New(rand.NewSource(seed)),
		equipment: equipment,
	}
}

// Equipment returns the simulated equipment IDs.
func (g *Generator) Equipment() []string {
	return append([]string(nil), g.equipment...)
}

// Readings generates numPoints labeled readings spanning the trailing 30
// days. Roughly failureRate of the points carry injected anomalies
// (elevated temperature, vibration and current, depressed pressure) and a
// failure label; a small fraction of normal points is also labeled failed
// to keep the classes from separating perfectly.
func (g *Generator) Readings(numPoints int, failureRate float64) []models.SensorReading {
	if numPoints <= 0 {
		return nil
	}

	const span = 30 * 24 * time.Hour
	start := time.Now().Add(-span)
	step := span / time.Duration(numPoints)

	readings := make([]models.SensorReading, 0, numPoints)
	for i := 0; i < numPoints; i++ {
		t := float64(i) / float64(numPoints)

		temperature := 60 + 5*math.Sin(t*math.Pi*10) + (g.rng.Float64()-0.5)*2
		vibration := 2 + 0.6*math.Sin(t*math.Pi*5) + (g.rng.Float64()-0.5)*0.3
		pressure := 5.2 + 0.4*math.Cos(t*math.Pi*4) + (g.rng.Float64()-0.5)*0.2
		current := 108 + 8*math.Sin(t*math.Pi*7) + (g.rng.Float64()-0.5)*3

		isAnomaly := g.rng.Float64() < failureRate
		if isAnomaly {
			temperature += 8 + g.rng.Float64()*5
			vibration += 1 + g.rng.Float64()*0.8
			pressure -= 0.8 + g.rng.Float64()*0.8
			current += 10 + g.rng.Float64()*8
		}

		failure := isAnomaly || g.rng.Float64() < failureRate*0.2

		readings = append(readings, models.SensorReading{
			EquipmentID: g.equipment[g.rng.Intn(len(g.equipment))],
			Timestamp:   start.Add(time.Duration(i) * step),
			Temperature: temperature,
			Vibration:   vibration,
			Pressure:    pressure,
			Current:     current,
			Failure:     failure,
		})
	}

	return readings
}
