// Package config loads runtime settings from a .env file or the process
// environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the serving layer.
type Config struct {
	DBPath string
	Port   int

	// Optional redis backing for shared rate-limit state. Empty means the
	// in-memory store is used.
	RedisAddr string
	RedisDB   int

	TrainCapacity       float64
	TrainRefillPerSec   float64
	PredictCapacity     float64
	PredictRefillPerSec float64
}

// Load reads .env when present, then the OS environment, falling back to
// built-in defaults for anything unset.
func Load() Config {
	// A missing .env file is fine; the OS environment still applies.
	_ = godotenv.Load()

	return Config{
		DBPath:    getEnv("DB_PATH", "equipment_telemetry.db"),
		Port:      getEnvInt("PORT", 8080),
		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		TrainCapacity:       getEnvFloat("RATE_TRAIN_CAPACITY", 5),
		TrainRefillPerSec:   getEnvFloat("RATE_TRAIN_REFILL", 0.2),
		PredictCapacity:     getEnvFloat("RATE_PREDICT_CAPACITY", 20),
		PredictRefillPerSec: getEnvFloat("RATE_PREDICT_REFILL", 1),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
