package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_readings_ingested_total",
		Help: "Sensor readings accepted into the telemetry store.",
	})

	ingestRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_readings_rejected_total",
		Help: "Sensor readings rejected at the ingestion boundary.",
	})

	trainingRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_training_runs_total",
		Help: "Completed model training runs by model kind.",
	}, []string{"kind"})

	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_predictions_total",
		Help: "Served failure-risk predictions by scoring mode.",
	}, []string{"mode"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_rate_limited_total",
		Help: "Requests denied by the token-bucket rate limiter.",
	}, []string{"limiter"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemetry_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
