package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"equipment-health-monitor/internal/aggregate"
	"equipment-health-monitor/internal/config"
	"equipment-health-monitor/internal/ratelimit"
	"equipment-health-monitor/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the API server
type Server struct {
	db      *store.Store
	agg     *aggregate.Engine
	limiter *ratelimit.Limiter
	cfg     config.Config
	logger  *zap.Logger
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(db *store.Store, limiter *ratelimit.Limiter, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		db:      db,
		agg:     aggregate.NewEngine(db),
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check and metrics
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Telemetry endpoints
	s.router.HandleFunc("/api/v1/readings", s.handleIngest).Methods("POST")
	s.router.HandleFunc("/api/v1/readings", s.handleListReadings).Methods("GET")

	// Model endpoints; training and inference sit behind the rate limiter
	s.router.HandleFunc("/api/v1/train",
		s.rateLimited("train", s.cfg.TrainCapacity, s.cfg.TrainRefillPerSec, s.handleTrain)).Methods("POST")
	s.router.HandleFunc("/api/v1/predict",
		s.rateLimited("predict", s.cfg.PredictCapacity, s.cfg.PredictRefillPerSec, s.handlePredict)).Methods("GET")
	s.router.HandleFunc("/api/v1/risk", s.handleRisk).Methods("GET")

	// Historical and monitoring endpoints
	s.router.HandleFunc("/api/v1/historical/{days}", s.handleHistorical).Methods("GET")
	s.router.HandleFunc("/api/v1/anomaly-scores", s.handleAnomalyScores).Methods("GET")
	s.router.HandleFunc("/api/v1/alerts", s.handleAlerts).Methods("GET")
	s.router.HandleFunc("/api/v1/equipment-status", s.handleEquipmentStatus).Methods("GET")
	s.router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET")

	// Add middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Middleware
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(elapsed.Seconds())
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", elapsed),
		)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimited wraps a handler with a token-bucket admission check keyed by
// limiter ID and client identity.
func (s *Server) rateLimited(limiterID string, capacity, refillPerSec float64, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision, err := s.limiter.Allow(r.Context(), limiterID, clientIdentity(r), capacity, refillPerSec)
		if err != nil {
			// Admission-control failure must not take scoring down with it.
			s.logger.Warn("rate limiter unavailable", zap.String("limiter", limiterID), zap.Error(err))
			next(w, r)
			return
		}
		if !decision.Allowed {
			rateLimitedTotal.WithLabelValues(limiterID).Inc()
			w.Header().Set("Retry-After", formatSeconds(decision.RetryAfterSeconds))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(apiResponse{
				Success: false,
				Error:   "rate limit exceeded",
				Data:    decision,
			})
			return
		}
		next(w, r)
	}
}

// clientIdentity derives the limiter key from the first value of the
// forwarded-address header, falling back to the "unknown" sentinel.
func clientIdentity(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return "unknown"
	}
	id := strings.TrimSpace(strings.Split(xff, ",")[0])
	if id == "" {
		return "unknown"
	}
	return id
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Total   int   `json:"total,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	QueryMs int64 `json:"query_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m})
}
