package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"equipment-health-monitor/internal/api"
	"equipment-health-monitor/internal/aggregate"
	"equipment-health-monitor/internal/config"
	"equipment-health-monitor/internal/models"
	"equipment-health-monitor/internal/parser"
	"equipment-health-monitor/internal/ratelimit"
	"equipment-health-monitor/internal/scoring"
	"equipment-health-monitor/internal/simulate"
	"equipment-health-monitor/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dbPath   string
	database *store.Store
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "equipment-monitor",
		Short: "Equipment Health Monitor - Telemetry scoring and failure prediction",
		Long: `Ingests equipment sensor readings, maintains a statistical model of
normal operating behavior, scores incoming readings for failure risk and
serves time-bucketed historical aggregates over a rate-limited API.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "equipment_telemetry.db", "Path to SQLite database")

	// Add commands
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(historicalCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initDB initializes the store connection
func initDB() error {
	var err error
	database, err = store.Open(dbPath)
	return err
}

// serverCmd starts the REST API server
func serverCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if !cmd.Flags().Changed("db") && cfg.DBPath != "" {
				dbPath = cfg.DBPath
			}

			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger error: %w", err)
			}
			defer logger.Sync()

			var bucketStore ratelimit.Store
			if cfg.RedisAddr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
				bucketStore = ratelimit.NewRedisStore(client, "")
				logger.Info("rate limiter using redis", zap.String("addr", cfg.RedisAddr))
			} else {
				bucketStore = ratelimit.NewMemoryStore()
			}

			server := api.NewServer(database, ratelimit.New(bucketStore), cfg, logger)
			addr := fmt.Sprintf(":%d", cfg.Port)

			logger.Info("server listening",
				zap.String("addr", addr),
				zap.String("db", dbPath),
			)
			return http.ListenAndServe(addr, server.Router())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Server port")
	return cmd
}

// ingestCmd ingests sensor readings from files
func ingestCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest sensor readings from files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			p := parser.NewParser(format)
			totalInserted := int64(0)
			totalRejected := 0

			for _, file := range args {
				fmt.Printf("Processing %s...\n", file)
				start := time.Now()

				readings, err := p.ParseFile(file)
				if err != nil {
					fmt.Printf("  Error: %v\n", err)
					continue
				}

				inserted, rejected, err := database.AppendBatch(readings)
				if err != nil {
					fmt.Printf("  Database error: %v\n", err)
					continue
				}

				elapsed := time.Since(start)
				fmt.Printf("  Inserted %d readings in %v (%.0f readings/sec)\n",
					inserted, elapsed, float64(inserted)/elapsed.Seconds())
				totalInserted += inserted
				totalRejected += rejected
			}

			fmt.Printf("\nTotal: %d readings ingested", totalInserted)
			if totalRejected > 0 {
				fmt.Printf(", %d rejected", totalRejected)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "File format (csv, json)")
	return cmd
}

// generateCmd generates synthetic labeled sensor data
func generateCmd() *cobra.Command {
	var count int
	var equipmentCount int
	var seed int64
	var failureRate float64
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic sensor readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			gen := simulate.NewGenerator(seed, equipmentCount)
			readings := gen.Readings(count, failureRate)

			start := time.Now()
			inserted, rejected, err := database.AppendBatch(readings)
			if err != nil {
				return fmt.Errorf("insert error: %w", err)
			}
			elapsed := time.Since(start)

			fmt.Printf("Generated %d readings across %d equipment in %v (%.0f readings/sec)\n",
				inserted, equipmentCount, elapsed, float64(inserted)/elapsed.Seconds())
			if rejected > 0 {
				fmt.Printf("Rejected %d readings\n", rejected)
			}

			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("error creating output file: %w", err)
				}
				defer file.Close()

				enc := json.NewEncoder(file)
				enc.SetIndent("", "  ")
				enc.Encode(readings)
				fmt.Printf("Data exported to %s\n", output)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 1000, "Number of readings to generate")
	cmd.Flags().IntVarP(&equipmentCount, "equipment", "n", 5, "Number of equipment units to simulate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().Float64Var(&failureRate, "failure-rate", 0.05, "Fraction of readings with injected anomalies")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export generated data to JSON file")
	return cmd
}

// trainCmd trains a model from the stored telemetry and persists it
func trainCmd() *cobra.Command {
	var trees int
	var seed int64
	var kind string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a failure-risk model from stored readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			readings, err := database.ReadAll()
			if err != nil {
				return fmt.Errorf("read error: %w", err)
			}

			start := time.Now()
			switch kind {
			case store.KindStumpForest:
				model, err := scoring.TrainForest(readings, trees, seed)
				if err != nil {
					return err
				}
				if err := database.SaveForest(model); err != nil {
					return err
				}
				fmt.Printf("Trained %d-tree stump ensemble on %d readings in %v\n",
					len(model.Trees), len(readings), time.Since(start))
			case store.KindZScore:
				model, err := scoring.FitNormalizer(readings)
				if err != nil {
					return err
				}
				if err := database.SaveNormalizer(model); err != nil {
					return err
				}
				fmt.Printf("Fitted z-score normalizer on %d readings in %v\n",
					len(readings), time.Since(start))
				for _, f := range model.Features {
					fmt.Printf("  %-12s mean=%.3f std=%.3f\n", f, model.Mean[f], model.Std[f])
				}
			default:
				return fmt.Errorf("unknown model kind %q (use %s or %s)", kind, store.KindStumpForest, store.KindZScore)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&trees, "trees", "t", scoring.DefaultTreeCount, "Number of stumps in the ensemble")
	cmd.Flags().Int64Var(&seed, "seed", 123, "Random seed")
	cmd.Flags().StringVarP(&kind, "model", "m", store.KindStumpForest, "Model kind (stump-forest, zscore)")
	return cmd
}

// predictCmd scores a single reading against the persisted model
func predictCmd() *cobra.Command {
	var temperature, vibration, pressure, current float64

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a reading against the persisted model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			reading := models.SensorReading{
				Temperature: temperature,
				Vibration:   vibration,
				Pressure:    pressure,
				Current:     current,
			}

			pm, err := database.LoadModel()
			if err != nil {
				return fmt.Errorf("load error: %w", err)
			}
			if pm == nil {
				assessment := scoring.RuleBasedRisk(reading)
				fmt.Println("No trained model; using rule-based risk heuristic.")
				fmt.Printf("  Risk:         %d\n", assessment.Risk)
				fmt.Printf("  Status:       %s\n", assessment.Status)
				fmt.Printf("  Health Score: %.1f\n", assessment.HealthScore)
				fmt.Printf("  %s\n", assessment.Message)
				return nil
			}

			var pred models.Prediction
			switch pm.Kind {
			case store.KindZScore:
				pred, err = scoring.ScoreNormalized(pm.Normalizer, reading)
			case store.KindStumpForest:
				pred, err = scoring.PredictForest(pm.Forest, reading)
			default:
				return fmt.Errorf("unknown persisted model kind %q", pm.Kind)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Model: %s (trained %s)\n", pm.Kind, pm.CreatedAt.Format(time.RFC3339))
			fmt.Printf("  Failure Probability: %.3f\n", pred.FailureProbability)
			fmt.Printf("  Health Score:        %.1f\n", pred.HealthScore)
			return nil
		},
	}

	cmd.Flags().Float64Var(&temperature, "temperature", 65, "Temperature (degrees C)")
	cmd.Flags().Float64Var(&vibration, "vibration", 2.5, "Vibration (mm/s)")
	cmd.Flags().Float64Var(&pressure, "pressure", 5.2, "Pressure (bar)")
	cmd.Flags().Float64Var(&current, "current", 108, "Current (A)")
	return cmd
}

// historicalCmd prints hourly aggregates for a trailing window
func historicalCmd() *cobra.Command {
	var days int
	var equipmentID string

	cmd := &cobra.Command{
		Use:   "historical",
		Short: "Show hourly aggregates over a trailing window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			engine := aggregate.NewEngine(database)
			series, err := engine.Aggregate(days, equipmentID)
			if err != nil {
				return err
			}

			fmt.Printf("%d hourly buckets over the last %d day(s)\n\n", len(series), days)
			for _, b := range series {
				fmt.Printf("[%s] temp: %.2f | vib: %.2f | pres: %.2f | curr: %.2f\n",
					b.Timestamp.Format("2006-01-02 15:04"),
					b.Temperature, b.Vibration, b.Pressure, b.Current)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 1, "Trailing window in days (1-365)")
	cmd.Flags().StringVarP(&equipmentID, "equipment", "e", "", "Filter by equipment ID")
	return cmd
}

// statsCmd shows store statistics
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show telemetry store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			stats, err := database.Stats()
			if err != nil {
				return fmt.Errorf("error getting stats: %w", err)
			}

			fmt.Println("Equipment Health Monitor Statistics")
			fmt.Println("===================================")
			fmt.Printf("  Readings:         %v\n", stats["total_readings"])
			fmt.Printf("  Equipment:        %v\n", stats["equipment_count"])
			fmt.Printf("  Labeled Failures: %v\n", stats["labeled_failures"])
			fmt.Printf("  Trained Models:   %v\n", stats["trained_models"])
			fmt.Printf("  Database:         %s\n", dbPath)

			return nil
		},
	}
}
