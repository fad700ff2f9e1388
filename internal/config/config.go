package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate.
type Config struct {
	DatabaseURL string

	ListenAddr string

	// PatientsPath and BiometricsPath are the default batch files the
	// scheduled ETL run reads. Trigger requests may override them per run.
	PatientsPath   string
	BiometricsPath string

	// ArtifactDir is where per-run rejected-record files are written.
	// Empty disables file artifacts (rejections are still persisted
	// in the rejected_records table).
	ArtifactDir string

	// TrendWindowHours is the number of most recent hourly summary buckets
	// the trend classifier looks at per patient/metric series.
	TrendWindowHours int

	// TrendMinPoints is the minimum number of buckets required before a
	// directional trend is computed; below it the series is classified
	// as insufficient_data.
	TrendMinPoints int

	// AggregateBackfillHours is how many completed hours the aggregation
	// worker re-processes at startup.
	AggregateBackfillHours int
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		DatabaseURL:            os.Getenv("APP_DATABASE_URL"),
		ListenAddr:             getenv("APP_LISTEN_ADDR", ":8080"),
		PatientsPath:           getenv("APP_PATIENTS_PATH", "data/patients.json"),
		BiometricsPath:         getenv("APP_BIOMETRICS_PATH", "data/biometrics.csv"),
		ArtifactDir:            getenv("APP_ARTIFACT_DIR", "rejected"),
		TrendWindowHours:       12,
		TrendMinPoints:         4,
		AggregateBackfillHours: 24,
	}

	if v := os.Getenv("APP_TREND_WINDOW_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TrendWindowHours = n
		}
	}
	if v := os.Getenv("APP_TREND_MIN_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			cfg.TrendMinPoints = n
		}
	}
	if v := os.Getenv("APP_AGGREGATE_BACKFILL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AggregateBackfillHours = n
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
