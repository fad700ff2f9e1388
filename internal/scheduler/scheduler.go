// Package scheduler hosts the in-process stand-in for the external batch
// trigger: hourly tickers that invoke the pipeline stages in order. The
// stages themselves stay pure entry points (window in, run summary out);
// nothing here holds pipeline state.
package scheduler

import (
	"os"
	"time"

	"go.uber.org/zap"

	"vitalsight/internal/analytics"
	"vitalsight/internal/config"
	"vitalsight/internal/etl"
)

// StartETLWorker runs the ETL stage over the configured batch files once at
// startup and then every hour. Missing batch files are skipped quietly: the
// files are dropped off by an external process on its own cadence.
func StartETLWorker(runner *etl.Runner, cfg *config.Config, log *zap.Logger) {
	go func() {
		runETL(runner, cfg, log)

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			runETL(runner, cfg, log)
		}
	}()
}

func runETL(runner *etl.Runner, cfg *config.Config, log *zap.Logger) {
	patients := cfg.PatientsPath
	if !fileExists(patients) {
		patients = ""
	}
	biometrics := cfg.BiometricsPath
	if !fileExists(biometrics) {
		biometrics = ""
	}
	if patients == "" && biometrics == "" {
		return
	}

	if _, err := runner.Run(patients, biometrics); err != nil {
		log.Error("scheduled etl run failed", zap.Error(err))
	}
}

// StartAnalyticsWorker aggregates the last completed hours at startup
// (backfill), then every hour aggregates the previous full hour and
// re-classifies trends. Buckets are in UTC.
func StartAnalyticsWorker(agg *analytics.Aggregator, cls *analytics.Classifier, cfg *config.Config, log *zap.Logger) {
	go func() {
		now := time.Now().UTC()
		for i := cfg.AggregateBackfillHours; i >= 1; i-- {
			bucketStart := now.Truncate(time.Hour).Add(-time.Duration(i) * time.Hour)
			if _, err := agg.AggregateHour(bucketStart); err != nil {
				log.Error("aggregation backfill failed",
					zap.Time("bucket_start", bucketStart), zap.Error(err))
			}
		}
		if _, err := cls.ClassifyAll(); err != nil {
			log.Error("trend classification failed (startup)", zap.Error(err))
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for t := range ticker.C {
			bucketStart := t.UTC().Truncate(time.Hour).Add(-time.Hour)
			if _, err := agg.AggregateHour(bucketStart); err != nil {
				log.Error("aggregation failed",
					zap.Time("bucket_start", bucketStart), zap.Error(err))
				continue
			}
			if _, err := cls.ClassifyAll(); err != nil {
				log.Error("trend classification failed", zap.Error(err))
			}
		}
	}()
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
