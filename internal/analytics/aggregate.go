// Package analytics holds the two derived-data stages: the hourly
// aggregator and the trend classifier. Both read committed pipeline output
// and write exclusively to their own table, so they are safe to run
// concurrently with the ETL stage.
package analytics

import (
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "vitalsight/internal/db"
	"vitalsight/internal/metrics"
	"vitalsight/internal/record"
)

// Aggregator computes hourly min/max/avg/count summaries per
// (patient, metric series).
type Aggregator struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAggregator returns an Aggregator over the given store.
func NewAggregator(db *gorm.DB, log *zap.Logger) *Aggregator {
	return &Aggregator{db: db, log: log}
}

// AggregateSummary is the run summary returned to the trigger.
type AggregateSummary struct {
	ReadingsScanned int `json:"readings_scanned"`
	BucketsUpserted int `json:"buckets_upserted"`
}

// AggregateHour aggregates the single hour bucket starting at hourStart.
func (a *Aggregator) AggregateHour(hourStart time.Time) (AggregateSummary, error) {
	hourStart = hourStart.UTC().Truncate(time.Hour)
	return a.AggregateWindow(hourStart, hourStart.Add(time.Hour))
}

// AggregateWindow scans readings with timestamps in [start, end) — a
// reading exactly at an hour boundary belongs to the bucket it opens —
// groups them by (patient, series, hour) and upserts one summary row per
// group. Reprocessing a window overwrites rather than double-counts;
// windows with no readings write nothing.
func (a *Aggregator) AggregateWindow(start, end time.Time) (AggregateSummary, error) {
	var summary AggregateSummary

	var readings []dbpkg.BiometricReading
	err := a.db.
		Where("timestamp >= ? AND timestamp < ?", start.UTC(), end.UTC()).
		Select("patient_id", "biometric_type", "timestamp", "value", "systolic", "diastolic").
		Find(&readings).Error
	if err != nil {
		return summary, err
	}
	summary.ReadingsScanned = len(readings)

	rows := buildSummaries(readings)
	if len(rows) == 0 {
		return summary, nil
	}

	err = a.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "patient_id"}, {Name: "biometric_type"}, {Name: "hour_start"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_value", "max_value", "avg_value", "count",
		}),
	}).Create(&rows).Error
	if err != nil {
		return summary, err
	}

	summary.BucketsUpserted = len(rows)
	metrics.SummaryBucketsUpserted.Add(float64(len(rows)))
	a.log.Info("hourly aggregation complete",
		zap.Time("window_start", start),
		zap.Time("window_end", end),
		zap.Int("readings_scanned", summary.ReadingsScanned),
		zap.Int("buckets_upserted", summary.BucketsUpserted),
	)
	return summary, nil
}

type bucketKey struct {
	patientID uint
	series    string
	hourStart time.Time
}

type bucketStats struct {
	min   float64
	max   float64
	sum   float64
	count int64
}

// buildSummaries groups readings into hour buckets. Blood-pressure
// readings contribute to two independent series, systolic and diastolic;
// scalar readings contribute their value to the metric's own series.
func buildSummaries(readings []dbpkg.BiometricReading) []dbpkg.HourlySummary {
	buckets := make(map[bucketKey]*bucketStats)

	add := func(patientID uint, series string, hour time.Time, v float64) {
		k := bucketKey{patientID, series, hour}
		s, ok := buckets[k]
		if !ok {
			buckets[k] = &bucketStats{min: v, max: v, sum: v, count: 1}
			return
		}
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
		s.sum += v
		s.count++
	}

	for _, r := range readings {
		hour := r.Timestamp.UTC().Truncate(time.Hour)
		if r.BiometricType == record.MetricBloodPressure {
			if r.Systolic != nil {
				add(r.PatientID, record.SeriesBPSystolic, hour, float64(*r.Systolic))
			}
			if r.Diastolic != nil {
				add(r.PatientID, record.SeriesBPDiastolic, hour, float64(*r.Diastolic))
			}
			continue
		}
		if r.Value != nil {
			add(r.PatientID, r.BiometricType, hour, *r.Value)
		}
	}

	rows := make([]dbpkg.HourlySummary, 0, len(buckets))
	for k, s := range buckets {
		rows = append(rows, dbpkg.HourlySummary{
			PatientID:     k.patientID,
			BiometricType: k.series,
			HourStart:     k.hourStart,
			MinValue:      s.min,
			MaxValue:      s.max,
			AvgValue:      round2(s.sum / float64(s.count)),
			Count:         s.count,
		})
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
