package db

import (
	"time"

	"gorm.io/datatypes"
)

// Patient is an identity record owned by the external registration path.
// The pipeline upserts demographic fields keyed on the unique email but
// never deletes patients.
type Patient struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	Name    string `gorm:"not null"`
	DOB     datatypes.Date
	Gender  string
	Address string
	Email   string `gorm:"uniqueIndex;not null"`
	Phone   string
	Sex     string
}

// BiometricReading is one raw measurement. A reading at the same instant
// for the same patient and metric is an update, never a new row; the
// composite unique index is what makes the upsert writer idempotent.
type BiometricReading struct {
	ID uint `gorm:"primaryKey"`

	PatientID     uint      `gorm:"uniqueIndex:idx_reading_identity,priority:1;not null"`
	BiometricType string    `gorm:"uniqueIndex:idx_reading_identity,priority:2;not null"`
	Timestamp     time.Time `gorm:"uniqueIndex:idx_reading_identity,priority:3;not null"` // UTC, second precision

	// Value is set for scalar metrics; Systolic/Diastolic for compound
	// blood-pressure readings. The unused side is NULL.
	Value     *float64
	Systolic  *int
	Diastolic *int

	Unit string

	// IsOutlier marks values outside the plausible range for the metric.
	// Outliers are stored, not rejected.
	IsOutlier bool `gorm:"not null;default:false"`
}

func (BiometricReading) TableName() string { return "biometric_readings" }

// HourlySummary holds per-hour statistics per (patient, metric series).
// Recomputed in full whenever the aggregator reruns over a bucket.
type HourlySummary struct {
	ID uint `gorm:"primaryKey"`

	PatientID     uint      `gorm:"uniqueIndex:idx_hourly_summary_bucket,priority:1;not null"`
	BiometricType string    `gorm:"uniqueIndex:idx_hourly_summary_bucket,priority:2;not null"`
	HourStart     time.Time `gorm:"uniqueIndex:idx_hourly_summary_bucket,priority:3;not null"` // start of the hour (UTC)

	MinValue float64 `gorm:"not null"`
	MaxValue float64 `gorm:"not null"`
	AvgValue float64 `gorm:"not null"` // rounded to 2 decimals
	Count    int64   `gorm:"not null"`
}

func (HourlySummary) TableName() string { return "patient_biometric_hourly_summary" }

// TrendRecord is the current trend classification per (patient, metric
// series). Each classifier run overwrites the prior value; trend state is
// always "as of last run".
type TrendRecord struct {
	ID uint `gorm:"primaryKey"`

	PatientID     uint   `gorm:"uniqueIndex:idx_trend_identity,priority:1;not null"`
	BiometricType string `gorm:"uniqueIndex:idx_trend_identity,priority:2;not null"`

	Trend      string    `gorm:"not null"`
	AnalyzedAt time.Time `gorm:"not null"`
}

func (TrendRecord) TableName() string { return "biometric_trends" }

// RejectedRecord is the persisted side channel for records that failed
// validation or referenced an unknown patient. Payload keeps the original
// record verbatim so every input row stays accountable after a run.
type RejectedRecord struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	RunID string `gorm:"index;not null"`
	Kind  string `gorm:"index;not null"` // "patient" or "biometric"

	Payload    datatypes.JSONMap           `gorm:"type:json"`
	Violations datatypes.JSONSlice[string] `gorm:"type:json"`
}
