// Package normalize canonicalizes accepted records before persistence.
// Every function here is pure and deterministic: the same input always
// yields the same normalized output, which is what lets the ETL stage be
// rerun without drift.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"vitalsight/internal/record"
)

// Reading is a canonicalized biometric measurement, still keyed by patient
// email; the upsert writer resolves the email to a stored patient.
type Reading struct {
	PatientEmail  string
	BiometricType string
	Timestamp     time.Time // UTC, truncated to the second

	// Scalar metrics set Value; blood pressure sets Systolic/Diastolic.
	// The unused side stays nil as the explicit absence marker.
	Value     *float64
	Systolic  *int
	Diastolic *int

	Unit      string
	IsOutlier bool
}

// Patient is a canonicalized patient record.
type Patient struct {
	Name    string
	DOB     time.Time
	Gender  string
	Address string
	Email   string
	Phone   string
	Sex     string
}

// Canonical unit per metric type, applied when the input omits the unit.
var defaultUnits = map[string]string{
	record.MetricGlucose:       "mg/dL",
	record.MetricWeight:        "kg",
	record.MetricBloodPressure: "mmHg",
	record.MetricHeartRate:     "bpm",
}

// Unit synonyms folded into the fixed vocabulary, keyed lowercase.
var unitSynonyms = map[string]string{
	"mg/dl":        "mg/dL",
	"mgdl":         "mg/dL",
	"kg":           "kg",
	"kgs":          "kg",
	"kilograms":    "kg",
	"mmhg":         "mmHg",
	"mm hg":        "mmHg",
	"bpm":          "bpm",
	"beats/min":    "bpm",
	"beats/minute": "bpm",
}

// NormalizeReading canonicalizes a validated biometric record: timestamp to
// UTC second precision, unit to the fixed vocabulary, compound values split
// into systolic/diastolic. Values outside the plausible range for the metric
// come back with IsOutlier set.
func NormalizeReading(raw record.RawBiometric) (Reading, error) {
	metricType := strings.TrimSpace(raw.BiometricType)

	ts, err := record.ParseTimestamp(raw.Timestamp)
	if err != nil {
		return Reading{}, fmt.Errorf("normalize timestamp: %w", err)
	}

	r := Reading{
		PatientEmail:  strings.ToLower(strings.TrimSpace(raw.PatientEmail)),
		BiometricType: metricType,
		Timestamp:     ts.UTC().Truncate(time.Second),
		Unit:          NormalizeUnit(metricType, raw.Unit),
	}

	if metricType == record.MetricBloodPressure {
		systolic, diastolic, err := record.ParseBloodPressure(raw.Value)
		if err != nil {
			return Reading{}, fmt.Errorf("normalize blood pressure: %w", err)
		}
		r.Systolic = &systolic
		r.Diastolic = &diastolic
		r.IsOutlier = !record.SystolicRange.Contains(float64(systolic)) ||
			!record.DiastolicRange.Contains(float64(diastolic))
		return r, nil
	}

	v, err := record.ParseScalar(raw.Value)
	if err != nil {
		return Reading{}, fmt.Errorf("normalize value: %w", err)
	}
	r.Value = &v
	if pr, ok := record.PlausibleRanges[metricType]; ok {
		r.IsOutlier = !pr.Contains(v)
	}
	return r, nil
}

// NormalizePatient canonicalizes a validated patient record.
func NormalizePatient(raw record.RawPatient) (Patient, error) {
	dob, err := time.Parse("2006-01-02", strings.TrimSpace(raw.DOB))
	if err != nil {
		return Patient{}, fmt.Errorf("normalize dob: %w", err)
	}
	return Patient{
		Name:    strings.TrimSpace(raw.Name),
		DOB:     dob,
		Gender:  strings.TrimSpace(raw.Gender),
		Address: strings.TrimSpace(raw.Address),
		Email:   strings.ToLower(strings.TrimSpace(raw.Email)),
		Phone:   strings.TrimSpace(raw.Phone),
		Sex:     strings.TrimSpace(raw.Sex),
	}, nil
}

// NormalizeUnit folds a unit string into the canonical vocabulary, falling
// back to the metric's default unit when the input is empty or unknown.
func NormalizeUnit(metricType, unit string) string {
	if canon, ok := unitSynonyms[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return canon
	}
	return defaultUnits[metricType]
}
