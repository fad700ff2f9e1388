// Package record defines the raw batch record shapes and the shared
// biometric vocabulary (metric types, plausible ranges, timestamp and
// value parsing) used by the validation and normalization stages.
package record

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Enumerated metric types accepted by the pipeline.
const (
	MetricGlucose       = "glucose"
	MetricWeight        = "weight"
	MetricBloodPressure = "blood_pressure"
	MetricHeartRate     = "heart_rate"
)

// Summary series names for compound blood-pressure readings. The
// aggregator tracks systolic and diastolic as independent series.
const (
	SeriesBPSystolic  = "blood_pressure_systolic"
	SeriesBPDiastolic = "blood_pressure_diastolic"
)

// RawPatient is one patient row as it arrives in an input batch,
// all fields still untyped strings.
type RawPatient struct {
	Name    string `json:"name"`
	DOB     string `json:"dob"`
	Gender  string `json:"gender"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Sex     string `json:"sex"`
}

// RawBiometric is one biometric row as it arrives in an input batch.
// Value stays a string so compound blood-pressure values like "120/80"
// survive until normalization.
type RawBiometric struct {
	PatientEmail  string `json:"patient_email"`
	BiometricType string `json:"biometric_type"`
	Value         string `json:"value"`
	Unit          string `json:"unit"`
	Timestamp     string `json:"timestamp"`
}

// KnownMetric reports whether t is one of the enumerated metric types.
func KnownMetric(t string) bool {
	switch t {
	case MetricGlucose, MetricWeight, MetricBloodPressure, MetricHeartRate:
		return true
	}
	return false
}

// Range is an inclusive medically plausible value range. Values outside
// it are flagged as outliers, never rejected.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// PlausibleRanges maps scalar metric types to their plausible value range.
var PlausibleRanges = map[string]Range{
	MetricGlucose:   {Min: 70, Max: 200},
	MetricWeight:    {Min: 30, Max: 300},
	MetricHeartRate: {Min: 40, Max: 180},
}

// Blood-pressure plausibility is checked per component.
var (
	SystolicRange  = Range{Min: 90, Max: 180}
	DiastolicRange = Range{Min: 60, Max: 120}
)

// Timestamp layouts accepted on input. The canonical stored form is UTC
// truncated to the second; date-only strings are not accepted.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

var errBadTimestamp = errors.New("timestamp is not a full ISO 8601 date-time")

// ParseTimestamp parses an input timestamp. Date-only or otherwise
// malformed strings return an error.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadTimestamp
}

// ParseBloodPressure splits a compound "SYS/DIA" value into its integer
// components.
func ParseBloodPressure(s string) (systolic, diastolic int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return 0, 0, errors.New(`blood pressure value must be "systolic/diastolic"`)
	}
	systolic, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, errors.New("systolic component is not an integer")
	}
	diastolic, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, errors.New("diastolic component is not an integer")
	}
	return systolic, diastolic, nil
}

// ParseScalar parses a scalar metric value.
func ParseScalar(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
