// Package validate applies the declarative per-kind constraint sets to raw
// input batches and partitions them into accepted and rejected streams.
// A bad record never aborts a batch; it degrades to the rejected set with
// the tags of every constraint it violated.
package validate

import (
	"regexp"
	"strings"
	"time"

	"vitalsight/internal/record"
)

// Violation tags attached to rejected records.
const (
	TagMissingName         = "missing_name"
	TagMissingDOB          = "missing_dob"
	TagInvalidDOBFormat    = "invalid_dob_format"
	TagMissingEmail        = "missing_email"
	TagInvalidEmailFormat  = "invalid_email_format"
	TagMissingPatientEmail = "missing_patient_email"
	TagUnknownMetricType   = "unknown_metric_type"
	TagMissingTimestamp    = "missing_timestamp"
	TagInvalidTimestamp    = "invalid_timestamp"
	TagMissingValue        = "missing_value"
	TagInvalidValue        = "invalid_value"

	// TagUnknownPatient is attached by the upsert writer when a reading
	// references a patient the store does not know.
	TagUnknownPatient = "unknown_patient"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// DOBLayout is the required date-of-birth format.
const DOBLayout = "2006-01-02"

// RejectedPatient pairs a failed patient record with its violation tags.
type RejectedPatient struct {
	Record     record.RawPatient
	Violations []string
}

// RejectedBiometric pairs a failed biometric record with its violation tags.
type RejectedBiometric struct {
	Record     record.RawBiometric
	Violations []string
}

type patientCheck struct {
	tag string
	ok  func(record.RawPatient) bool
}

type biometricCheck struct {
	tag string
	ok  func(record.RawBiometric) bool
}

// The constraint tables. Each check is independent; a record collects every
// tag it violates rather than failing fast on the first one.
var patientChecks = []patientCheck{
	{TagMissingName, func(p record.RawPatient) bool {
		return strings.TrimSpace(p.Name) != ""
	}},
	{TagMissingDOB, func(p record.RawPatient) bool {
		return strings.TrimSpace(p.DOB) != ""
	}},
	{TagInvalidDOBFormat, func(p record.RawPatient) bool {
		dob := strings.TrimSpace(p.DOB)
		if dob == "" {
			return true // covered by missing_dob
		}
		_, err := time.Parse(DOBLayout, dob)
		return err == nil
	}},
	{TagMissingEmail, func(p record.RawPatient) bool {
		return strings.TrimSpace(p.Email) != ""
	}},
	{TagInvalidEmailFormat, func(p record.RawPatient) bool {
		email := strings.TrimSpace(p.Email)
		if email == "" {
			return true // covered by missing_email
		}
		return emailPattern.MatchString(email)
	}},
}

var biometricChecks = []biometricCheck{
	{TagMissingPatientEmail, func(b record.RawBiometric) bool {
		return strings.TrimSpace(b.PatientEmail) != ""
	}},
	{TagUnknownMetricType, func(b record.RawBiometric) bool {
		return record.KnownMetric(strings.TrimSpace(b.BiometricType))
	}},
	{TagMissingTimestamp, func(b record.RawBiometric) bool {
		return strings.TrimSpace(b.Timestamp) != ""
	}},
	{TagInvalidTimestamp, func(b record.RawBiometric) bool {
		ts := strings.TrimSpace(b.Timestamp)
		if ts == "" {
			return true // covered by missing_timestamp
		}
		_, err := record.ParseTimestamp(ts)
		return err == nil
	}},
	{TagMissingValue, func(b record.RawBiometric) bool {
		return strings.TrimSpace(b.Value) != ""
	}},
	{TagInvalidValue, func(b record.RawBiometric) bool {
		v := strings.TrimSpace(b.Value)
		if v == "" {
			return true // covered by missing_value
		}
		if strings.TrimSpace(b.BiometricType) == record.MetricBloodPressure {
			_, _, err := record.ParseBloodPressure(v)
			return err == nil
		}
		_, err := record.ParseScalar(v)
		return err == nil
	}},
}

// Patients partitions a patient batch into accepted records and rejected
// records tagged with their violations.
func Patients(batch []record.RawPatient) (accepted []record.RawPatient, rejected []RejectedPatient) {
	for _, p := range batch {
		var tags []string
		for _, c := range patientChecks {
			if !c.ok(p) {
				tags = append(tags, c.tag)
			}
		}
		if len(tags) > 0 {
			rejected = append(rejected, RejectedPatient{Record: p, Violations: tags})
			continue
		}
		accepted = append(accepted, p)
	}
	return accepted, rejected
}

// Biometrics partitions a biometric batch. Out-of-range values are not a
// constraint violation here; they pass validation and are flagged as
// outliers during normalization.
func Biometrics(batch []record.RawBiometric) (accepted []record.RawBiometric, rejected []RejectedBiometric) {
	for _, b := range batch {
		var tags []string
		for _, c := range biometricChecks {
			if !c.ok(b) {
				tags = append(tags, c.tag)
			}
		}
		if len(tags) > 0 {
			rejected = append(rejected, RejectedBiometric{Record: b, Violations: tags})
			continue
		}
		accepted = append(accepted, b)
	}
	return accepted, rejected
}
