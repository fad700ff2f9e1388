package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalsight/internal/normalize"
	"vitalsight/internal/record"
	"vitalsight/internal/validate"
)

func glucoseReading(email string, ts time.Time, v float64) normalize.Reading {
	return normalize.Reading{
		PatientEmail:  email,
		BiometricType: record.MetricGlucose,
		Timestamp:     ts,
		Value:         &v,
		Unit:          "mg/dL",
	}
}

func TestDedupeReadings_LastOccurrenceWins(t *testing.T) {
	// Two readings with the same (patient, type, timestamp) identity must
	// collapse to one row carrying the later value, matching the
	// last-write-wins semantics of the conflict clause. Without the
	// collapse, rerunning or replaying a batch could change the row set.
	ts := time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC)
	ids := map[string]uint{"ada@example.com": 1}

	rows := dedupeReadings([]normalize.Reading{
		glucoseReading("ada@example.com", ts, 120),
		glucoseReading("ada@example.com", ts, 130),
	}, ids)

	require.Len(t, rows, 1)
	assert.Equal(t, uint(1), rows[0].PatientID)
	require.NotNil(t, rows[0].Value)
	assert.Equal(t, 130.0, *rows[0].Value)
}

func TestDedupeReadings_DistinctIdentitiesKept(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC)
	ids := map[string]uint{"ada@example.com": 1, "alan@example.com": 2}

	rows := dedupeReadings([]normalize.Reading{
		glucoseReading("ada@example.com", ts, 120),
		glucoseReading("ada@example.com", ts.Add(time.Second), 121),
		glucoseReading("alan@example.com", ts, 95),
	}, ids)

	assert.Len(t, rows, 3)
}

func TestDedupeReadings_SameInstantDifferentMetricsKept(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC)
	ids := map[string]uint{"ada@example.com": 1}
	weight := glucoseReading("ada@example.com", ts, 72)
	weight.BiometricType = record.MetricWeight

	rows := dedupeReadings([]normalize.Reading{
		glucoseReading("ada@example.com", ts, 120),
		weight,
	}, ids)

	assert.Len(t, rows, 2)
}

func TestDedupePatients_LastOccurrenceWins(t *testing.T) {
	dob := time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC)

	rows := dedupePatients([]normalize.Patient{
		{Name: "Ada L.", DOB: dob, Email: "ada@example.com"},
		{Name: "Ada Lovelace", DOB: dob, Email: "ada@example.com"},
		{Name: "Alan Turing", DOB: dob, Email: "alan@example.com"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "Ada Lovelace", rows[0].Name)
	assert.Equal(t, "ada@example.com", rows[0].Email)
	assert.Equal(t, "Alan Turing", rows[1].Name)
}

func TestSplitResolved_UnknownPatientRejectedBatchMatesKept(t *testing.T) {
	// A reading referencing a patient the store does not know is a
	// referential violation: it joins the rejected stream tagged
	// unknown_patient while the rest of the batch proceeds to the writer.
	ts := time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC)
	ids := map[string]uint{"ada@example.com": 1}

	known := normPair{
		raw:  record.RawBiometric{PatientEmail: "ada@example.com", BiometricType: record.MetricGlucose, Value: "120", Timestamp: "2024-05-01T09:10:00"},
		norm: glucoseReading("ada@example.com", ts, 120),
	}
	unknown := normPair{
		raw:  record.RawBiometric{PatientEmail: "ghost@example.com", BiometricType: record.MetricGlucose, Value: "110", Timestamp: "2024-05-01T09:10:00"},
		norm: glucoseReading("ghost@example.com", ts, 110),
	}

	resolved, rejections := splitResolved([]normPair{known, unknown}, ids)

	require.Len(t, resolved, 1)
	assert.Equal(t, "ada@example.com", resolved[0].PatientEmail)

	require.Len(t, rejections, 1)
	assert.Equal(t, []string{validate.TagUnknownPatient}, rejections[0].Violations)
	assert.Equal(t, "ghost@example.com", rejections[0].Record["patient_email"])
}

func TestSplitResolved_AllKnownRejectsNothing(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC)
	ids := map[string]uint{"ada@example.com": 1}

	resolved, rejections := splitResolved([]normPair{{
		raw:  record.RawBiometric{PatientEmail: "ada@example.com"},
		norm: glucoseReading("ada@example.com", ts, 120),
	}}, ids)

	assert.Len(t, resolved, 1)
	assert.Empty(t, rejections)
}
