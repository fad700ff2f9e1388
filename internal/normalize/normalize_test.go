package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalsight/internal/record"
)

func TestNormalizeReading_ScalarCanonicalForm(t *testing.T) {
	r, err := NormalizeReading(record.RawBiometric{
		PatientEmail:  "Ada@Example.com",
		BiometricType: record.MetricGlucose,
		Value:         "120.5",
		Unit:          "mg/dl",
		Timestamp:     "2024-05-01T09:10:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", r.PatientEmail)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC), r.Timestamp)
	assert.Equal(t, "mg/dL", r.Unit)
	require.NotNil(t, r.Value)
	assert.Equal(t, 120.5, *r.Value)
	assert.Nil(t, r.Systolic)
	assert.Nil(t, r.Diastolic)
	assert.False(t, r.IsOutlier)
}

func TestNormalizeReading_Deterministic(t *testing.T) {
	raw := record.RawBiometric{
		PatientEmail:  "ada@example.com",
		BiometricType: record.MetricWeight,
		Value:         "72",
		Unit:          "kgs",
		Timestamp:     "2024-05-01T09:10:00Z",
	}
	a, err := NormalizeReading(raw)
	require.NoError(t, err)
	b, err := NormalizeReading(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeReading_BloodPressureSplit(t *testing.T) {
	r, err := NormalizeReading(record.RawBiometric{
		PatientEmail:  "ada@example.com",
		BiometricType: record.MetricBloodPressure,
		Value:         "120/80",
		Unit:          "mmhg",
		Timestamp:     "2024-05-01T09:10:00",
	})
	require.NoError(t, err)

	assert.Nil(t, r.Value)
	require.NotNil(t, r.Systolic)
	require.NotNil(t, r.Diastolic)
	assert.Equal(t, 120, *r.Systolic)
	assert.Equal(t, 80, *r.Diastolic)
	assert.Equal(t, "mmHg", r.Unit)
	assert.False(t, r.IsOutlier)
}

func TestNormalizeReading_ImplausibleGlucoseFlaggedNotDropped(t *testing.T) {
	r, err := NormalizeReading(record.RawBiometric{
		PatientEmail:  "ada@example.com",
		BiometricType: record.MetricGlucose,
		Value:         "500",
		Timestamp:     "2024-05-01T09:10:00",
	})
	require.NoError(t, err)
	assert.True(t, r.IsOutlier)
	require.NotNil(t, r.Value)
	assert.Equal(t, 500.0, *r.Value)
}

func TestNormalizeReading_ImplausibleBloodPressureFlagged(t *testing.T) {
	r, err := NormalizeReading(record.RawBiometric{
		PatientEmail:  "ada@example.com",
		BiometricType: record.MetricBloodPressure,
		Value:         "200/130",
		Timestamp:     "2024-05-01T09:10:00",
	})
	require.NoError(t, err)
	assert.True(t, r.IsOutlier)
}

func TestNormalizeReading_TimezoneFoldedToUTC(t *testing.T) {
	r, err := NormalizeReading(record.RawBiometric{
		PatientEmail:  "ada@example.com",
		BiometricType: record.MetricHeartRate,
		Value:         "64",
		Timestamp:     "2024-05-01T11:10:00+02:00",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC), r.Timestamp)
}

func TestNormalizeUnit_DefaultsWhenMissingOrUnknown(t *testing.T) {
	assert.Equal(t, "mg/dL", NormalizeUnit(record.MetricGlucose, ""))
	assert.Equal(t, "kg", NormalizeUnit(record.MetricWeight, "stone"))
	assert.Equal(t, "bpm", NormalizeUnit(record.MetricHeartRate, "BPM"))
}

func TestNormalizePatient(t *testing.T) {
	p, err := NormalizePatient(record.RawPatient{
		Name:  "  Ada Lovelace ",
		DOB:   "1985-12-10",
		Email: "Ada@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC), p.DOB)
}
