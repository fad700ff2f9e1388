package etl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalsight/internal/record"
)

func TestReadBiometricsCSV(t *testing.T) {
	input := `patient_email,biometric_type,value,unit,timestamp
ada@example.com,glucose,120,mg/dL,2024-05-01T09:10:00
ada@example.com,blood_pressure,120/80,mmHg,2024-05-01T09:40:00
`
	batch, err := readBiometricsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, record.RawBiometric{
		PatientEmail:  "ada@example.com",
		BiometricType: "glucose",
		Value:         "120",
		Unit:          "mg/dL",
		Timestamp:     "2024-05-01T09:10:00",
	}, batch[0])
	assert.Equal(t, "120/80", batch[1].Value)
}

func TestReadBiometricsCSV_ColumnsInAnyOrder(t *testing.T) {
	input := `timestamp,value,biometric_type,patient_email
2024-05-01T09:10:00,72,weight,ada@example.com
`
	batch, err := readBiometricsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "weight", batch[0].BiometricType)
	assert.Equal(t, "72", batch[0].Value)
	assert.Empty(t, batch[0].Unit)
}

func TestReadBiometricsCSV_EmptyFile(t *testing.T) {
	batch, err := readBiometricsCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestReadBiometricsJSON(t *testing.T) {
	input := `[
		{"patient_email":"ada@example.com","biometric_type":"heart_rate","value":"64","unit":"bpm","timestamp":"2024-05-01T09:10:00"}
	]`
	batch, err := readBiometricsJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "heart_rate", batch[0].BiometricType)
}

func TestReadPatientsJSON(t *testing.T) {
	input := `[
		{"name":"Ada Lovelace","dob":"1985-12-10","email":"ada@example.com","gender":"female"},
		{"name":"Alan Turing","dob":"1982-06-23","email":"alan@example.com"}
	]`
	batch, err := readPatientsJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "ada@example.com", batch[0].Email)
	assert.Equal(t, "female", batch[0].Gender)
}

func TestReadBiometrics_UnsupportedExtension(t *testing.T) {
	_, err := ReadBiometrics("batch.parquet")
	assert.Error(t, err)
}
