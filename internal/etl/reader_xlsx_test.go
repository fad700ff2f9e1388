package etl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "biometrics.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadBiometricsXLSX(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"patient_email", "biometric_type", "value", "unit", "timestamp"},
		{"ada@example.com", "glucose", "120", "mg/dL", "2024-05-01T09:10:00"},
		{"ada@example.com", "blood_pressure", "120/80", "mmHg", "2024-05-01T09:40:00"},
	})

	batch, err := ReadBiometrics(path)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, "glucose", batch[0].BiometricType)
	assert.Equal(t, "120", batch[0].Value)
	assert.Equal(t, "120/80", batch[1].Value)
	assert.Equal(t, "2024-05-01T09:40:00", batch[1].Timestamp)
}

func TestReadBiometricsXLSX_HeaderOnly(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"patient_email", "biometric_type", "value", "unit", "timestamp"},
	})

	batch, err := ReadBiometrics(path)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
