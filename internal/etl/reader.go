package etl

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"vitalsight/internal/record"
)

// ReadPatients loads a patient batch from a JSON array file.
func ReadPatients(path string) ([]record.RawPatient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patients batch: %w", err)
	}
	defer f.Close()
	return readPatientsJSON(f)
}

// ReadBiometrics loads a biometric batch, dispatching on the file
// extension: .csv, .json, or .xlsx (clinics commonly upload spreadsheets).
func ReadBiometrics(path string) ([]record.RawBiometric, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open biometrics batch: %w", err)
		}
		defer f.Close()
		return readBiometricsCSV(f)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open biometrics batch: %w", err)
		}
		defer f.Close()
		return readBiometricsJSON(f)
	case ".xlsx":
		return readBiometricsXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported biometrics batch format %q", filepath.Ext(path))
	}
}

func readPatientsJSON(r io.Reader) ([]record.RawPatient, error) {
	var batch []record.RawPatient
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode patients batch: %w", err)
	}
	return batch, nil
}

func readBiometricsJSON(r io.Reader) ([]record.RawBiometric, error) {
	var batch []record.RawBiometric
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode biometrics batch: %w", err)
	}
	return batch, nil
}

func readBiometricsCSV(r io.Reader) ([]record.RawBiometric, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read biometrics header: %w", err)
	}
	cols := columnIndex(header)

	var batch []record.RawBiometric
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read biometrics row: %w", err)
		}
		batch = append(batch, rowToBiometric(cols, row))
	}
	return batch, nil
}

func readBiometricsXLSX(path string) ([]record.RawBiometric, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open biometrics workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read biometrics sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := columnIndex(rows[0])
	var batch []record.RawBiometric
	for _, row := range rows[1:] {
		batch = append(batch, rowToBiometric(cols, row))
	}
	return batch, nil
}

// columnIndex maps lowercased header names to their column positions so
// batches can carry columns in any order.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func rowToBiometric(cols map[string]int, row []string) record.RawBiometric {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return record.RawBiometric{
		PatientEmail:  cell("patient_email"),
		BiometricType: cell("biometric_type"),
		Value:         cell("value"),
		Unit:          cell("unit"),
		Timestamp:     cell("timestamp"),
	}
}
