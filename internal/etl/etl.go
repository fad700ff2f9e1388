// Package etl runs the batch pipeline: read raw batches, validate,
// normalize, and upsert into the canonical store. Runs are idempotent:
// re-running the same input batch yields exactly the same row set.
package etl

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vitalsight/internal/metrics"
	"vitalsight/internal/normalize"
	"vitalsight/internal/record"
	"vitalsight/internal/validate"
)

// Record kinds used to partition rejected artifacts.
const (
	KindPatient   = "patient"
	KindBiometric = "biometric"
)

// Runner executes ETL runs against the store. It holds no state between
// runs; every run is identified by a fresh run ID.
type Runner struct {
	db  *gorm.DB
	log *zap.Logger

	// artifactDir is where per-run rejected files land; empty disables
	// the file side channel (the rejected_records table is always written).
	artifactDir string
}

// NewRunner returns a Runner writing rejected artifacts under artifactDir.
func NewRunner(db *gorm.DB, log *zap.Logger, artifactDir string) *Runner {
	return &Runner{db: db, log: log, artifactDir: artifactDir}
}

// RunSummary is returned to the trigger after each run so no input record
// goes unaccounted for.
type RunSummary struct {
	RunID            string `json:"run_id"`
	PatientsAccepted int    `json:"patients_accepted"`
	PatientsRejected int    `json:"patients_rejected"`
	ReadingsAccepted int    `json:"readings_accepted"`
	ReadingsRejected int    `json:"readings_rejected"`
	ReadingsWritten  int    `json:"readings_written"`
	OutliersFlagged  int    `json:"outliers_flagged"`
}

// Run executes a full ETL run over a patients batch file and a biometrics
// batch file. Either path may be empty to skip that record kind. Record
// level failures route to the rejected artifact; only infrastructure
// failures (unreadable batch, store errors) abort the run.
func (r *Runner) Run(patientsPath, biometricsPath string) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}

	if patientsPath != "" {
		batch, err := ReadPatients(patientsPath)
		if err != nil {
			return summary, err
		}
		if err := r.runPatients(&summary, batch); err != nil {
			return summary, err
		}
	}

	if biometricsPath != "" {
		batch, err := ReadBiometrics(biometricsPath)
		if err != nil {
			return summary, err
		}
		if err := r.runBiometrics(&summary, batch); err != nil {
			return summary, err
		}
	}

	r.log.Info("etl run complete",
		zap.String("run_id", summary.RunID),
		zap.Int("patients_accepted", summary.PatientsAccepted),
		zap.Int("patients_rejected", summary.PatientsRejected),
		zap.Int("readings_accepted", summary.ReadingsAccepted),
		zap.Int("readings_rejected", summary.ReadingsRejected),
		zap.Int("readings_written", summary.ReadingsWritten),
		zap.Int("outliers_flagged", summary.OutliersFlagged),
	)
	return summary, nil
}

// RunReadings pushes an in-memory biometric batch through the same
// validate → normalize → upsert path. Used by the HTTP ingest trigger.
func (r *Runner) RunReadings(batch []record.RawBiometric) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	if err := r.runBiometrics(&summary, batch); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) runPatients(summary *RunSummary, batch []record.RawPatient) error {
	accepted, rejectedRecs := validate.Patients(batch)

	rejections := make([]rejection, 0, len(rejectedRecs))
	for _, rej := range rejectedRecs {
		rejections = append(rejections, rejection{
			Record:     patientPayload(rej.Record),
			Violations: rej.Violations,
		})
	}

	normalized := make([]normalize.Patient, 0, len(accepted))
	for _, raw := range accepted {
		p, err := normalize.NormalizePatient(raw)
		if err != nil {
			// Validation guarantees parseable fields; anything that still
			// fails here is routed to rejected, never fatal.
			rejections = append(rejections, rejection{
				Record:     patientPayload(raw),
				Violations: []string{validate.TagInvalidDOBFormat},
			})
			continue
		}
		normalized = append(normalized, p)
	}

	if err := r.upsertPatients(normalized); err != nil {
		return fmt.Errorf("upsert patients: %w", err)
	}
	if err := r.persistRejections(summary.RunID, KindPatient, rejections); err != nil {
		return err
	}

	summary.PatientsAccepted += len(normalized)
	summary.PatientsRejected += len(rejections)
	metrics.RecordsAccepted.WithLabelValues(KindPatient).Add(float64(len(normalized)))
	metrics.RecordsRejected.WithLabelValues(KindPatient).Add(float64(len(rejections)))
	return nil
}

func (r *Runner) runBiometrics(summary *RunSummary, batch []record.RawBiometric) error {
	accepted, rejectedRecs := validate.Biometrics(batch)

	rejections := make([]rejection, 0, len(rejectedRecs))
	for _, rej := range rejectedRecs {
		rejections = append(rejections, rejection{
			Record:     biometricPayload(rej.Record),
			Violations: rej.Violations,
		})
	}

	pairs := make([]normPair, 0, len(accepted))
	outliers := 0
	for _, raw := range accepted {
		n, err := normalize.NormalizeReading(raw)
		if err != nil {
			rejections = append(rejections, rejection{
				Record:     biometricPayload(raw),
				Violations: []string{validate.TagInvalidValue},
			})
			continue
		}
		if n.IsOutlier {
			outliers++
		}
		pairs = append(pairs, normPair{raw: raw, norm: n})
	}

	// Resolve patient references. Unknown patients are a referential
	// violation: reported alongside validator rejections, never fatal.
	emails := make([]string, 0, len(pairs))
	for _, p := range pairs {
		emails = append(emails, p.norm.PatientEmail)
	}
	patientIDs, err := r.resolvePatients(emails)
	if err != nil {
		return fmt.Errorf("resolve patients: %w", err)
	}

	resolved, refRejections := splitResolved(pairs, patientIDs)
	rejections = append(rejections, refRejections...)
	acceptedCount := len(resolved)

	written, err := r.upsertReadings(patientIDs, resolved)
	if err != nil {
		return fmt.Errorf("upsert readings: %w", err)
	}
	if err := r.persistRejections(summary.RunID, KindBiometric, rejections); err != nil {
		return err
	}

	summary.ReadingsAccepted += acceptedCount
	summary.ReadingsRejected += len(rejections)
	summary.ReadingsWritten += written
	summary.OutliersFlagged += outliers
	metrics.RecordsAccepted.WithLabelValues(KindBiometric).Add(float64(acceptedCount))
	metrics.RecordsRejected.WithLabelValues(KindBiometric).Add(float64(len(rejections)))
	metrics.ReadingsWritten.Add(float64(written))
	metrics.OutliersFlagged.Add(float64(outliers))
	return nil
}

// normPair keeps a normalized reading next to its raw input so a
// referential rejection can report the record verbatim.
type normPair struct {
	raw  record.RawBiometric
	norm normalize.Reading
}

// splitResolved partitions normalized readings on whether their patient
// email resolved to a stored patient. Unresolved readings become
// referential-violation rejections tagged unknown_patient; the rest of the
// batch is unaffected.
func splitResolved(pairs []normPair, patientIDs map[string]uint) (resolved []normalize.Reading, rejections []rejection) {
	for _, p := range pairs {
		if _, ok := patientIDs[p.norm.PatientEmail]; !ok {
			rejections = append(rejections, rejection{
				Record:     biometricPayload(p.raw),
				Violations: []string{validate.TagUnknownPatient},
			})
			continue
		}
		resolved = append(resolved, p.norm)
	}
	return resolved, rejections
}

// artifactPath returns the per-run rejected file path, or "" when file
// artifacts are disabled.
func (r *Runner) artifactPath(runID, kind string) string {
	if r.artifactDir == "" {
		return ""
	}
	return filepath.Join(r.artifactDir, fmt.Sprintf("%s_%s.json", kind, runID))
}
