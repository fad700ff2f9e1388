package etl

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	dbpkg "vitalsight/internal/db"
	"vitalsight/internal/record"
)

// rejection is one rejected input record with the constraint tags it
// violated, as written to both the rejected_records table and the per-run
// artifact file.
type rejection struct {
	Record     map[string]any `json:"record"`
	Violations []string       `json:"violations"`
}

func patientPayload(p record.RawPatient) map[string]any {
	return map[string]any{
		"name":    p.Name,
		"dob":     p.DOB,
		"gender":  p.Gender,
		"address": p.Address,
		"email":   p.Email,
		"phone":   p.Phone,
		"sex":     p.Sex,
	}
}

func biometricPayload(b record.RawBiometric) map[string]any {
	return map[string]any{
		"patient_email":  b.PatientEmail,
		"biometric_type": b.BiometricType,
		"value":          b.Value,
		"unit":           b.Unit,
		"timestamp":      b.Timestamp,
	}
}

// persistRejections stores the rejected side channel for one record kind of
// one run: rows in rejected_records plus, when an artifact dir is
// configured, a JSON file named <kind>_<run_id>.json.
func (r *Runner) persistRejections(runID, kind string, rejections []rejection) error {
	if len(rejections) == 0 {
		return nil
	}

	rows := make([]dbpkg.RejectedRecord, 0, len(rejections))
	for _, rej := range rejections {
		rows = append(rows, dbpkg.RejectedRecord{
			RunID:      runID,
			Kind:       kind,
			Payload:    datatypes.JSONMap(rej.Record),
			Violations: datatypes.NewJSONSlice(rej.Violations),
		})
	}
	if err := r.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("persist rejected records: %w", err)
	}

	path := r.artifactPath(runID, kind)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(r.artifactDir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	body, err := json.MarshalIndent(rejections, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rejected artifact: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write rejected artifact: %w", err)
	}

	r.log.Warn("rejected records written",
		zap.String("run_id", runID),
		zap.String("kind", kind),
		zap.Int("count", len(rejections)),
		zap.String("artifact", path),
	)
	return nil
}
