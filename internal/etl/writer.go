package etl

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	dbpkg "vitalsight/internal/db"
	"vitalsight/internal/normalize"
)

// dedupePatients maps normalized patients to store rows, collapsing
// duplicate emails inside one batch to the last occurrence so a single
// upsert statement never touches the same row twice.
func dedupePatients(patients []normalize.Patient) []dbpkg.Patient {
	byEmail := make(map[string]int, len(patients))
	rows := make([]dbpkg.Patient, 0, len(patients))
	for _, p := range patients {
		row := dbpkg.Patient{
			Name:    p.Name,
			DOB:     datatypes.Date(p.DOB),
			Gender:  p.Gender,
			Address: p.Address,
			Email:   p.Email,
			Phone:   p.Phone,
			Sex:     p.Sex,
		}
		if i, ok := byEmail[p.Email]; ok {
			rows[i] = row
			continue
		}
		byEmail[p.Email] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// upsertPatients writes patients keyed on the unique email. Existing rows
// have their demographic fields overwritten (last-write-wins).
func (r *Runner) upsertPatients(patients []normalize.Patient) error {
	if len(patients) == 0 {
		return nil
	}
	rows := dedupePatients(patients)

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "dob", "gender", "address", "phone", "sex",
		}),
	}).Create(&rows).Error
}

// resolvePatients maps patient emails to stored patient IDs. Emails absent
// from the result are referential violations.
func (r *Runner) resolvePatients(emails []string) (map[string]uint, error) {
	ids := make(map[string]uint, len(emails))
	if len(emails) == 0 {
		return ids, nil
	}

	var patients []dbpkg.Patient
	if err := r.db.Select("id", "email").Where("email IN ?", emails).Find(&patients).Error; err != nil {
		return nil, err
	}
	for _, p := range patients {
		ids[p.Email] = p.ID
	}
	return ids, nil
}

// readingIdentity is the natural key of a biometric reading.
type readingIdentity struct {
	PatientID     uint
	BiometricType string
	Timestamp     time.Time
}

// dedupeReadings maps normalized readings to store rows, collapsing
// duplicate natural keys inside one batch to the last occurrence
// (last-write-wins, matching the conflict clause). Without the collapse a
// batch carrying the same (patient, type, timestamp) twice would make the
// upsert statement touch one row twice, which Postgres rejects.
func dedupeReadings(readings []normalize.Reading, patientIDs map[string]uint) []dbpkg.BiometricReading {
	byIdentity := make(map[readingIdentity]int, len(readings))
	rows := make([]dbpkg.BiometricReading, 0, len(readings))
	for _, n := range readings {
		row := dbpkg.BiometricReading{
			PatientID:     patientIDs[n.PatientEmail],
			BiometricType: n.BiometricType,
			Timestamp:     n.Timestamp,
			Value:         n.Value,
			Systolic:      n.Systolic,
			Diastolic:     n.Diastolic,
			Unit:          n.Unit,
			IsOutlier:     n.IsOutlier,
		}
		id := readingIdentity{row.PatientID, row.BiometricType, row.Timestamp}
		if i, ok := byIdentity[id]; ok {
			rows[i] = row
			continue
		}
		byIdentity[id] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// upsertReadings writes normalized readings keyed on (patient, metric type,
// timestamp). A conflicting row has its non-key fields overwritten, which is
// what makes whole-batch retries safe without cleanup.
func (r *Runner) upsertReadings(patientIDs map[string]uint, readings []normalize.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}
	rows := dedupeReadings(readings, patientIDs)

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "patient_id"}, {Name: "biometric_type"}, {Name: "timestamp"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"value", "systolic", "diastolic", "unit", "is_outlier",
		}),
	}).Create(&rows).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
