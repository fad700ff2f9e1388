package handlers

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "vitalsight/internal/db"
)

type patientItem struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	DOB    string `json:"dob"`
	Gender string `json:"gender,omitempty"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Sex    string `json:"sex,omitempty"`
}

type readingItem struct {
	ID            uint     `json:"id"`
	PatientID     uint     `json:"patient_id"`
	BiometricType string   `json:"biometric_type"`
	Timestamp     string   `json:"timestamp"`
	Value         *float64 `json:"value"`
	Systolic      *int     `json:"systolic"`
	Diastolic     *int     `json:"diastolic"`
	Unit          string   `json:"unit"`
	IsOutlier     bool     `json:"is_outlier"`
}

type summaryItem struct {
	PatientID     uint    `json:"patient_id"`
	BiometricType string  `json:"biometric_type"`
	HourStart     string  `json:"hour_start"`
	MinValue      float64 `json:"min_value"`
	MaxValue      float64 `json:"max_value"`
	AvgValue      float64 `json:"avg_value"`
	Count         int64   `json:"count"`
}

type trendItem struct {
	PatientID     uint   `json:"patient_id"`
	BiometricType string `json:"biometric_type"`
	Trend         string `json:"trend"`
	AnalyzedAt    string `json:"analyzed_at"`
}

type rejectedItem struct {
	RunID      string         `json:"run_id"`
	Kind       string         `json:"kind"`
	Record     map[string]any `json:"record"`
	Violations []string       `json:"violations"`
	CreatedAt  string         `json:"created_at"`
}

func paged(items any, total int64, limit, offset int) map[string]any {
	return map[string]any{
		"data":   items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}
}

// ListPatients returns the registered patients, paginated.
func ListPatients(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		limit, offset := parsePage(ctx)

		var total int64
		if err := db.Model(&dbpkg.Patient{}).Count(&total).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		var patients []dbpkg.Patient
		if err := db.Order("id").Limit(limit).Offset(offset).Find(&patients).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		items := make([]patientItem, 0, len(patients))
		for _, p := range patients {
			items = append(items, patientItem{
				ID:     p.ID,
				Name:   p.Name,
				DOB:    time.Time(p.DOB).Format("2006-01-02"),
				Gender: p.Gender,
				Email:  p.Email,
				Phone:  p.Phone,
				Sex:    p.Sex,
			})
		}
		jsonResponse(ctx, paged(items, total, limit, offset))
	}
}

// PatientReadings returns one patient's readings, newest first, optionally
// filtered by biometric_type.
func PatientReadings(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, err := strconv.Atoi(ctx.UserValue("id").(string))
		if err != nil || id < 1 {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid patient id")
			return
		}
		limit, offset := parsePage(ctx)

		q := db.Model(&dbpkg.BiometricReading{}).Where("patient_id = ?", id)
		if t := string(ctx.QueryArgs().Peek("biometric_type")); t != "" {
			q = q.Where("biometric_type = ?", t)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		var readings []dbpkg.BiometricReading
		if err := q.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&readings).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		items := make([]readingItem, 0, len(readings))
		for _, r := range readings {
			items = append(items, readingItem{
				ID:            r.ID,
				PatientID:     r.PatientID,
				BiometricType: r.BiometricType,
				Timestamp:     r.Timestamp.UTC().Format(time.RFC3339),
				Value:         r.Value,
				Systolic:      r.Systolic,
				Diastolic:     r.Diastolic,
				Unit:          r.Unit,
				IsOutlier:     r.IsOutlier,
			})
		}
		jsonResponse(ctx, paged(items, total, limit, offset))
	}
}

// ListSummaries returns hourly summaries filtered by patient_id and/or
// biometric_type, newest buckets first.
func ListSummaries(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		limit, offset := parsePage(ctx)

		q := db.Model(&dbpkg.HourlySummary{})
		if v := string(ctx.QueryArgs().Peek("patient_id")); v != "" {
			q = q.Where("patient_id = ?", v)
		}
		if t := string(ctx.QueryArgs().Peek("biometric_type")); t != "" {
			q = q.Where("biometric_type = ?", t)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		var summaries []dbpkg.HourlySummary
		if err := q.Order("hour_start DESC").Limit(limit).Offset(offset).Find(&summaries).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		items := make([]summaryItem, 0, len(summaries))
		for _, s := range summaries {
			items = append(items, summaryItem{
				PatientID:     s.PatientID,
				BiometricType: s.BiometricType,
				HourStart:     s.HourStart.UTC().Format(time.RFC3339),
				MinValue:      s.MinValue,
				MaxValue:      s.MaxValue,
				AvgValue:      s.AvgValue,
				Count:         s.Count,
			})
		}
		jsonResponse(ctx, paged(items, total, limit, offset))
	}
}

// ListTrends returns the current trend classifications, optionally filtered
// by patient_id.
func ListTrends(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		limit, offset := parsePage(ctx)

		q := db.Model(&dbpkg.TrendRecord{})
		if v := string(ctx.QueryArgs().Peek("patient_id")); v != "" {
			q = q.Where("patient_id = ?", v)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		var trends []dbpkg.TrendRecord
		if err := q.Order("patient_id, biometric_type").Limit(limit).Offset(offset).Find(&trends).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		items := make([]trendItem, 0, len(trends))
		for _, t := range trends {
			items = append(items, trendItem{
				PatientID:     t.PatientID,
				BiometricType: t.BiometricType,
				Trend:         t.Trend,
				AnalyzedAt:    t.AnalyzedAt.UTC().Format(time.RFC3339),
			})
		}
		jsonResponse(ctx, paged(items, total, limit, offset))
	}
}

// ListRejected exposes the rejected side channel for inspection after a
// run, filtered by run_id and/or kind.
func ListRejected(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		limit, offset := parsePage(ctx)

		q := db.Model(&dbpkg.RejectedRecord{})
		if v := string(ctx.QueryArgs().Peek("run_id")); v != "" {
			q = q.Where("run_id = ?", v)
		}
		if v := string(ctx.QueryArgs().Peek("kind")); v != "" {
			q = q.Where("kind = ?", v)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		var rejected []dbpkg.RejectedRecord
		if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&rejected).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		items := make([]rejectedItem, 0, len(rejected))
		for _, r := range rejected {
			items = append(items, rejectedItem{
				RunID:      r.RunID,
				Kind:       r.Kind,
				Record:     r.Payload,
				Violations: []string(r.Violations),
				CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		jsonResponse(ctx, paged(items, total, limit, offset))
	}
}
