package analytics

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "vitalsight/internal/db"
	"vitalsight/internal/metrics"
	"vitalsight/internal/record"
)

// Trend categories. insufficient_data is a legitimate terminal
// classification, not an error.
const (
	TrendIncreasing   = "increasing"
	TrendDecreasing   = "decreasing"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
)

// defaultThresholds are the per-series stability bands: a normalized slope
// within ±threshold classifies as stable. Weight moves slowly, so its band
// is the tightest.
var defaultThresholds = map[string]float64{
	record.MetricGlucose:     0.10,
	record.MetricWeight:      0.03,
	record.SeriesBPSystolic:  0.07,
	record.SeriesBPDiastolic: 0.07,
	record.MetricHeartRate:   0.10,
}

const fallbackThreshold = 0.10

// Classifier derives one categorical trend per (patient, metric series)
// from the most recent hourly summaries.
type Classifier struct {
	db  *gorm.DB
	log *zap.Logger

	// window is the number of most recent hourly buckets considered;
	// minPoints is the minimum required before a directional trend is
	// computed.
	window     int
	minPoints  int
	thresholds map[string]float64

	now func() time.Time
}

// NewClassifier returns a Classifier looking at the last window buckets and
// requiring at least minPoints of them.
func NewClassifier(db *gorm.DB, log *zap.Logger, window, minPoints int) *Classifier {
	if window < 2 {
		window = 2
	}
	if minPoints < 2 {
		minPoints = 2
	}
	return &Classifier{
		db:         db,
		log:        log,
		window:     window,
		minPoints:  minPoints,
		thresholds: defaultThresholds,
		now:        time.Now,
	}
}

// TrendSummary is the run summary returned to the trigger.
type TrendSummary struct {
	SeriesClassified int            `json:"series_classified"`
	ByTrend          map[string]int `json:"by_trend"`
}

type seriesRef struct {
	PatientID     uint
	BiometricType string
}

// ClassifyAll recomputes the trend for every (patient, metric series) that
// has at least one hourly summary. Series with no summaries at all are
// skipped entirely; series with some but fewer than minPoints classify as
// insufficient_data. Each result overwrites the prior TrendRecord.
func (c *Classifier) ClassifyAll() (TrendSummary, error) {
	summary := TrendSummary{ByTrend: make(map[string]int)}

	var series []seriesRef
	err := c.db.Model(&dbpkg.HourlySummary{}).
		Distinct("patient_id", "biometric_type").
		Scan(&series).Error
	if err != nil {
		return summary, err
	}

	analyzedAt := c.now().UTC()
	for _, s := range series {
		var buckets []dbpkg.HourlySummary
		err := c.db.
			Where("patient_id = ? AND biometric_type = ?", s.PatientID, s.BiometricType).
			Order("hour_start DESC").
			Limit(c.window).
			Find(&buckets).Error
		if err != nil {
			return summary, err
		}

		// Buckets arrive newest-first; classification wants ascending order.
		values := make([]float64, len(buckets))
		for i, b := range buckets {
			values[len(buckets)-1-i] = b.AvgValue
		}

		trend := classify(values, c.threshold(s.BiometricType), c.minPoints)
		if err := c.storeTrend(s, trend, analyzedAt); err != nil {
			return summary, err
		}
		summary.SeriesClassified++
		summary.ByTrend[trend]++
		metrics.TrendsClassified.WithLabelValues(trend).Inc()
	}

	c.log.Info("trend classification complete",
		zap.Int("series_classified", summary.SeriesClassified),
		zap.Any("by_trend", summary.ByTrend),
	)
	return summary, nil
}

func (c *Classifier) threshold(series string) float64 {
	if t, ok := c.thresholds[series]; ok {
		return t
	}
	return fallbackThreshold
}

func (c *Classifier) storeTrend(s seriesRef, trend string, analyzedAt time.Time) error {
	row := dbpkg.TrendRecord{
		PatientID:     s.PatientID,
		BiometricType: s.BiometricType,
		Trend:         trend,
		AnalyzedAt:    analyzedAt,
	}
	return c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_id"}, {Name: "biometric_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"trend", "analyzed_at"}),
	}).Create(&row).Error
}

// classify derives a trend from an ascending-ordered value window by
// comparing the mean of the older half against the mean of the recent half.
// The older half is the first len(values)/2 points, so an odd window gives
// the recent half the extra point and the older half one fewer.
// The normalized slope (recent-prior)/prior is compared to the stability
// threshold. A zero prior average cannot be divided through: both halves
// zero is stable, otherwise the direction of the change decides.
func classify(values []float64, threshold float64, minPoints int) string {
	if len(values) < minPoints {
		return TrendInsufficient
	}

	half := len(values) / 2
	prior := mean(values[:half])
	recent := mean(values[half:])

	if prior == 0 {
		switch {
		case recent == 0:
			return TrendStable
		case recent > 0:
			return TrendIncreasing
		default:
			return TrendDecreasing
		}
	}

	slope := (recent - prior) / prior
	switch {
	case slope > threshold:
		return TrendIncreasing
	case slope < -threshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
