package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const glucoseThreshold = 0.10

func TestClassify_Decreasing(t *testing.T) {
	// Older half averages 105, recent half 92.5: slope ≈ -0.119.
	trend := classify([]float64{100, 110, 90, 95}, glucoseThreshold, 4)
	assert.Equal(t, TrendDecreasing, trend)
}

func TestClassify_Increasing(t *testing.T) {
	trend := classify([]float64{90, 95, 100, 110}, glucoseThreshold, 4)
	assert.Equal(t, TrendIncreasing, trend)
}

func TestClassify_FlatIsStable(t *testing.T) {
	trend := classify([]float64{100, 100, 100, 100}, glucoseThreshold, 4)
	assert.Equal(t, TrendStable, trend)
}

func TestClassify_WithinThresholdBandIsStable(t *testing.T) {
	// Slope of +0.05 sits inside the ±0.10 band.
	trend := classify([]float64{100, 100, 105, 105}, glucoseThreshold, 4)
	assert.Equal(t, TrendStable, trend)
}

func TestClassify_SlopeExactlyAtThresholdIsStable(t *testing.T) {
	// (110-100)/100 = 0.10, not strictly above the threshold.
	trend := classify([]float64{100, 100, 110, 110}, glucoseThreshold, 4)
	assert.Equal(t, TrendStable, trend)
}

func TestClassify_SinglePointIsInsufficientData(t *testing.T) {
	trend := classify([]float64{100}, glucoseThreshold, 4)
	assert.Equal(t, TrendInsufficient, trend)
}

func TestClassify_BelowMinPointsIsInsufficientData(t *testing.T) {
	trend := classify([]float64{100, 110, 120}, glucoseThreshold, 4)
	assert.Equal(t, TrendInsufficient, trend)
}

func TestClassify_ZeroPriorAverage(t *testing.T) {
	assert.Equal(t, TrendStable, classify([]float64{0, 0, 0, 0}, glucoseThreshold, 4))
	assert.Equal(t, TrendIncreasing, classify([]float64{0, 0, 50, 60}, glucoseThreshold, 4))
}

func TestClassify_OddWindowSplitsOlderShortHalf(t *testing.T) {
	// Five points: older half is the first two, recent half the last three.
	trend := classify([]float64{100, 100, 120, 125, 130}, glucoseThreshold, 4)
	assert.Equal(t, TrendIncreasing, trend)
}

func TestClassify_TighterWeightThreshold(t *testing.T) {
	// A 5% move is stable for glucose but directional for weight (±0.03).
	values := []float64{80, 80, 84, 84}
	assert.Equal(t, TrendStable, classify(values, glucoseThreshold, 4))
	assert.Equal(t, TrendIncreasing, classify(values, defaultThresholds["weight"], 4))
}

func TestThresholdLookup(t *testing.T) {
	c := &Classifier{thresholds: defaultThresholds}
	assert.Equal(t, 0.03, c.threshold("weight"))
	assert.Equal(t, 0.07, c.threshold("blood_pressure_systolic"))
	assert.Equal(t, fallbackThreshold, c.threshold("unknown_series"))
}
