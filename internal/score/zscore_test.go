package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpulse/gridpulse/internal/baseline"
)

// calibratedStats returns a baseline well past the calibration threshold.
func calibratedStats(avgCount, countVar, avgSpeed, speedVar float64) baseline.Stats {
	return baseline.Stats{
		AvgCount:      avgCount,
		CountVariance: countVar,
		AvgSpeed:      avgSpeed,
		SpeedVariance: speedVar,
		SampleCount:   100,
	}
}

func TestZScore_SignConvention(t *testing.T) {
	// Count above mean is positive; speed below mean is positive when inverted.
	assert.InDelta(t, 2.0, ZScore(30, 20, 5, false), 1e-9)
	assert.InDelta(t, -2.0, ZScore(10, 20, 5, false), 1e-9)
	assert.InDelta(t, 2.0, ZScore(10, 20, 5, true), 1e-9)
	assert.InDelta(t, -2.0, ZScore(30, 20, 5, true), 1e-9)
}

func TestZScore_ZeroStdFloor(t *testing.T) {
	// A zero-variance baseline divides by 1.0, not zero.
	assert.InDelta(t, 5.0, ZScore(25, 20, 0, false), 1e-9)
	assert.InDelta(t, 5.0, ZScore(25, 20, -3, false), 1e-9)
}

func TestZScorer_Uncalibrated(t *testing.T) {
	z := ZScorer{}
	b := baseline.Stats{AvgCount: 20, SampleCount: 49} // one short of default 50

	v := z.Score(100, nil, b)
	assert.Equal(t, LevelHigh, v.Level) // fallback on count
	assert.Equal(t, MethodFallback, v.Debug.Method)
	assert.Equal(t, ReasonInsufficientHistory, v.Debug.Reason)
	assert.Nil(t, v.Debug.CombinedZ)
}

func TestZScorer_CalibrationBoundary(t *testing.T) {
	z := ZScorer{}
	b := calibratedStats(20, 25, 0, 0)
	b.SampleCount = 50 // exactly at the default threshold

	v := z.Score(20, nil, b)
	assert.Equal(t, MethodCalibrated, v.Debug.Method)
}

func TestZScorer_BothSignals(t *testing.T) {
	// Baseline: count 20±5, speed 50±10. Current: count 35, speed 20.
	// count_z = 3, speed_z = 3, combined = 3 → HIGH.
	z := ZScorer{}
	b := calibratedStats(20, 25, 50, 100)

	v := z.Score(35, fp(20), b)
	assert.Equal(t, LevelHigh, v.Level)
	assert.Equal(t, ReasonSpeedAndCount, v.Debug.Reason)
	require.NotNil(t, v.Debug.CountZ)
	require.NotNil(t, v.Debug.SpeedZ)
	require.NotNil(t, v.Debug.CombinedZ)
	assert.InDelta(t, 3.0, *v.Debug.CountZ, 1e-9)
	assert.InDelta(t, 3.0, *v.Debug.SpeedZ, 1e-9)
	assert.InDelta(t, 3.0, *v.Debug.CombinedZ, 1e-9)
}

func TestZScorer_SpeedOffsetsCount(t *testing.T) {
	// Count is 3σ high but speed is 2σ better than normal: combined 0.5 → MODERATE.
	z := ZScorer{}
	b := calibratedStats(20, 25, 50, 100)

	v := z.Score(35, fp(70), b)
	assert.Equal(t, LevelModerate, v.Level)
	require.NotNil(t, v.Debug.CombinedZ)
	assert.InDelta(t, 0.5, *v.Debug.CombinedZ, 1e-9)
}

func TestZScorer_CountOnly(t *testing.T) {
	// No current speed: count carries the verdict alone.
	z := ZScorer{}
	b := calibratedStats(20, 25, 50, 100)

	v := z.Score(30, nil, b) // count_z = 2 → HIGH
	assert.Equal(t, LevelHigh, v.Level)
	assert.Equal(t, ReasonCountOnly, v.Debug.Reason)
	assert.Nil(t, v.Debug.SpeedZ)
}

func TestZScorer_NoSpeedBaseline(t *testing.T) {
	// Current speed present but baseline never learned speed: count-only path.
	z := ZScorer{}
	b := calibratedStats(20, 25, 0, 0)

	v := z.Score(20, fp(10), b)
	assert.Equal(t, ReasonCountOnly, v.Debug.Reason)
	assert.Nil(t, v.Debug.SpeedZ)
	assert.Equal(t, LevelLow, v.Level) // count_z = 0
}

func TestZScorer_Thresholds(t *testing.T) {
	z := ZScorer{}
	b := calibratedStats(20, 25, 0, 0) // count std 5

	tests := []struct {
		count int
		want  string
	}{
		{20, LevelLow},       // z = 0
		{22, LevelLow},       // z = 0.4
		{23, LevelModerate},  // z = 0.6
		{27, LevelModerate},  // z = 1.4
		{28, LevelHigh},      // z = 1.6
	}
	for _, tt := range tests {
		v := z.Score(tt.count, nil, b)
		assert.Equal(t, tt.want, v.Level, "count=%d z=%v", tt.count, *v.Debug.CombinedZ)
	}
}

func TestZScorer_DebugRounding(t *testing.T) {
	z := ZScorer{}
	b := calibratedStats(20, 9, 0, 0) // std 3

	v := z.Score(21, nil, b) // z = 1/3
	require.NotNil(t, v.Debug.CombinedZ)
	assert.Equal(t, 0.33, *v.Debug.CombinedZ)
}

func TestZScorer_MinSamplesOverride(t *testing.T) {
	z := ZScorer{MinSamples: 10}
	b := calibratedStats(20, 25, 0, 0)
	b.SampleCount = 10

	v := z.Score(20, nil, b)
	assert.Equal(t, MethodCalibrated, v.Debug.Method)
}
