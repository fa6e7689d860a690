package score

import "github.com/gridpulse/gridpulse/internal/baseline"

// ZScorer classifies congestion by comparing the current aggregate to a
// cell's EMA baseline via z-scores. ZScorer is pure: it touches no store and
// is deterministic in its inputs.
type ZScorer struct {
	// MinSamples is the calibration threshold; zero means
	// DefaultMinSamplesZScore.
	MinSamples int
}

func (z ZScorer) minSamples() int {
	if z.MinSamples > 0 {
		return z.MinSamples
	}
	return DefaultMinSamplesZScore
}

// Score produces a congestion verdict for the current (count, avgSpeed)
// against b.
//
// Count above normal and speed below normal both push toward HIGH. When both
// signals exist the combined z-score is their mean; otherwise count carries
// the verdict alone. Uncalibrated cells delegate to Fallback.
func (z ZScorer) Score(count int, avgSpeed *float64, b baseline.Stats) Verdict {
	d := Debug{
		SampleCount:      b.SampleCount,
		CurrentCount:     count,
		CurrentAvgSpeed:  avgSpeed,
		BaselineAvgSpeed: b.AvgSpeed,
		BaselineAvgCount: b.AvgCount,
	}

	if !b.Calibrated(z.minSamples()) {
		d.Method = MethodFallback
		d.Reason = ReasonInsufficientHistory
		return Verdict{Level: Fallback(count, avgSpeed), Debug: d}
	}

	d.Method = MethodCalibrated

	countZ := ZScore(float64(count), b.AvgCount, b.CountStd(), false)
	d.CountZ = round2p(countZ)

	var combined float64
	if avgSpeed != nil && b.AvgSpeed > 0 {
		speedZ := ZScore(*avgSpeed, b.AvgSpeed, b.SpeedStd(), true)
		d.SpeedZ = round2p(speedZ)
		combined = (countZ + speedZ) / 2
		d.Reason = ReasonSpeedAndCount
	} else {
		combined = countZ
		d.Reason = ReasonCountOnly
	}
	d.CombinedZ = round2p(combined)

	return Verdict{Level: levelFromZ(combined), Debug: d}
}

// levelFromZ maps a combined z-score to a congestion level.
func levelFromZ(z float64) string {
	switch {
	case z >= ZThresholdHigh:
		return LevelHigh
	case z >= ZThresholdModerate:
		return LevelModerate
	default:
		return LevelLow
	}
}
