package score

import "github.com/gridpulse/gridpulse/internal/baseline"

// PercentileScorer classifies congestion by ranking the current aggregate
// against a cell's historical percentiles. Like ZScorer it is pure and
// store-free.
type PercentileScorer struct {
	// MinSamples is the calibration threshold; zero means
	// DefaultMinSamplesPercentile.
	MinSamples int
}

func (p PercentileScorer) minSamples() int {
	if p.MinSamples > 0 {
		return p.MinSamples
	}
	return DefaultMinSamplesPercentile
}

// Score produces a congestion verdict for the current (count, avgSpeed)
// against h.
//
// Speed percentiles carry the verdict when available: below p25 is HIGH,
// below p50 MODERATE. Good speed with a count above p75 downgrades to
// MODERATE rather than LOW. Without speed, the count bands at p75 and
// 1.5×p75 apply. Uncalibrated cells delegate to Fallback.
func (p PercentileScorer) Score(count int, avgSpeed *float64, h baseline.Percentiles) Verdict {
	d := Debug{
		SampleCount:     h.SampleCount,
		CurrentCount:    count,
		CurrentAvgSpeed: avgSpeed,
		SpeedP25:        h.SpeedP25,
		SpeedP50:        h.SpeedP50,
		CountP75:        h.CountP75,
	}

	if !h.Calibrated(p.minSamples()) {
		d.Method = MethodFallback
		d.Reason = ReasonInsufficientHistory
		return Verdict{Level: Fallback(count, avgSpeed), Debug: d}
	}

	if avgSpeed != nil && h.SpeedP25 != nil && h.SpeedP50 != nil {
		d.Method = MethodPercentile
		d.Reason = ReasonSpeedPercentile
		switch {
		case *avgSpeed < *h.SpeedP25:
			return Verdict{Level: LevelHigh, Debug: d}
		case *avgSpeed < *h.SpeedP50:
			return Verdict{Level: LevelModerate, Debug: d}
		}
		// Speed looks fine — but an unusually high count still warrants a
		// MODERATE flag.
		if h.CountP75 != nil && float64(count) > *h.CountP75 {
			d.Reason = ReasonHighCountGoodSpeed
			return Verdict{Level: LevelModerate, Debug: d}
		}
		return Verdict{Level: LevelLow, Debug: d}
	}

	if h.CountP75 == nil {
		// Calibrated row count but no usable percentile — can only happen on
		// a corrupt snapshot. Degrade to the fallback table.
		d.Method = MethodFallback
		d.Reason = ReasonInsufficientHistory
		return Verdict{Level: Fallback(count, avgSpeed), Debug: d}
	}

	d.Method = MethodPercentile
	d.Reason = ReasonCountOnly
	p75 := *h.CountP75
	switch {
	case float64(count) > p75*1.5:
		return Verdict{Level: LevelHigh, Debug: d}
	case float64(count) > p75:
		return Verdict{Level: LevelModerate, Debug: d}
	default:
		return Verdict{Level: LevelLow, Debug: d}
	}
}
