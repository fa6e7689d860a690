package baseline

import "math"

// DefaultAlpha is the EMA smoothing factor: 10% weight to each new bucket.
const DefaultAlpha = 0.1

// Stats is a cell's learned traffic baseline in EMA form. The zero value is
// the explicit "uncalibrated" state: SampleCount 0 and no statistically
// meaningful fields.
type Stats struct {
	AvgSpeed      float64
	AvgCount      float64
	SpeedVariance float64
	CountVariance float64
	SampleCount   int
}

// SpeedStd returns the speed standard deviation, substituting 1.0 when the
// variance is not positive so z-score divisions are always defined.
func (s Stats) SpeedStd() float64 {
	if s.SpeedVariance > 0 {
		return math.Sqrt(s.SpeedVariance)
	}
	return 1.0
}

// CountStd returns the count standard deviation with the same 1.0 floor.
func (s Stats) CountStd() float64 {
	if s.CountVariance > 0 {
		return math.Sqrt(s.CountVariance)
	}
	return 1.0
}

// Calibrated reports whether enough completed buckets have been folded in to
// trust statistical comparison over absolute thresholds.
func (s Stats) Calibrated(minSamples int) bool {
	return s.SampleCount >= minSamples
}

// Percentiles is a cell's baseline in percentile form, derived on demand from
// the trailing bucket-history window. Speed percentiles are nil when the
// window holds no speed samples; CountP75 is nil only when the window is
// empty.
type Percentiles struct {
	SpeedP25    *float64
	SpeedP50    *float64
	CountP75    *float64
	SampleCount int
}

// Calibrated reports whether the trailing window holds enough rows to trust
// percentile comparison.
func (p Percentiles) Calibrated(minSamples int) bool {
	return p.SampleCount >= minSamples
}

// Update folds one completed bucket's aggregate into s and returns the new
// baseline. s is not modified.
//
// The first-ever sample seeds the means directly with zero variance. Later
// samples blend with smoothing factor alpha; variance blends the squared
// deviation from the pre-update mean (Welford's algorithm adapted to EMA).
// Speed statistics update only when the bucket recorded speeds, and the first
// speed sample seeds AvgSpeed without a variance contribution.
func Update(s Stats, bucketCount int, bucketAvgSpeed *float64, alpha float64) Stats {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}

	if s.SampleCount == 0 {
		out := Stats{AvgCount: float64(bucketCount), SampleCount: 1}
		if bucketAvgSpeed != nil {
			out.AvgSpeed = *bucketAvgSpeed
		}
		return out
	}

	out := s

	oldAvgCount := s.AvgCount
	out.AvgCount = (1-alpha)*s.AvgCount + alpha*float64(bucketCount)
	countDiff := float64(bucketCount) - oldAvgCount
	out.CountVariance = (1-alpha)*s.CountVariance + alpha*countDiff*countDiff

	if bucketAvgSpeed != nil {
		if s.AvgSpeed > 0 {
			oldAvgSpeed := s.AvgSpeed
			out.AvgSpeed = (1-alpha)*s.AvgSpeed + alpha*(*bucketAvgSpeed)
			speedDiff := *bucketAvgSpeed - oldAvgSpeed
			out.SpeedVariance = (1-alpha)*s.SpeedVariance + alpha*speedDiff*speedDiff
		} else {
			// First speed reading for this cell.
			out.AvgSpeed = *bucketAvgSpeed
		}
	}

	out.SampleCount++
	return out
}
