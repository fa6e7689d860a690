// Package stats provides the order-statistics helpers used by the
// percentile-based congestion baseline.
package stats

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0–100) of values using linear
// interpolation between closest ranks — the same continuous-percentile
// semantics as SQL PERCENTILE_CONT. An empty input returns 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, clampPercent(p)/100)
}

// Percentiles computes several percentiles over a single sort. The result has
// one entry per requested percentile, in order.
func Percentiles(values []float64, ps []float64) []float64 {
	out := make([]float64, len(ps))
	if len(values) == 0 {
		return out
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	for i, p := range ps {
		out[i] = quantileSorted(sorted, clampPercent(p)/100)
	}
	return out
}

// quantileSorted interpolates the q-th quantile (0–1) of an ascending slice.
func quantileSorted(sorted []float64, q float64) float64 {
	n := float64(len(sorted))
	index := q * (n - 1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
