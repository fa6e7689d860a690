package score

import "math"

// Congestion levels.
const (
	LevelLow      = "LOW"
	LevelModerate = "MODERATE"
	LevelHigh     = "HIGH"
)

// Scoring methods reported in Debug.Method.
const (
	MethodFallback   = "fallback"
	MethodCalibrated = "calibrated"
	MethodPercentile = "percentile"
)

// Reason tags reported in Debug.Reason. Consumers filter on these, so the set
// is fixed.
const (
	ReasonInsufficientHistory = "insufficient_history"
	ReasonSpeedAndCount       = "speed_and_count"
	ReasonCountOnly           = "count_only"
	ReasonSpeedPercentile     = "speed_percentile"
	ReasonHighCountGoodSpeed  = "high_count_despite_good_speed"
)

// Combined z-score thresholds for congestion levels.
const (
	ZThresholdHigh     = 1.5
	ZThresholdModerate = 0.5
)

// Absolute fallback thresholds used before a cell is calibrated. These four
// values are load-bearing: downstream consumers depend on their exact
// behavior.
const (
	FallbackSpeedHigh     = 15.0 // below this km/h → HIGH
	FallbackSpeedModerate = 40.0 // below this km/h → MODERATE
	FallbackCountHigh     = 30   // at or above this count → HIGH
	FallbackCountModerate = 10   // at or above this count → MODERATE
)

// Default calibration thresholds per strategy.
const (
	DefaultMinSamplesZScore     = 50
	DefaultMinSamplesPercentile = 20
)

// Verdict is a congestion classification with its auditable rationale.
// Verdicts are pure outputs; the core never persists them.
type Verdict struct {
	Level string `json:"level"`
	Debug Debug  `json:"debug"`
}

// Debug carries the numeric evidence behind a Verdict. Optional fields are
// nil when the corresponding signal did not participate.
type Debug struct {
	Method          string   `json:"method"`
	Reason          string   `json:"reason"`
	SampleCount     int      `json:"sample_count"`
	CurrentCount    int      `json:"current_count"`
	CurrentAvgSpeed *float64 `json:"current_avg_speed,omitempty"`

	// Z-score strategy evidence.
	BaselineAvgSpeed float64  `json:"baseline_avg_speed,omitempty"`
	BaselineAvgCount float64  `json:"baseline_avg_count,omitempty"`
	CountZ           *float64 `json:"count_z,omitempty"`
	SpeedZ           *float64 `json:"speed_z,omitempty"`
	CombinedZ        *float64 `json:"combined_z,omitempty"`

	// Percentile strategy evidence.
	SpeedP25 *float64 `json:"speed_p25,omitempty"`
	SpeedP50 *float64 `json:"speed_p50,omitempty"`
	CountP75 *float64 `json:"count_p75,omitempty"`
}

// ZScore returns how many standard deviations value lies from mean. A
// non-positive std is substituted with 1.0 so the division is always defined.
// invert flips the sign for metrics where below-mean is worse (speed), so a
// positive z-score always means "worse than normal".
func ZScore(value, mean, std float64, invert bool) float64 {
	if std <= 0 {
		std = 1.0
	}
	if invert {
		return (mean - value) / std
	}
	return (value - mean) / std
}

// round2p rounds v to two decimals for debug output and returns a pointer.
func round2p(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}
