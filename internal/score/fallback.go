package score

// Fallback classifies congestion with absolute thresholds. It is the shared
// path for uncalibrated cells under either strategy.
//
// Speed, when available, takes priority; a crowded cell that is still moving
// well is downgraded to MODERATE rather than HIGH. Without speed the count
// thresholds apply directly.
func Fallback(count int, avgSpeed *float64) string {
	if avgSpeed != nil {
		switch {
		case *avgSpeed < FallbackSpeedHigh:
			return LevelHigh
		case *avgSpeed < FallbackSpeedModerate:
			return LevelModerate
		}
		if count >= FallbackCountHigh {
			return LevelModerate
		}
		return LevelLow
	}

	switch {
	case count >= FallbackCountHigh:
		return LevelHigh
	case count >= FallbackCountModerate:
		return LevelModerate
	}
	return LevelLow
}
