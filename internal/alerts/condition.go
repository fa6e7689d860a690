package alerts

import (
	"strconv"
	"strings"
)

// evalCondition evaluates a rule condition string against an Observation.
//
// Supported expressions (field operator value):
//
//	vehicle_count >= 30
//	avg_speed < 15
//	combined_z > 2
//	sample_count < 50
//	level == HIGH
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed, the field is
// unknown, or the field has no value in this observation (e.g. avg_speed
// when no speeds were reported).
func evalCondition(cond string, obs Observation) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "level" {
		if op == "==" {
			return obs.Level == rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, obs)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the observation.
func numericField(field string, obs Observation) (float64, bool) {
	switch field {
	case "vehicle_count":
		return float64(obs.VehicleCount), true
	case "avg_speed":
		if obs.AvgSpeedKmh == nil {
			return 0, false
		}
		return *obs.AvgSpeedKmh, true
	case "combined_z":
		if obs.CombinedZ == nil {
			return 0, false
		}
		return *obs.CombinedZ, true
	case "sample_count":
		return float64(obs.SampleCount), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
