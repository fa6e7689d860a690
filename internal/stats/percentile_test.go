package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Equal(t, 0.0, Percentile([]float64{}, 75))
}

func TestPercentile_SingleValue(t *testing.T) {
	for _, p := range []float64{0, 25, 50, 75, 100} {
		assert.Equal(t, 42.0, Percentile([]float64{42}, p), "p=%v", p)
	}
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	// Four values: index = p/100 * 3.
	values := []float64{10, 20, 30, 40}

	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 40.0, Percentile(values, 100))
	assert.Equal(t, 25.0, Percentile(values, 50))
	assert.InDelta(t, 17.5, Percentile(values, 25), 1e-9)
	assert.InDelta(t, 32.5, Percentile(values, 75), 1e-9)
}

func TestPercentile_UnsortedInput(t *testing.T) {
	shuffled := []float64{30, 10, 40, 20}
	sorted := []float64{10, 20, 30, 40}

	assert.Equal(t, Percentile(sorted, 75), Percentile(shuffled, 75))
	// Input must not be reordered in place.
	assert.Equal(t, []float64{30, 10, 40, 20}, shuffled)
}

func TestPercentile_OutOfRangeClamped(t *testing.T) {
	values := []float64{1, 2, 3}
	assert.Equal(t, 1.0, Percentile(values, -10))
	assert.Equal(t, 3.0, Percentile(values, 150))
}

func TestPercentiles_MatchesSingle(t *testing.T) {
	values := []float64{5, 1, 9, 3, 7, 2, 8}

	got := Percentiles(values, []float64{25, 50, 75})
	assert.Len(t, got, 3)
	assert.Equal(t, Percentile(values, 25), got[0])
	assert.Equal(t, Percentile(values, 50), got[1])
	assert.Equal(t, Percentile(values, 75), got[2])
}

func TestPercentiles_Empty(t *testing.T) {
	assert.Equal(t, []float64{0, 0}, Percentiles(nil, []float64{25, 75}))
}
