package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 7.0, Median([]float64{7}))
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	_ = Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestMAD(t *testing.T) {
	assert.Equal(t, 0.0, MAD(nil))
	// median 2, deviations {1,0,1} → MAD 1
	assert.Equal(t, 1.0, MAD([]float64{1, 2, 3}))
	// constant slice
	assert.Equal(t, 0.0, MAD([]float64{4, 4, 4}))
}

func TestRobustZ_OnMedianIsZero(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 0.0, RobustZ(values, 3))
}

func TestRobustZ_EmptyPeersIsZero(t *testing.T) {
	assert.Equal(t, 0.0, RobustZ(nil, 42))
}

func TestRobustZ_Clamped(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, ZClamp, RobustZ(values, 1e9))
	assert.Equal(t, -ZClamp, RobustZ(values, -1e9))
}

func TestRobustZ_ConstantPeers(t *testing.T) {
	values := []float64{5, 5, 5, 5}
	// On the shared value: exactly zero.
	assert.Equal(t, 0.0, RobustZ(values, 5))
	// Any deviation saturates the clamp.
	assert.Equal(t, ZClamp, RobustZ(values, 5.0001))
	assert.Equal(t, -ZClamp, RobustZ(values, 4.9999))
}

func TestMapToScore(t *testing.T) {
	// z = 0 maps to the neutral midpoint.
	assert.Equal(t, 50.0, MapToScore(0))
	assert.Greater(t, MapToScore(1), 50.0)
	assert.Less(t, MapToScore(-1), 50.0)
	// Bounded even at the clamp limits.
	assert.Less(t, MapToScore(ZClamp), 100.0)
	assert.Greater(t, MapToScore(-ZClamp), 0.0)
	// Symmetry around 50.
	assert.InDelta(t, 100.0, MapToScore(2)+MapToScore(-2), 1e-9)
}

func TestLabelFor(t *testing.T) {
	cases := []struct {
		score float64
		label string
	}{
		{0, LabelLow},
		{29.99, LabelLow},
		{30, LabelModerate},
		{59.99, LabelModerate},
		{60, LabelElevated},
		{79.99, LabelElevated},
		{80, LabelHigh},
		{100, LabelHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.label, LabelFor(tc.score), "score %.2f", tc.score)
	}
}

func TestDecayWeight(t *testing.T) {
	assert.Equal(t, 1.0, DecayWeight(0.7, 2024, 2024))
	assert.InDelta(t, 0.7, DecayWeight(0.7, 2024, 2023), 1e-12)
	assert.InDelta(t, math.Pow(0.7, 4), DecayWeight(0.7, 2024, 2020), 1e-12)
}

func TestAverageRank(t *testing.T) {
	sorted := []float64{1, 2, 2, 3}
	assert.Equal(t, 1.0, averageRank(sorted, 1))
	assert.Equal(t, 2.5, averageRank(sorted, 2), "ties share the mean rank")
	assert.Equal(t, 4.0, averageRank(sorted, 3))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 33.33, Round2(33.3333))
	assert.Equal(t, 0.1235, Round4(0.123456))
}
