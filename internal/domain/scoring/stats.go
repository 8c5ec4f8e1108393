package scoring

import (
	"math"
	"sort"
)

// ─────────────────────────────────────────────────────────────────────────────
// Robust statistics primitives
// ─────────────────────────────────────────────────────────────────────────────

// Median returns the median of values.  It returns 0 for an empty slice and
// does not mutate its input.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	s := make([]float64, n)
	copy(s, values)
	sort.Float64s(s)
	mid := n / 2
	if n%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// MAD returns the median absolute deviation of values around their median.
func MAD(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	med := Median(values)
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - med)
	}
	return Median(dev)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RobustZ computes the robust z-score of target relative to values using
// median and MAD, clamped to [-ZClamp, ZClamp].  An empty peer set yields 0.
// When the peer set is (near-)constant, a provider exactly on the shared
// value scores 0 and any deviation saturates the clamp.
func RobustZ(values []float64, target float64) float64 {
	if len(values) == 0 {
		return 0
	}
	med := Median(values)
	mad := MAD(values)
	return RobustZFromStats(target, med, mad)
}

// RobustZFromStats computes a clamped robust z from precomputed group stats.
func RobustZFromStats(target, med, mad float64) float64 {
	if mad < madFloor {
		return clamp((target-med)/madFloor, -ZClamp, ZClamp)
	}
	z := (target - med) / (MADScale * mad)
	return clamp(z, -ZClamp, ZClamp)
}

// MapToScore maps a z-score to [0, 100] via the logistic transform
// 100 / (1 + e^(-z/2)).  A z of 0 maps to exactly 50.
func MapToScore(z float64) float64 {
	return 100.0 / (1.0 + math.Exp(-z/2.0))
}

// LabelFor returns the risk label band for a calibrated score.
func LabelFor(score float64) string {
	switch {
	case score >= LabelHighMin:
		return LabelHigh
	case score >= LabelElevatedMin:
		return LabelElevated
	case score >= LabelModerateMin:
		return LabelModerate
	default:
		return LabelLow
	}
}

// DecayWeight returns alpha^(maxYear-year); years after maxYear weigh 1.
func DecayWeight(alpha float64, maxYear, year int) float64 {
	if year >= maxYear {
		return 1
	}
	return math.Pow(alpha, float64(maxYear-year))
}

// averageRank returns the 1-based average rank of target within sorted
// (ascending) values, matching the "average" tie method: equal values share
// the mean of the ordinal ranks they occupy.
func averageRank(sorted []float64, target float64) float64 {
	// first index with v >= target and first index with v > target
	lo := sort.SearchFloat64s(sorted, target)
	hi := sort.Search(len(sorted), func(i int) bool { return sorted[i] > target })
	if hi == lo {
		// target absent from the slice; rank position between neighbours
		return float64(lo) + 0.5
	}
	return (float64(lo+1) + float64(hi)) / 2
}

// Round2 rounds to two decimal places, matching stored score precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds to four decimal places, used for persisted z-scores.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
