package scoring

import (
	"math"
	"sort"
)

// RawComposite applies the fixed component weights to produce the
// pre-calibration composite.
func RawComposite(c Components) float64 {
	return c.BillingOutlierScore*WeightBilling +
		c.OwnershipChainRisk*WeightOwnership +
		c.PaymentTrajectoryScore*WeightTrajectory +
		c.ExclusionProximityScore*WeightExclusion +
		c.ProgramConcentrationScore*WeightConcentration
}

// Calibrate rescales raw composites to global percentile ranks in [0, 100]
// and assigns labels, mutating scores in place.  Ties are ordered by (r_raw,
// npi) so repeated runs over identical input produce identical output
// regardless of input order or partitioning.
//
// A single-provider population degenerates to raw/max(raw, 1)·100 since a
// percentile over one observation is meaningless.
//
// Calibration is population-relative: a provider's calibrated score can move
// between runs solely because the rest of the population changed.
func Calibrate(scores []RiskScore) {
	n := len(scores)
	if n == 0 {
		return
	}
	if n == 1 {
		raw := scores[0].RRaw
		scores[0].RiskScore = Round2(raw / math.Max(raw, 1) * 100)
		scores[0].RiskLabel = LabelFor(scores[0].RiskScore)
		return
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia].RRaw != scores[ib].RRaw {
			return scores[ia].RRaw < scores[ib].RRaw
		}
		return scores[ia].NPI < scores[ib].NPI
	})

	for rank, idx := range order {
		scores[idx].RiskScore = Round2(float64(rank) / float64(n-1) * 100)
		scores[idx].RiskLabel = LabelFor(scores[idx].RiskScore)
	}
}
