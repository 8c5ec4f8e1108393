package scoring

import "fmt"

// Flag thresholds.
const (
	flagBillingPercentileMin = 95.0
	flagBillingScoreMin      = 80.0
	flagTrajectoryMin        = 60.0
	flagOwnershipMin         = 50.0
	flagConcentrationMin     = 60.0
	flagExclusionMin         = 80.0
)

// GenerateFlags produces the human-readable flags for one scored provider.
// Order is fixed so repeated runs emit identical flag lists.
func GenerateFlags(c Components, chainExcludedCount int, topProgram string) []string {
	flags := []string{}

	if c.BillingOutlierPercentile >= flagBillingPercentileMin {
		flags = append(flags,
			"Billing > 95th percentile vs. state/taxonomy peers (payments per claim).")
	}
	if c.BillingOutlierScore >= flagBillingScoreMin && c.PaymentTrajectoryScore >= flagTrajectoryMin {
		flags = append(flags, "Rapid growth and high billing intensity vs. peers.")
	}
	if c.OwnershipChainRisk >= flagOwnershipMin {
		plural := "s"
		if chainExcludedCount == 1 {
			plural = ""
		}
		flags = append(flags, fmt.Sprintf(
			"Ownership chain includes %d excluded provider%s.", chainExcludedCount, plural))
	}
	if c.ProgramConcentrationScore >= flagConcentrationMin {
		label := ""
		if topProgram != "" {
			label = fmt.Sprintf(" (%s)", topProgram)
		}
		flags = append(flags, fmt.Sprintf(
			"Highly concentrated in a single payer program%s.", label))
	}
	if c.ExclusionProximityScore >= flagExclusionMin {
		flags = append(flags, "Direct or owner-level exclusion on record.")
	}

	return flags
}
