package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateFlags_CleanProvider(t *testing.T) {
	flags := GenerateFlags(Components{}, 0, "")
	assert.NotNil(t, flags, "flag list serializes as [] rather than null")
	assert.Empty(t, flags)
}

func TestGenerateFlags_BillingPercentile(t *testing.T) {
	flags := GenerateFlags(Components{BillingOutlierPercentile: 95}, 0, "")
	assert.Equal(t, []string{
		"Billing > 95th percentile vs. state/taxonomy peers (payments per claim).",
	}, flags)

	flags = GenerateFlags(Components{BillingOutlierPercentile: 94.99}, 0, "")
	assert.Empty(t, flags)
}

func TestGenerateFlags_RapidGrowthNeedsBothSignals(t *testing.T) {
	flags := GenerateFlags(Components{BillingOutlierScore: 80, PaymentTrajectoryScore: 60}, 0, "")
	assert.Equal(t, []string{"Rapid growth and high billing intensity vs. peers."}, flags)

	flags = GenerateFlags(Components{BillingOutlierScore: 80, PaymentTrajectoryScore: 59}, 0, "")
	assert.Empty(t, flags)

	flags = GenerateFlags(Components{BillingOutlierScore: 79, PaymentTrajectoryScore: 60}, 0, "")
	assert.Empty(t, flags)
}

func TestGenerateFlags_OwnershipPluralisation(t *testing.T) {
	flags := GenerateFlags(Components{OwnershipChainRisk: 50}, 1, "")
	assert.Equal(t, []string{"Ownership chain includes 1 excluded provider."}, flags)

	flags = GenerateFlags(Components{OwnershipChainRisk: 50}, 3, "")
	assert.Equal(t, []string{"Ownership chain includes 3 excluded providers."}, flags)

	flags = GenerateFlags(Components{OwnershipChainRisk: 49.99}, 3, "")
	assert.Empty(t, flags)
}

func TestGenerateFlags_ConcentrationTopProgram(t *testing.T) {
	flags := GenerateFlags(Components{ProgramConcentrationScore: 60}, 0, "MEDICARE")
	assert.Equal(t, []string{"Highly concentrated in a single payer program (MEDICARE)."}, flags)

	flags = GenerateFlags(Components{ProgramConcentrationScore: 60}, 0, "")
	assert.Equal(t, []string{"Highly concentrated in a single payer program."}, flags)
}

func TestGenerateFlags_Exclusion(t *testing.T) {
	flags := GenerateFlags(Components{ExclusionProximityScore: ExclusionOwner}, 0, "")
	assert.Equal(t, []string{"Direct or owner-level exclusion on record."}, flags)

	flags = GenerateFlags(Components{ExclusionProximityScore: ExclusionChain}, 0, "")
	assert.Empty(t, flags, "chain-only exposure stays below the flag threshold")
}

func TestGenerateFlags_FixedOrder(t *testing.T) {
	c := Components{
		BillingOutlierScore:       90,
		BillingOutlierPercentile:  99,
		OwnershipChainRisk:        60,
		PaymentTrajectoryScore:    70,
		ExclusionProximityScore:   100,
		ProgramConcentrationScore: 80,
	}
	flags := GenerateFlags(c, 2, "MEDICAID")
	assert.Equal(t, []string{
		"Billing > 95th percentile vs. state/taxonomy peers (payments per claim).",
		"Rapid growth and high billing intensity vs. peers.",
		"Ownership chain includes 2 excluded providers.",
		"Highly concentrated in a single payer program (MEDICAID).",
		"Direct or owner-level exclusion on record.",
	}, flags)
}
