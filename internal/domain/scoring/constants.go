// Package scoring implements the composite risk model: per-year metric
// extraction, peer-relative robust statistics, the five risk components,
// composite weighting, global percentile calibration, and flag generation.
// Everything here is pure computation over in-memory data; loading and
// persistence are infrastructure concerns.
package scoring

// ─────────────────────────────────────────────────────────────────────────────
// Model constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	// LogEpsilon is added before the log transform: ln(x + 1).
	LogEpsilon = 1.0

	// MADScale converts MAD to a standard-deviation-consistent estimator for
	// normally distributed data.
	MADScale = 1.4826

	// ZClamp bounds every robust z-score to [-ZClamp, ZClamp] so a single
	// extreme year cannot dominate a provider's profile.
	ZClamp = 5.0

	// madFloor guards divisions when a peer group is (near-)constant.
	madFloor = 1e-9
)

// Component weights.  They sum to 1 and are fixed model parameters, not
// operator configuration.
const (
	WeightBilling       = 0.30
	WeightOwnership     = 0.25
	WeightTrajectory    = 0.20
	WeightExclusion     = 0.15
	WeightConcentration = 0.10
)

// Risk label thresholds on the calibrated [0,100] score.
const (
	LabelHighMin     = 80.0
	LabelElevatedMin = 60.0
	LabelModerateMin = 30.0
)

// Risk labels.
const (
	LabelHigh     = "High"
	LabelElevated = "Elevated"
	LabelModerate = "Moderate"
	LabelLow      = "Low"
)

// Params carries the operator-tunable scoring windows.  The zero value is not
// usable; construct with DefaultParams and override as needed.
type Params struct {
	// DecayAlpha is the exponential recency weight base: w_t = alpha^(T-t).
	DecayAlpha float64

	// WindowYears is the size of the payment data window.
	WindowYears int

	// ConcentrationYears is the window for the program concentration component.
	ConcentrationYears int

	// PeerMinSize is the minimum member count for a peer tier to be used.
	PeerMinSize int

	// PeerMinClaims is the minimum yearly claims for a provider-year to count
	// as a peer when computing group statistics.
	PeerMinClaims int
}

// DefaultParams returns the production model parameters.
func DefaultParams() Params {
	return Params{
		DecayAlpha:         0.7,
		WindowYears:        5,
		ConcentrationYears: 3,
		PeerMinSize:        50,
		PeerMinClaims:      100,
	}
}
