package scoring

import "time"

// Components groups the five component scores and their persisted auxiliary
// statistics.  It is stored verbatim in the result sink's components column
// and inside partition payloads.
type Components struct {
	BillingOutlierScore       float64 `json:"billing_outlier_score"`
	BillingOutlierPercentile  float64 `json:"billing_outlier_percentile"`
	OwnershipChainRisk        float64 `json:"ownership_chain_risk"`
	PaymentTrajectoryScore    float64 `json:"payment_trajectory_score"`
	PaymentTrajectoryZScore   float64 `json:"payment_trajectory_zscore"`
	ExclusionProximityScore   float64 `json:"exclusion_proximity_score"`
	ProgramConcentrationScore float64 `json:"program_concentration_score"`
}

// RiskScore is the full scored record for one provider.  Between scatter and
// gather the calibrated fields (RiskScore, RiskLabel) are zero; the gather
// phase fills them after global calibration.
type RiskScore struct {
	NPI string `json:"npi"`

	// RiskScore is the globally calibrated percentile score in [0, 100].
	RiskScore float64 `json:"risk_score"`

	// RiskLabel is the band name derived from RiskScore.
	RiskLabel string `json:"risk_label"`

	// RRaw is the weighted component composite before calibration.
	RRaw float64 `json:"r_raw"`

	Components Components `json:"components"`

	// ChainExcludedCount is the number of excluded providers found in the
	// ownership expansion; it feeds flag text.
	ChainExcludedCount int `json:"chain_excluded_count"`

	// TopProgram is the dominant payer program in the concentration window.
	TopProgram string `json:"top_program,omitempty"`

	PeerTaxonomy string `json:"peer_taxonomy"`
	PeerState    string `json:"peer_state"`
	PeerLevel    string `json:"peer_level"`
	PeerCount    int    `json:"peer_count"`

	// DataWindowYears lists the years with payment observations, ascending.
	DataWindowYears []int `json:"data_window_years"`

	Flags []string `json:"flags"`

	UpdatedAt time.Time `json:"updated_at"`
}
