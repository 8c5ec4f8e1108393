package scoring

import (
	"math"
	"sort"

	"github.com/claidex/risk-engine/internal/domain/provider"
)

// ─────────────────────────────────────────────────────────────────────────────
// Component 1 — billing outlier
// ─────────────────────────────────────────────────────────────────────────────

// BillingResult carries the billing outlier component plus the peer-group
// attribution persisted alongside the score.
type BillingResult struct {
	Score      float64
	Percentile float64

	PeerLevel    PeerLevel
	PeerTaxonomy string
	PeerState    string
	PeerCount    int
	Years        []int
}

// ComputeBilling aggregates a provider's year-level metric z-scores with
// exponential recency decay and maps the result to [0, 100].
//
// Per year the three metric z-scores are floored at zero (running below peers
// is never suspicious) and averaged; the yearly averages are combined with
// weights alpha^(T-t).  The percentile is the mean of the per-year payment
// intensity percent ranks, with undefined years contributing the neutral 50.
func ComputeBilling(rows []YearMetrics, ix *PeerIndex, params Params) BillingResult {
	if len(rows) == 0 {
		return BillingResult{Percentile: 50, PeerLevel: PeerLevelNational}
	}

	var (
		weightedSum float64
		weightTotal float64
		pctSum      float64
		years       = make([]int, 0, len(rows))
	)
	for _, m := range rows {
		z1, z2, z3 := ix.ZScores(m)
		avgZ := (math.Max(z1, 0) + math.Max(z2, 0) + math.Max(z3, 0)) / 3.0
		w := DecayWeight(params.DecayAlpha, ix.MaxYear(), m.Year)
		weightedSum += w * avgZ
		weightTotal += w

		if pct, ok := ix.PercentRank(m); ok {
			pctSum += pct
		} else {
			pctSum += 50
		}
		years = append(years, m.Year)
	}
	sort.Ints(years)

	rawZ := weightedSum / math.Max(weightTotal, madFloor)

	// Peer attribution comes from the most recent year's resolution.
	latest := rows[0]
	for _, m := range rows[1:] {
		if m.Year > latest.Year {
			latest = m
		}
	}
	level, count := ix.Resolve(latest.Taxonomy, latest.State, latest.Year)

	return BillingResult{
		Score:        Round2(MapToScore(rawZ)),
		Percentile:   Round2(pctSum / float64(len(rows))),
		PeerLevel:    level,
		PeerTaxonomy: latest.Taxonomy,
		PeerState:    latest.State,
		PeerCount:    count,
		Years:        years,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Component 3 — payment trajectory
// ─────────────────────────────────────────────────────────────────────────────

// TrajectoryResult carries the payment trajectory component and its persisted
// decayed z-score.
type TrajectoryResult struct {
	Score  float64
	ZScore float64
}

// ComputeTrajectory scores year-over-year payment growth against peers using
// the same robust-z / decay machinery as billing.  A provider with fewer than
// two observed years has no growth series and scores 0.
func ComputeTrajectory(rows []YearMetrics, ix *PeerIndex, params Params) TrajectoryResult {
	var (
		weightedSum float64
		weightTotal float64
		seen        bool
	)
	for _, m := range rows {
		if !m.HasGrowth {
			continue
		}
		seen = true
		z := math.Max(ix.GrowthZ(m), 0)
		w := DecayWeight(params.DecayAlpha, ix.MaxYear(), m.Year)
		weightedSum += w * z
		weightTotal += w
	}
	if !seen {
		return TrajectoryResult{}
	}
	zbar := weightedSum / math.Max(weightTotal, madFloor)
	return TrajectoryResult{
		Score:  Round2(MapToScore(zbar)),
		ZScore: Round4(zbar),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Component 5 — program concentration
// ─────────────────────────────────────────────────────────────────────────────

// ConcentrationResult carries the concentration score and the dominant
// program, which feeds flag text.
type ConcentrationResult struct {
	Score      float64
	TopProgram string
}

// ComputeConcentration measures how much of a provider's recent payment
// volume sits in a single payer program.  Shares at or below one half score
// zero; above that the score ramps linearly, reaching 100 at full
// concentration: min(100, 200·(s−0.5)).
//
// rows must already be restricted to the concentration window; a provider
// with no rows in the window scores 0.
func ComputeConcentration(rows []provider.PaymentRow) ConcentrationResult {
	if len(rows) == 0 {
		return ConcentrationResult{}
	}
	byProgram := make(map[string]float64)
	var grand float64
	for _, r := range rows {
		byProgram[r.Program] += r.Payments
		grand += r.Payments
	}

	var (
		maxShare   float64
		topProgram string
		topTotal   float64
	)
	// Deterministic tie-break on program name.
	programs := make([]string, 0, len(byProgram))
	for p := range byProgram {
		programs = append(programs, p)
	}
	sort.Strings(programs)
	for _, p := range programs {
		total := byProgram[p]
		share := total / math.Max(grand, 1)
		if share > maxShare {
			maxShare = share
		}
		if total > topTotal {
			topTotal = total
			topProgram = p
		}
	}

	score := 0.0
	if maxShare > 0.5 {
		score = math.Min(100, 200*(maxShare-0.5))
	}
	return ConcentrationResult{Score: Round2(score), TopProgram: topProgram}
}

// RecentWindow filters payment rows to the concentration window ending at the
// population's most recent year.
func RecentWindow(rows []provider.PaymentRow, maxYear, years int) []provider.PaymentRow {
	out := make([]provider.PaymentRow, 0, len(rows))
	for _, r := range rows {
		if r.Year > maxYear-years {
			out = append(out, r)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Component 4 — exclusion proximity
// ─────────────────────────────────────────────────────────────────────────────

// Exclusion proximity rule scores, highest-wins.
const (
	ExclusionDirect = 100.0
	ExclusionOwner  = 80.0
	ExclusionChain  = 50.0
)

// ComputeExclusionProximity classifies how close a provider stands to a
// sanction: an active direct exclusion dominates, then an excluded direct
// owner, then any exclusion elsewhere in the ownership chain.
func ComputeExclusionProximity(directExcluded, ownerExcluded bool, chainExcludedCount int) float64 {
	switch {
	case directExcluded:
		return ExclusionDirect
	case ownerExcluded:
		return ExclusionOwner
	case chainExcludedCount > 0:
		return ExclusionChain
	default:
		return 0
	}
}
