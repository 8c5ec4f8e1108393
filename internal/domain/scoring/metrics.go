package scoring

import (
	"math"
	"sort"

	"github.com/claidex/risk-engine/internal/domain/provider"
)

// YearMetrics is one provider-year observation after aggregating payment rows
// across programs.  The three comparison metrics are log-transformed before
// peer comparison so multiplicative differences become additive.
type YearMetrics struct {
	NPI      string
	Year     int
	Taxonomy string // 10-char peer prefix
	State    string

	TotalPayments      float64
	TotalClaims        float64
	TotalBeneficiaries float64

	// M1 is payment intensity (payments per claim), untransformed; it feeds
	// the billing percentile rank.
	M1 float64

	// LM1..LM3 are ln(metric + 1) of intensity, utilization, and volume.
	LM1 float64
	LM2 float64
	LM3 float64

	// Growth is the year-over-year payment growth rate relative to the
	// provider's previous observed year.  HasGrowth is false for the first
	// observed year.
	Growth    float64
	HasGrowth bool
}

// Eligible reports whether this provider-year counts as a peer for group
// statistics under params.
func (m YearMetrics) Eligible(params Params) bool {
	return m.TotalClaims >= float64(params.PeerMinClaims)
}

// AggregateMetrics collapses program-level payment rows into provider-year
// metrics and derives the growth series.  The result is sorted by (npi, year).
func AggregateMetrics(rows []provider.PaymentRow) []YearMetrics {
	type key struct {
		npi  string
		year int
	}
	acc := make(map[key]*YearMetrics)
	for _, r := range rows {
		k := key{r.NPI, r.Year}
		m, ok := acc[k]
		if !ok {
			m = &YearMetrics{
				NPI:      r.NPI,
				Year:     r.Year,
				Taxonomy: provider.TaxonomyPrefix(r.Taxonomy),
				State:    r.State,
			}
			acc[k] = m
		}
		m.TotalPayments += r.Payments
		m.TotalClaims += r.Claims
		m.TotalBeneficiaries += r.Beneficiaries
	}

	out := make([]YearMetrics, 0, len(acc))
	for _, m := range acc {
		m.M1 = m.TotalPayments / math.Max(m.TotalClaims, 1)
		m2 := m.TotalClaims / math.Max(m.TotalBeneficiaries, 1)
		m.LM1 = math.Log(m.M1 + LogEpsilon)
		m.LM2 = math.Log(m2 + LogEpsilon)
		m.LM3 = math.Log(m.TotalPayments + LogEpsilon)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NPI != out[j].NPI {
			return out[i].NPI < out[j].NPI
		}
		return out[i].Year < out[j].Year
	})

	// Year-over-year growth against the previous observed year.
	for i := range out {
		if i == 0 || out[i].NPI != out[i-1].NPI {
			continue
		}
		prev := out[i-1].TotalPayments
		out[i].Growth = (out[i].TotalPayments - prev) / math.Max(prev, 1)
		out[i].HasGrowth = true
	}
	return out
}

// MaxYear returns the most recent year present in metrics, or 0 when empty.
func MaxYear(metrics []YearMetrics) int {
	max := 0
	for _, m := range metrics {
		if m.Year > max {
			max = m.Year
		}
	}
	return max
}

// ByNPI groups metrics rows per provider, preserving year order.
func ByNPI(metrics []YearMetrics) map[string][]YearMetrics {
	out := make(map[string][]YearMetrics)
	for _, m := range metrics {
		out[m.NPI] = append(out[m.NPI], m)
	}
	return out
}
