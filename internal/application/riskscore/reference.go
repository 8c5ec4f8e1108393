package riskscore

import (
	"sort"

	"github.com/claidex/risk-engine/internal/domain/provider"
	"github.com/claidex/risk-engine/internal/domain/scoring"
)

// Reference is the full tabular dataset a run scores against, indexed for
// per-provider lookup. Every worker shares one immutable Reference: peer
// statistics need visibility into the entire population, not just a worker's
// partition.
type Reference struct {
	Params scoring.Params

	// Rows and Metrics are grouped per NPI; Metrics rows are year-ordered.
	Rows    map[string][]provider.PaymentRow
	Metrics map[string][]scoring.YearMetrics

	Providers map[string]provider.Provider

	// Excluded is the set of NPIs with an active direct exclusion.
	Excluded map[string]bool

	Index   *scoring.PeerIndex
	MaxYear int

	// NPIs is the scoring population, sorted. Providers known to the
	// reference store define the population; payment rows without a provider
	// record still contribute to peer statistics.
	NPIs []string
}

// BuildReference indexes the loaded reference data and precomputes the peer
// index. It is called once per run.
func BuildReference(
	rows []provider.PaymentRow,
	providers []provider.Provider,
	exclusions []provider.Exclusion,
	params scoring.Params,
) *Reference {
	metrics := scoring.AggregateMetrics(rows)

	ref := &Reference{
		Params:    params,
		Rows:      make(map[string][]provider.PaymentRow),
		Metrics:   scoring.ByNPI(metrics),
		Providers: make(map[string]provider.Provider, len(providers)),
		Excluded:  provider.ActiveExclusionSet(exclusions),
		Index:     scoring.BuildPeerIndex(metrics, params),
		MaxYear:   scoring.MaxYear(metrics),
	}
	for _, r := range rows {
		ref.Rows[r.NPI] = append(ref.Rows[r.NPI], r)
	}

	seen := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		ref.Providers[p.NPI] = p
		seen[p.NPI] = struct{}{}
	}
	if len(seen) == 0 {
		for npi := range ref.Rows {
			seen[npi] = struct{}{}
		}
	}
	ref.NPIs = make([]string, 0, len(seen))
	for npi := range seen {
		ref.NPIs = append(ref.NPIs, npi)
	}
	sort.Strings(ref.NPIs)
	return ref
}
