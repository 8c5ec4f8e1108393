// Package provider defines the provider bounded context: the reference
// entities a risk run consumes (providers, payment rows, exclusions) and the
// repository contracts the infrastructure layer implements.  All scoring
// arithmetic lives in the scoring package; this package only carries data and
// basic derivations.
package provider

import "strings"

// taxonomyPrefixLen is the number of leading taxonomy characters used for
// peer grouping.  Full taxonomy codes are 10 characters; truncation guards
// against dirty upstream data with suffixes.
const taxonomyPrefixLen = 10

// Provider is a billing provider as known to the reference store.
type Provider struct {
	// NPI is the 10-digit national provider identifier and the primary key
	// across every store in the engine.
	NPI string `json:"npi"`

	// Name is the provider's organisation or individual name, used for fuzzy
	// matching against corporate entities in the ownership graph.
	Name string `json:"name"`

	// Taxonomy is the provider's primary taxonomy code.
	Taxonomy string `json:"taxonomy"`

	// State is the two-letter practice state.
	State string `json:"state"`
}

// TaxonomyPrefix returns the 10-character peer-grouping prefix of the
// provider's taxonomy code, upper-cased.
func (p Provider) TaxonomyPrefix() string {
	return TaxonomyPrefix(p.Taxonomy)
}

// TaxonomyPrefix normalises a raw taxonomy code to the peer-grouping prefix.
func TaxonomyPrefix(taxonomy string) string {
	t := strings.ToUpper(strings.TrimSpace(taxonomy))
	if len(t) > taxonomyPrefixLen {
		return t[:taxonomyPrefixLen]
	}
	return t
}

// PaymentRow is one program-year payment aggregate for a provider, as loaded
// from the reference store.  Rows are already summed per (npi, year, program).
type PaymentRow struct {
	NPI           string  `json:"npi"`
	Year          int     `json:"year"`
	Program       string  `json:"program"`
	Taxonomy      string  `json:"taxonomy"`
	State         string  `json:"state"`
	Payments      float64 `json:"payments"`
	Claims        float64 `json:"claims"`
	Beneficiaries float64 `json:"beneficiaries"`
}

// Exclusion is a sanction record for a provider.  An exclusion is active when
// it has not been reinstated.
type Exclusion struct {
	NPI        string `json:"npi"`
	ExclDate   string `json:"excl_date"`
	Reinstated bool   `json:"reinstated"`
}

// Active reports whether the exclusion currently stands.
func (e Exclusion) Active() bool { return !e.Reinstated }

// ActiveExclusionSet collapses a list of exclusion records into the set of
// NPIs with at least one active exclusion.
func ActiveExclusionSet(exclusions []Exclusion) map[string]bool {
	out := make(map[string]bool)
	for _, e := range exclusions {
		if e.Active() {
			out[e.NPI] = true
		}
	}
	return out
}
