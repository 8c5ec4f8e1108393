// Package ownership resolves risk propagated through corporate ownership
// chains. Providers are linked to corporate entities by approximate name
// match; entities are connected by directed "owns" edges that may form
// cycles, so every traversal here is hop-bounded and frontier-bounded.
package ownership

// EntityID identifies a corporate entity node in the graph store.
type EntityID string

// Seed is one provider whose ownership chain should be resolved.
type Seed struct {
	NPI  string
	Name string
}

// ProviderRef is a provider attached to a corporate entity, with its
// exclusion status resolved at the graph layer so counting the chain
// needs no second round-trip.
type ProviderRef struct {
	NPI      string
	Excluded bool
}

// ChainStats summarises one provider's expanded ownership chain.
type ChainStats struct {
	// ProviderCount is the number of distinct providers associated with
	// any entity in the bowtie expansion.
	ProviderCount int

	// ExcludedCount is how many of those providers carry an exclusion.
	ExcludedCount int

	// OwnerExcluded reports whether a matched entity or one of its
	// direct owners carries an entity-level exclusion.
	OwnerExcluded bool

	// Truncated is set when the frontier guard stopped the expansion
	// early; counts are then a lower bound.
	Truncated bool
}

// Score maps chain counts to the 0–100 ownership risk component. Every
// excluded provider in the chain counts at full weight regardless of
// distance. A provider with no resolvable chain scores 0.
func (s ChainStats) Score() float64 {
	total := s.ProviderCount
	if total < 1 {
		total = 1
	}
	score := 100.0 * float64(s.ExcludedCount) / float64(total)
	if score > 100 {
		score = 100
	}
	return score
}
