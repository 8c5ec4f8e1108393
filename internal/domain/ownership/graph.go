package ownership

import "context"

// AdjacencyProvider is the graph store seen one hop at a time. Every
// method is batched: callers pass the whole frontier for a partition and
// get one round-trip, so traversal cost scales with hop count rather
// than entity count.
//
// Implementations return partial maps — an input with no matches simply
// has no key in the result.
type AdjacencyProvider interface {
	// MatchEntities resolves approximate provider names to corporate
	// entity nodes.
	MatchEntities(ctx context.Context, names []string) (map[string][]EntityID, error)

	// Owners returns the entities directly owning each input entity
	// (one hop upstream along "owns" edges).
	Owners(ctx context.Context, ids []EntityID) (map[EntityID][]EntityID, error)

	// Owned returns the entities directly owned by each input entity
	// (one hop downstream along "owns" edges).
	Owned(ctx context.Context, ids []EntityID) (map[EntityID][]EntityID, error)

	// ProvidersFor returns the providers associated with each entity,
	// with exclusion status attached.
	ProvidersFor(ctx context.Context, ids []EntityID) (map[EntityID][]ProviderRef, error)

	// EntityExclusions reports which of the given entities carry an
	// entity-level exclusion.
	EntityExclusions(ctx context.Context, ids []EntityID) (map[EntityID]bool, error)
}
