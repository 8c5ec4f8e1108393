package ownership

import (
	"context"
	"sort"

	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

// Resolver performs the bowtie expansion for a batch of seeds: climb the
// ownership chain from each matched entity, then descend again from the
// collected ancestors. All seeds in a batch advance through the graph in
// lockstep so each hop costs one round-trip for the whole batch.
type Resolver struct {
	adj         AdjacencyProvider
	maxHops     int
	maxFrontier int
	log         logging.Logger
}

// NewResolver builds a resolver. maxHops bounds each traversal direction
// and maxFrontier caps the total number of distinct entities visited for
// the batch; both must be positive.
func NewResolver(adj AdjacencyProvider, maxHops, maxFrontier int, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resolver{adj: adj, maxHops: maxHops, maxFrontier: maxFrontier, log: log}
}

// seedSets tracks, per seed index, which entities the expansion has
// reached so far.
type seedSets []map[EntityID]struct{}

func (ss seedSets) add(seed int, id EntityID) bool {
	set := ss[seed]
	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}
	return true
}

func (ss seedSets) total() int {
	n := 0
	for _, set := range ss {
		n += len(set)
	}
	return n
}

// frontier maps each entity awaiting expansion to the seeds that reached
// it. Keys are queried once per hop regardless of how many seeds share
// them.
type frontier map[EntityID][]int

func (f frontier) ids() []EntityID {
	ids := make([]EntityID, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResolveBatch resolves chain statistics for every seed, keyed by NPI.
// Seeds whose name matches no corporate entity get zero stats. Any graph
// round-trip failure aborts the whole batch; the caller decides how to
// degrade.
func (r *Resolver) ResolveBatch(ctx context.Context, seeds []Seed) (map[string]ChainStats, error) {
	out := make(map[string]ChainStats, len(seeds))
	for _, s := range seeds {
		out[s.NPI] = ChainStats{}
	}
	if len(seeds) == 0 {
		return out, nil
	}

	names := make([]string, len(seeds))
	for i, s := range seeds {
		names[i] = s.Name
	}
	matched, err := r.adj.MatchEntities(ctx, names)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphQueryFailed, "matching seed entities")
	}

	members := make(seedSets, len(seeds))
	directOwners := make(seedSets, len(seeds))
	cur := frontier{}
	for i, s := range seeds {
		members[i] = make(map[EntityID]struct{})
		directOwners[i] = make(map[EntityID]struct{})
		for _, id := range matched[s.Name] {
			if members.add(i, id) {
				cur[id] = append(cur[id], i)
			}
			directOwners[i][id] = struct{}{}
		}
	}

	// Upstream: collect ancestors up to maxHops away. Direct owners of
	// the matched entities (hop 1) also feed the owner-exclusion check.
	truncated := false
	for hop := 1; hop <= r.maxHops && len(cur) > 0; hop++ {
		if members.total() > r.maxFrontier {
			truncated = true
			break
		}
		owners, err := r.adj.Owners(ctx, cur.ids())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeGraphQueryFailed, "expanding owners")
		}
		next := frontier{}
		for id, seedIdx := range cur {
			for _, owner := range owners[id] {
				for _, si := range seedIdx {
					if hop == 1 {
						directOwners[si][owner] = struct{}{}
					}
					if members.add(si, owner) {
						next[owner] = append(next[owner], si)
					}
				}
			}
		}
		cur = next
	}

	// Downstream: from everything collected so far, descend again to pick
	// up sibling entities under the same ancestors.
	cur = frontier{}
	for si, set := range members {
		for id := range set {
			cur[id] = append(cur[id], si)
		}
	}
	for hop := 1; hop <= r.maxHops && len(cur) > 0; hop++ {
		if members.total() > r.maxFrontier {
			truncated = true
			break
		}
		owned, err := r.adj.Owned(ctx, cur.ids())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeGraphQueryFailed, "expanding owned entities")
		}
		next := frontier{}
		for id, seedIdx := range cur {
			for _, child := range owned[id] {
				for _, si := range seedIdx {
					if members.add(si, child) {
						next[child] = append(next[child], si)
					}
				}
			}
		}
		cur = next
	}

	if truncated {
		r.log.Warn("ownership expansion truncated by frontier guard",
			logging.Int("seeds", len(seeds)),
			logging.Int("visited", members.total()),
			logging.Int("max_frontier", r.maxFrontier))
	}

	// One round-trip each for provider links and entity exclusions.
	all := make(map[EntityID]struct{})
	for _, set := range members {
		for id := range set {
			all[id] = struct{}{}
		}
	}
	allIDs := make([]EntityID, 0, len(all))
	for id := range all {
		allIDs = append(allIDs, id)
	}
	sort.Slice(allIDs, func(i, j int) bool { return allIDs[i] < allIDs[j] })

	links, err := r.adj.ProvidersFor(ctx, allIDs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphQueryFailed, "resolving chain providers")
	}

	ownerUnion := make(map[EntityID]struct{})
	for _, set := range directOwners {
		for id := range set {
			ownerUnion[id] = struct{}{}
		}
	}
	ownerIDs := make([]EntityID, 0, len(ownerUnion))
	for id := range ownerUnion {
		ownerIDs = append(ownerIDs, id)
	}
	sort.Slice(ownerIDs, func(i, j int) bool { return ownerIDs[i] < ownerIDs[j] })
	excluded, err := r.adj.EntityExclusions(ctx, ownerIDs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphQueryFailed, "checking owner exclusions")
	}

	for i := range seeds {
		stats := ChainStats{Truncated: truncated}
		seen := map[string]struct{}{}
		for id := range members[i] {
			for _, ref := range links[id] {
				if _, dup := seen[ref.NPI]; dup {
					continue
				}
				seen[ref.NPI] = struct{}{}
				stats.ProviderCount++
				if ref.Excluded {
					stats.ExcludedCount++
				}
			}
		}
		// Matched entities and their direct owners form the owner tier.
		for id := range directOwners[i] {
			if excluded[id] {
				stats.OwnerExcluded = true
				break
			}
		}
		out[seeds[i].NPI] = stats
	}
	return out, nil
}
