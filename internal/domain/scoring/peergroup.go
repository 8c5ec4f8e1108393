package scoring

import "sort"

// PeerLevel identifies which peer tier a provider-year was compared against.
type PeerLevel int

const (
	// PeerLevelState compares within (taxonomy prefix, state).
	PeerLevelState PeerLevel = iota + 1
	// PeerLevelRegion compares within (taxonomy prefix, census division).
	PeerLevelRegion
	// PeerLevelNational compares within taxonomy prefix nationwide.
	PeerLevelNational
)

func (l PeerLevel) String() string {
	switch l {
	case PeerLevelState:
		return "state"
	case PeerLevelRegion:
		return "region"
	case PeerLevelNational:
		return "national"
	default:
		return "unknown"
	}
}

// censusDivision maps a state code to its census division, the scope of the
// middle peer tier.  States or territories not listed fall straight through
// to the national tier.
var censusDivision = map[string]string{
	"CT": "new-england", "ME": "new-england", "MA": "new-england",
	"NH": "new-england", "RI": "new-england", "VT": "new-england",

	"NJ": "middle-atlantic", "NY": "middle-atlantic", "PA": "middle-atlantic",

	"IL": "east-north-central", "IN": "east-north-central", "MI": "east-north-central",
	"OH": "east-north-central", "WI": "east-north-central",

	"IA": "west-north-central", "KS": "west-north-central", "MN": "west-north-central",
	"MO": "west-north-central", "NE": "west-north-central", "ND": "west-north-central",
	"SD": "west-north-central",

	"DE": "south-atlantic", "FL": "south-atlantic", "GA": "south-atlantic",
	"MD": "south-atlantic", "NC": "south-atlantic", "SC": "south-atlantic",
	"VA": "south-atlantic", "DC": "south-atlantic", "WV": "south-atlantic",

	"AL": "east-south-central", "KY": "east-south-central", "MS": "east-south-central",
	"TN": "east-south-central",

	"AR": "west-south-central", "LA": "west-south-central", "OK": "west-south-central",
	"TX": "west-south-central",

	"AZ": "mountain", "CO": "mountain", "ID": "mountain", "MT": "mountain",
	"NV": "mountain", "NM": "mountain", "UT": "mountain", "WY": "mountain",

	"AK": "pacific", "CA": "pacific", "HI": "pacific", "OR": "pacific",
	"WA": "pacific",
}

// CensusDivision returns the census division for a state code, or "" when the
// state has no division mapping.
func CensusDivision(state string) string {
	return censusDivision[state]
}

// peerKey addresses one peer group at one tier for one year.
type peerKey struct {
	level    PeerLevel
	taxonomy string
	scope    string // state, census division, or "" for national
	year     int
}

// groupStats accumulates member observations for one peer group and exposes
// the derived robust statistics.  Build appends; finalize sorts and caches.
type groupStats struct {
	lm1, lm2, lm3 []float64
	m1Sorted      []float64
	growth        []float64

	medLM1, madLM1 float64
	medLM2, madLM2 float64
	medLM3, madLM3 float64
	medGr, madGr   float64
}

func (g *groupStats) finalize() {
	g.medLM1, g.madLM1 = Median(g.lm1), MAD(g.lm1)
	g.medLM2, g.madLM2 = Median(g.lm2), MAD(g.lm2)
	g.medLM3, g.madLM3 = Median(g.lm3), MAD(g.lm3)
	g.medGr, g.madGr = Median(g.growth), MAD(g.growth)
	sort.Float64s(g.m1Sorted)
}

// PeerIndex holds the peer-group statistics for a full population and
// resolves the tier cascade per provider-year.  It is built once per run from
// the complete reference dataset and then shared read-only across partition
// workers, which is what makes partitioning invisible to the scores.
type PeerIndex struct {
	params  Params
	maxYear int
	groups  map[peerKey]*groupStats
}

// BuildPeerIndex computes peer statistics at all three tiers from the full
// population's provider-year metrics.
//
// Metric statistics (and percentile ranks) include only eligible
// provider-years — those with at least PeerMinClaims yearly claims — so that
// hobby-volume providers cannot drag group medians.  Growth statistics include
// every provider-year with a defined growth rate.
func BuildPeerIndex(metrics []YearMetrics, params Params) *PeerIndex {
	ix := &PeerIndex{
		params:  params,
		maxYear: MaxYear(metrics),
		groups:  make(map[peerKey]*groupStats),
	}

	group := func(k peerKey) *groupStats {
		g, ok := ix.groups[k]
		if !ok {
			g = &groupStats{}
			ix.groups[k] = g
		}
		return g
	}

	for _, m := range metrics {
		for _, k := range ix.keysFor(m.Taxonomy, m.State, m.Year) {
			g := group(k)
			if m.Eligible(params) {
				g.lm1 = append(g.lm1, m.LM1)
				g.lm2 = append(g.lm2, m.LM2)
				g.lm3 = append(g.lm3, m.LM3)
				g.m1Sorted = append(g.m1Sorted, m.M1)
			}
			if m.HasGrowth {
				g.growth = append(g.growth, m.Growth)
			}
		}
	}
	for _, g := range ix.groups {
		g.finalize()
	}
	return ix
}

// keysFor lists the tier keys a provider-year belongs to.  The region key is
// omitted when the state has no census division.
func (ix *PeerIndex) keysFor(taxonomy, state string, year int) []peerKey {
	keys := []peerKey{
		{PeerLevelState, taxonomy, state, year},
	}
	if div := CensusDivision(state); div != "" {
		keys = append(keys, peerKey{PeerLevelRegion, taxonomy, div, year})
	}
	keys = append(keys, peerKey{PeerLevelNational, taxonomy, "", year})
	return keys
}

// MaxYear returns the most recent year in the indexed population.
func (ix *PeerIndex) MaxYear() int { return ix.maxYear }

// Resolve walks the tier cascade for one provider-year: the first tier with
// at least PeerMinSize eligible members wins; when no tier qualifies the
// national tier is used regardless of its size.
func (ix *PeerIndex) Resolve(taxonomy, state string, year int) (PeerLevel, int) {
	keys := ix.keysFor(taxonomy, state, year)
	for _, k := range keys {
		if g, ok := ix.groups[k]; ok && len(g.m1Sorted) >= ix.params.PeerMinSize {
			return k.level, len(g.m1Sorted)
		}
	}
	// National fallback regardless of count.
	nat := keys[len(keys)-1]
	if g, ok := ix.groups[nat]; ok {
		return PeerLevelNational, len(g.m1Sorted)
	}
	return PeerLevelNational, 0
}

// resolved returns the stats of the resolved group, or nil when the
// population has no observations for this taxonomy at all.
func (ix *PeerIndex) resolved(taxonomy, state string, year int) *groupStats {
	level, _ := ix.Resolve(taxonomy, state, year)
	for _, k := range ix.keysFor(taxonomy, state, year) {
		if k.level == level {
			return ix.groups[k]
		}
	}
	return nil
}

// ZScores returns the clamped robust z-scores of the row's three log metrics
// against its resolved peer group.  Rows with no peer statistics score 0.
func (ix *PeerIndex) ZScores(m YearMetrics) (z1, z2, z3 float64) {
	g := ix.resolved(m.Taxonomy, m.State, m.Year)
	if g == nil || len(g.lm1) == 0 {
		return 0, 0, 0
	}
	z1 = RobustZFromStats(m.LM1, g.medLM1, g.madLM1)
	z2 = RobustZFromStats(m.LM2, g.medLM2, g.madLM2)
	z3 = RobustZFromStats(m.LM3, g.medLM3, g.madLM3)
	return z1, z2, z3
}

// GrowthZ returns the clamped robust z-score of a growth observation against
// the resolved peer group's growth distribution, or 0 when undefined.
func (ix *PeerIndex) GrowthZ(m YearMetrics) float64 {
	if !m.HasGrowth {
		return 0
	}
	g := ix.resolved(m.Taxonomy, m.State, m.Year)
	if g == nil || len(g.growth) == 0 {
		return 0
	}
	return RobustZFromStats(m.Growth, g.medGr, g.madGr)
}

// PercentRank returns the payment-intensity percentile of the row within its
// resolved peer group, in [0, 100].  The second return is false when the rank
// is undefined (ineligible row or a group of fewer than two members); callers
// substitute the neutral 50.
func (ix *PeerIndex) PercentRank(m YearMetrics) (float64, bool) {
	if !m.Eligible(ix.params) {
		return 0, false
	}
	g := ix.resolved(m.Taxonomy, m.State, m.Year)
	if g == nil || len(g.m1Sorted) < 2 {
		return 0, false
	}
	rank := averageRank(g.m1Sorted, m.M1)
	n := float64(len(g.m1Sorted))
	return (rank - 1) / (n - 1) * 100.0, true
}
