package riskscore

import (
	"context"
	"sort"
	"time"

	"github.com/claidex/risk-engine/internal/domain/ownership"
	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
)

// Pipeline computes uncalibrated risk scores for one partition of the
// population. All five components except ownership are pure in-memory
// computations against the shared Reference; ownership is the single
// external round-trip and it is batched per partition.
type Pipeline struct {
	resolver ChainResolver
	metrics  Metrics
	log      logging.Logger
}

// NewPipeline builds a pipeline. resolver may be nil when no graph store is
// configured; the ownership component then scores 0 for every provider.
func NewPipeline(resolver ChainResolver, metrics Metrics, log logging.Logger) *Pipeline {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Pipeline{resolver: resolver, metrics: metrics, log: log}
}

// ComputePartition scores the given NPIs against the full reference dataset.
// Results are uncalibrated (RiskScore/RiskLabel zero) and sorted by NPI.
//
// A failed or absent graph store degrades the ownership and chain-derived
// exclusion signals to zero for the partition; it never fails the partition.
func (p *Pipeline) ComputePartition(ctx context.Context, ref *Reference, npis []string) ([]scoring.RiskScore, error) {
	chains := p.resolveChains(ctx, ref, npis)

	now := time.Now().UTC()
	out := make([]scoring.RiskScore, 0, len(npis))
	for _, npi := range npis {
		rows := ref.Metrics[npi]

		billing := scoring.ComputeBilling(rows, ref.Index, ref.Params)
		trajectory := scoring.ComputeTrajectory(rows, ref.Index, ref.Params)
		concentration := scoring.ComputeConcentration(
			scoring.RecentWindow(ref.Rows[npi], ref.MaxYear, ref.Params.ConcentrationYears))

		chain := chains[npi]
		exclusion := scoring.ComputeExclusionProximity(
			ref.Excluded[npi], chain.OwnerExcluded, chain.ExcludedCount)

		components := scoring.Components{
			BillingOutlierScore:       billing.Score,
			BillingOutlierPercentile:  billing.Percentile,
			OwnershipChainRisk:        scoring.Round2(chain.Score()),
			PaymentTrajectoryScore:    trajectory.Score,
			PaymentTrajectoryZScore:   trajectory.ZScore,
			ExclusionProximityScore:   exclusion,
			ProgramConcentrationScore: concentration.Score,
		}

		out = append(out, scoring.RiskScore{
			NPI:                npi,
			RRaw:               scoring.RawComposite(components),
			Components:         components,
			ChainExcludedCount: chain.ExcludedCount,
			TopProgram:         concentration.TopProgram,
			PeerTaxonomy:       billing.PeerTaxonomy,
			PeerState:          billing.PeerState,
			PeerLevel:          billing.PeerLevel.String(),
			PeerCount:          billing.PeerCount,
			DataWindowYears:    billing.Years,
			Flags:              scoring.GenerateFlags(components, chain.ExcludedCount, concentration.TopProgram),
			UpdatedAt:          now,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NPI < out[j].NPI })
	return out, ctx.Err()
}

// resolveChains performs the partition's single graph round-trip. Any
// failure yields zero chain statistics for every NPI.
func (p *Pipeline) resolveChains(ctx context.Context, ref *Reference, npis []string) map[string]ownership.ChainStats {
	if p.resolver == nil {
		return map[string]ownership.ChainStats{}
	}
	seeds := make([]ownership.Seed, 0, len(npis))
	for _, npi := range npis {
		prov, ok := ref.Providers[npi]
		if !ok || prov.Name == "" {
			continue
		}
		seeds = append(seeds, ownership.Seed{NPI: npi, Name: prov.Name})
	}
	if len(seeds) == 0 {
		return map[string]ownership.ChainStats{}
	}
	chains, err := p.resolver.ResolveBatch(ctx, seeds)
	if err != nil {
		p.metrics.GraphDegraded()
		p.log.Warn("ownership graph unavailable, scoring partition without chain signals",
			logging.Int("partition_size", len(npis)),
			logging.Err(err))
		return map[string]ownership.ChainStats{}
	}
	return chains
}
