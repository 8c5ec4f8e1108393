package repositories

import (
	"context"
	"encoding/json"
	stdliberrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

// upsertPageSize bounds how many statements share one pgx batch round-trip.
const upsertPageSize = 500

const upsertSQL = `
	INSERT INTO provider_risk_scores (
		npi, risk_score, risk_label, r_raw,
		billing_outlier_score, billing_outlier_percentile,
		ownership_chain_risk,
		payment_trajectory_score, payment_trajectory_zscore,
		exclusion_proximity_score, program_concentration_score,
		chain_excluded_count, top_program,
		peer_taxonomy, peer_state, peer_level, peer_count,
		data_window_years, flags, components, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6,
		$7,
		$8, $9,
		$10, $11,
		$12, $13,
		$14, $15, $16, $17,
		$18, $19, $20, $21
	)
	ON CONFLICT (npi) DO UPDATE SET
		risk_score                  = EXCLUDED.risk_score,
		risk_label                  = EXCLUDED.risk_label,
		r_raw                       = EXCLUDED.r_raw,
		billing_outlier_score       = EXCLUDED.billing_outlier_score,
		billing_outlier_percentile  = EXCLUDED.billing_outlier_percentile,
		ownership_chain_risk        = EXCLUDED.ownership_chain_risk,
		payment_trajectory_score    = EXCLUDED.payment_trajectory_score,
		payment_trajectory_zscore   = EXCLUDED.payment_trajectory_zscore,
		exclusion_proximity_score   = EXCLUDED.exclusion_proximity_score,
		program_concentration_score = EXCLUDED.program_concentration_score,
		chain_excluded_count        = EXCLUDED.chain_excluded_count,
		top_program                 = EXCLUDED.top_program,
		peer_taxonomy               = EXCLUDED.peer_taxonomy,
		peer_state                  = EXCLUDED.peer_state,
		peer_level                  = EXCLUDED.peer_level,
		peer_count                  = EXCLUDED.peer_count,
		data_window_years           = EXCLUDED.data_window_years,
		flags                       = EXCLUDED.flags,
		components                  = EXCLUDED.components,
		updated_at                  = EXCLUDED.updated_at`

const selectSQL = `
	SELECT
		npi, risk_score, risk_label, r_raw,
		billing_outlier_score, billing_outlier_percentile,
		ownership_chain_risk,
		payment_trajectory_score, payment_trajectory_zscore,
		exclusion_proximity_score, program_concentration_score,
		chain_excluded_count, top_program,
		peer_taxonomy, peer_state, peer_level, peer_count,
		data_window_years, flags, updated_at
	FROM provider_risk_scores
	WHERE npi = $1`

// RiskScoreRepository is the provider_risk_scores result sink. Writes are
// idempotent whole-record upserts keyed by NPI, so re-running a scoring run
// converges on the same rows.
type RiskScoreRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRiskScoreRepository constructs the result sink repository.
func NewRiskScoreRepository(pool *pgxpool.Pool, logger logging.Logger) *RiskScoreRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RiskScoreRepository{pool: pool, logger: logger}
}

// BulkUpsert writes scored records in pages inside a single transaction.
func (r *RiskScoreRepository) BulkUpsert(ctx context.Context, scores []scoring.RiskScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "beginning upsert transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for start := 0; start < len(scores); start += upsertPageSize {
		end := start + upsertPageSize
		if end > len(scores) {
			end = len(scores)
		}

		batch := &pgx.Batch{}
		for _, s := range scores[start:end] {
			args, err := upsertArgs(s)
			if err != nil {
				return err
			}
			batch.Queue(upsertSQL, args...)
		}

		br := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close() //nolint:errcheck
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "upserting risk score")
			}
		}
		if err := br.Close(); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "closing upsert batch")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "committing upsert transaction")
	}
	r.logger.Info("risk scores upserted", logging.Int("rows", len(scores)))
	return nil
}

// GetByNPI returns one scored record. A missing row is a normal condition
// reported with ErrCodeScoreNotFound.
func (r *RiskScoreRepository) GetByNPI(ctx context.Context, npi string) (*scoring.RiskScore, error) {
	var (
		s          scoring.RiskScore
		years      []int32
		flagsJSON  []byte
	)
	err := r.pool.QueryRow(ctx, selectSQL, npi).Scan(
		&s.NPI, &s.RiskScore, &s.RiskLabel, &s.RRaw,
		&s.Components.BillingOutlierScore, &s.Components.BillingOutlierPercentile,
		&s.Components.OwnershipChainRisk,
		&s.Components.PaymentTrajectoryScore, &s.Components.PaymentTrajectoryZScore,
		&s.Components.ExclusionProximityScore, &s.Components.ProgramConcentrationScore,
		&s.ChainExcludedCount, &s.TopProgram,
		&s.PeerTaxonomy, &s.PeerState, &s.PeerLevel, &s.PeerCount,
		&years, &flagsJSON, &s.UpdatedAt,
	)
	if err != nil {
		if stdliberrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeScoreNotFound, "no risk score for npi %s", npi)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying risk score")
	}

	s.DataWindowYears = make([]int, 0, len(years))
	for _, y := range years {
		s.DataWindowYears = append(s.DataWindowYears, int(y))
	}
	if err := json.Unmarshal(flagsJSON, &s.Flags); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding flags")
	}
	return &s, nil
}

// upsertArgs maps a scored record to the upsert parameter list.
func upsertArgs(s scoring.RiskScore) ([]any, error) {
	flagsJSON, err := json.Marshal(s.Flags)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding flags")
	}
	componentsJSON, err := json.Marshal(s.Components)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding components")
	}
	years := make([]int32, 0, len(s.DataWindowYears))
	for _, y := range s.DataWindowYears {
		years = append(years, int32(y))
	}
	return []any{
		s.NPI, s.RiskScore, s.RiskLabel, s.RRaw,
		s.Components.BillingOutlierScore, s.Components.BillingOutlierPercentile,
		s.Components.OwnershipChainRisk,
		s.Components.PaymentTrajectoryScore, s.Components.PaymentTrajectoryZScore,
		s.Components.ExclusionProximityScore, s.Components.ProgramConcentrationScore,
		s.ChainExcludedCount, s.TopProgram,
		s.PeerTaxonomy, s.PeerState, s.PeerLevel, s.PeerCount,
		years, flagsJSON, componentsJSON, s.UpdatedAt,
	}, nil
}
