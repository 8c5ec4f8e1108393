// Package repositories provides the PostgreSQL-backed implementations of the
// engine's repository contracts: the read-only reference store and the
// provider_risk_scores result sink.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claidex/risk-engine/internal/domain/provider"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

// ReferenceRepository loads the reference dataset from the warehouse views.
// The reference tables are ingested and owned elsewhere; this repository only
// reads them.
type ReferenceRepository struct {
	pool        *pgxpool.Pool
	windowYears int
	logger      logging.Logger
}

// NewReferenceRepository constructs a reference loader restricted to the
// trailing windowYears of payment data.
func NewReferenceRepository(pool *pgxpool.Pool, windowYears int, logger logging.Logger) *ReferenceRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReferenceRepository{pool: pool, windowYears: windowYears, logger: logger}
}

// LoadPayments returns program-year payment aggregates inside the data
// window. A nil or empty npis slice loads the full population.
func (r *ReferenceRepository) LoadPayments(ctx context.Context, npis []string) ([]provider.PaymentRow, error) {
	minYear := time.Now().Year() - r.windowYears

	query := `
		SELECT
			npi,
			year,
			COALESCE(program, '')          AS program,
			COALESCE(taxonomy, 'Unknown')  AS taxonomy,
			COALESCE(state, 'Unknown')     AS state,
			COALESCE(payments, 0)          AS payments,
			COALESCE(claims, 0)            AS claims,
			COALESCE(beneficiaries, 0)     AS beneficiaries
		FROM payments_combined_v
		WHERE year >= $1`
	args := []any{minYear}
	if len(npis) > 0 {
		query += ` AND npi = ANY($2)`
		args = append(args, npis)
	}
	query += ` ORDER BY npi, year, program`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "querying payment rows")
	}
	defer rows.Close()

	var out []provider.PaymentRow
	for rows.Next() {
		var p provider.PaymentRow
		if err := rows.Scan(&p.NPI, &p.Year, &p.Program, &p.Taxonomy, &p.State,
			&p.Payments, &p.Claims, &p.Beneficiaries); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeReferenceParse, "scanning payment row")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "reading payment rows")
	}
	r.logger.Debug("loaded payment rows",
		logging.Int("rows", len(out)),
		logging.Int("min_year", minYear))
	return out, nil
}

// LoadProviders returns provider records for the selection.
func (r *ReferenceRepository) LoadProviders(ctx context.Context, npis []string) ([]provider.Provider, error) {
	query := `
		SELECT
			npi,
			COALESCE(display_name, '')       AS display_name,
			COALESCE(taxonomy_1, 'Unknown')  AS taxonomy_1,
			COALESCE(state, 'Unknown')       AS state
		FROM providers`
	args := []any{}
	if len(npis) > 0 {
		query += ` WHERE npi = ANY($1)`
		args = append(args, npis)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "querying providers")
	}
	defer rows.Close()

	var out []provider.Provider
	for rows.Next() {
		var p provider.Provider
		if err := rows.Scan(&p.NPI, &p.Name, &p.Taxonomy, &p.State); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeReferenceParse, "scanning provider")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "reading providers")
	}
	return out, nil
}

// LoadExclusions returns exclusion records for the selection.
func (r *ReferenceRepository) LoadExclusions(ctx context.Context, npis []string) ([]provider.Exclusion, error) {
	query := `
		SELECT
			npi,
			COALESCE(excldate, '')       AS excldate,
			COALESCE(reinstated, FALSE)  AS reinstated
		FROM exclusions`
	args := []any{}
	if len(npis) > 0 {
		query += ` WHERE npi = ANY($1)`
		args = append(args, npis)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "querying exclusions")
	}
	defer rows.Close()

	var out []provider.Exclusion
	for rows.Next() {
		var e provider.Exclusion
		if err := rows.Scan(&e.NPI, &e.ExclDate, &e.Reinstated); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeReferenceParse, "scanning exclusion")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "reading exclusions")
	}
	return out, nil
}
