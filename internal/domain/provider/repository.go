package provider

import "context"

// ReferenceRepository loads the reference dataset a run scores against.
// Implementations live under internal/infrastructure/database/postgres.
//
// All three loaders accept an optional NPI subset; a nil or empty slice means
// the full population.  Payment rows are restricted to the configured data
// window by the implementation.
type ReferenceRepository interface {
	// LoadPayments returns program-year payment aggregates for the window
	// [currentYear-windowYears, currentYear].
	LoadPayments(ctx context.Context, npis []string) ([]PaymentRow, error)

	// LoadProviders returns the provider records for the selection.
	LoadProviders(ctx context.Context, npis []string) ([]Provider, error)

	// LoadExclusions returns exclusion records for the selection.
	LoadExclusions(ctx context.Context, npis []string) ([]Exclusion, error)
}
