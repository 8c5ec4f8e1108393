// Package repositories implements the ownership graph adjacency contract on
// Neo4j. Every query is UNWIND-batched so one call covers a whole partition
// frontier.
package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/claidex/risk-engine/internal/domain/ownership"
	driverpkg "github.com/claidex/risk-engine/internal/infrastructure/database/neo4j"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

// Queries keyed by elementId of the corporate entity nodes. SNF facility
// entities are the seeds; providers associate to entities by name
// containment, matching how the graph is ingested.
const (
	matchEntitiesCypher = `
		UNWIND $names AS seed
		MATCH (e:CorporateEntity)
		WHERE e.entityType = 'SNF'
		  AND toLower(e.name) CONTAINS toLower(seed)
		RETURN seed AS name, collect(DISTINCT elementId(e)) AS ids`

	ownersCypher = `
		UNWIND $ids AS id
		MATCH (e:CorporateEntity) WHERE elementId(e) = id
		MATCH (owner:CorporateEntity)-[:OWNS]->(e)
		RETURN id, collect(DISTINCT elementId(owner)) AS neighbors`

	ownedCypher = `
		UNWIND $ids AS id
		MATCH (e:CorporateEntity) WHERE elementId(e) = id
		MATCH (e)-[:OWNS]->(owned:CorporateEntity)
		RETURN id, collect(DISTINCT elementId(owned)) AS neighbors`

	providersForCypher = `
		UNWIND $ids AS id
		MATCH (e:CorporateEntity)
		WHERE elementId(e) = id AND e.name IS NOT NULL AND e.name <> ''
		MATCH (p:Provider)
		WHERE toLower(p.name) CONTAINS toLower(e.name)
		OPTIONAL MATCH (p)-[:EXCLUDED_BY]->(x:Exclusion)
		RETURN id, collect(DISTINCT {npi: p.npi, excluded: x IS NOT NULL}) AS providers`

	entityExclusionsCypher = `
		UNWIND $ids AS id
		MATCH (e:CorporateEntity) WHERE elementId(e) = id
		OPTIONAL MATCH (e)-[:EXCLUDED_BY]->(x:Exclusion)
		RETURN id, count(x) > 0 AS excluded`
)

// graphReader is the slice of the driver the repository needs.
type graphReader interface {
	ExecuteRead(ctx context.Context, work func(driverpkg.Transaction) (any, error)) (any, error)
}

// OwnershipRepository implements ownership.AdjacencyProvider on Neo4j.
type OwnershipRepository struct {
	driver graphReader
	logger logging.Logger
}

// NewOwnershipRepository constructs the graph adjacency repository.
func NewOwnershipRepository(driver graphReader, logger logging.Logger) *OwnershipRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OwnershipRepository{driver: driver, logger: logger}
}

// MatchEntities resolves provider names to SNF corporate entity nodes.
func (r *OwnershipRepository) MatchEntities(ctx context.Context, names []string) (map[string][]ownership.EntityID, error) {
	if len(names) == 0 {
		return map[string][]ownership.EntityID{}, nil
	}

	rows, err := r.runBatch(ctx, matchEntitiesCypher, map[string]any{"names": names})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]ownership.EntityID, len(rows))
	for _, row := range rows {
		ids := toEntityIDs(row.values)
		if len(ids) == 0 {
			continue
		}
		out[row.key] = ids
	}
	return out, nil
}

// Owners returns the one-hop upstream adjacency for each entity.
func (r *OwnershipRepository) Owners(ctx context.Context, ids []ownership.EntityID) (map[ownership.EntityID][]ownership.EntityID, error) {
	return r.adjacency(ctx, ownersCypher, ids)
}

// Owned returns the one-hop downstream adjacency for each entity.
func (r *OwnershipRepository) Owned(ctx context.Context, ids []ownership.EntityID) (map[ownership.EntityID][]ownership.EntityID, error) {
	return r.adjacency(ctx, ownedCypher, ids)
}

// ProvidersFor returns the providers associated with each entity, with
// exclusion status attached.
func (r *OwnershipRepository) ProvidersFor(ctx context.Context, ids []ownership.EntityID) (map[ownership.EntityID][]ownership.ProviderRef, error) {
	if len(ids) == 0 {
		return map[ownership.EntityID][]ownership.ProviderRef{}, nil
	}

	result, err := r.driver.ExecuteRead(ctx, func(tx driverpkg.Transaction) (any, error) {
		res, err := tx.Run(ctx, providersForCypher, map[string]any{"ids": entityIDStrings(ids)})
		if err != nil {
			return nil, err
		}
		out := make(map[ownership.EntityID][]ownership.ProviderRef)
		for res.Next(ctx) {
			record := res.Record()
			id, refs, err := providerRow(record)
			if err != nil {
				return nil, err
			}
			if len(refs) > 0 {
				out[id] = refs
			}
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.(map[ownership.EntityID][]ownership.ProviderRef), nil
}

// EntityExclusions reports entity-level exclusions.
func (r *OwnershipRepository) EntityExclusions(ctx context.Context, ids []ownership.EntityID) (map[ownership.EntityID]bool, error) {
	if len(ids) == 0 {
		return map[ownership.EntityID]bool{}, nil
	}

	result, err := r.driver.ExecuteRead(ctx, func(tx driverpkg.Transaction) (any, error) {
		res, err := tx.Run(ctx, entityExclusionsCypher, map[string]any{"ids": entityIDStrings(ids)})
		if err != nil {
			return nil, err
		}
		out := make(map[ownership.EntityID]bool)
		for res.Next(ctx) {
			record := res.Record()
			id, ok := record.Values[0].(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeGraphQueryFailed, "unexpected id type in exclusion row")
			}
			excluded, _ := record.Values[1].(bool)
			out[ownership.EntityID(id)] = excluded
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.(map[ownership.EntityID]bool), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row plumbing
// ─────────────────────────────────────────────────────────────────────────────

type batchRow struct {
	key    string
	values []any
}

func (r *OwnershipRepository) runBatch(ctx context.Context, cypher string, params map[string]any) ([]batchRow, error) {
	result, err := r.driver.ExecuteRead(ctx, func(tx driverpkg.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return driverpkg.CollectRecords(ctx, res, func(record *neo4j.Record) (batchRow, error) {
			key, ok := record.Values[0].(string)
			if !ok {
				return batchRow{}, errors.New(errors.ErrCodeGraphQueryFailed, "unexpected key type in graph row")
			}
			values, _ := record.Values[1].([]any)
			return batchRow{key: key, values: values}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	rows, _ := result.([]batchRow)
	return rows, nil
}

func (r *OwnershipRepository) adjacency(ctx context.Context, cypher string, ids []ownership.EntityID) (map[ownership.EntityID][]ownership.EntityID, error) {
	if len(ids) == 0 {
		return map[ownership.EntityID][]ownership.EntityID{}, nil
	}

	rows, err := r.runBatch(ctx, cypher, map[string]any{"ids": entityIDStrings(ids)})
	if err != nil {
		return nil, err
	}

	out := make(map[ownership.EntityID][]ownership.EntityID, len(rows))
	for _, row := range rows {
		neighbors := toEntityIDs(row.values)
		if len(neighbors) == 0 {
			continue
		}
		out[ownership.EntityID(row.key)] = neighbors
	}
	return out, nil
}

func providerRow(record *neo4j.Record) (ownership.EntityID, []ownership.ProviderRef, error) {
	id, ok := record.Values[0].(string)
	if !ok {
		return "", nil, errors.New(errors.ErrCodeGraphQueryFailed, "unexpected id type in provider row")
	}
	raw, _ := record.Values[1].([]any)
	refs := make([]ownership.ProviderRef, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		npi, _ := m["npi"].(string)
		if npi == "" {
			continue
		}
		excluded, _ := m["excluded"].(bool)
		refs = append(refs, ownership.ProviderRef{NPI: npi, Excluded: excluded})
	}
	return ownership.EntityID(id), refs, nil
}

func entityIDStrings(ids []ownership.EntityID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toEntityIDs(values []any) []ownership.EntityID {
	out := make([]ownership.EntityID, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, ownership.EntityID(s))
		}
	}
	return out
}
