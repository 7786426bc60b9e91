package store

import (
	"context"

	"github.com/relstore/relstore/internal/model"
	"github.com/relstore/relstore/internal/query"
	"github.com/relstore/relstore/internal/verify"
)

// All reads every record matching the fetch configuration. The
// display-column allowlist is validated against the schema unless a
// GROUP BY is present (grouped reads may project aggregates). With
// withTotal the unpaginated match count is returned alongside.
func (s *Store) All(ctx context.Context, table string, cfg FetchConfig, withTotal bool) ([]model.Record, int64, error) {
	schema, err := s.family.TrySchema(table)
	if err != nil {
		return nil, 0, err
	}
	if stripSpaces(cfg.GroupBy) == "" {
		if err := verify.Columns(schema, cfg.Columns); err != nil {
			return nil, 0, err
		}
	}
	return s.fetchAll(ctx, table, cfg, withTotal)
}

// ByPK reads the records with the given primary-key values, merged
// with any caller-supplied condition.
func (s *Store) ByPK(ctx context.Context, table string, pks []model.Value, cfg FetchConfig, withTotal bool) ([]model.Record, int64, error) {
	schema, err := s.family.TrySchema(table)
	if err != nil {
		return nil, 0, err
	}
	if err := verify.PK(s.family, table, pks); err != nil {
		return nil, 0, err
	}
	cfg.Where = query.InThemAnd(schema.PK, pks, cfg.Where)
	return s.All(ctx, table, cfg, withTotal)
}

// ChildrenOf reads records of child belonging to any of the supplied
// parent groups: a map of parent table name to the parents' primary-key
// values. Every group's parenthood claim and value types are verified
// before the foreign-key union condition is merged in.
func (s *Store) ChildrenOf(ctx context.Context, child string, parents map[string][]model.Value, cfg FetchConfig, withTotal bool) ([]model.Record, int64, error) {
	if _, err := s.family.TrySchema(child); err != nil {
		return nil, 0, err
	}
	for _, parent := range sortedGroupNames(parents) {
		if err := verify.Parenthood(s.family, child, parent, parents[parent]); err != nil {
			return nil, 0, err
		}
	}
	combined, err := query.FKUnion(s.family, parents, cfg.Where)
	if err != nil {
		return nil, 0, err
	}
	cfg.Where = combined
	return s.All(ctx, child, cfg, withTotal)
}

// PeersOf reads records of source linked through its junction table to
// any of the supplied peer groups (peer table name to primary-key
// values). The relationship condition is a correlated EXISTS subquery
// against the junction table, merged with caller filters.
func (s *Store) PeersOf(ctx context.Context, source string, peers map[string][]model.Value, cfg FetchConfig, withTotal bool) ([]model.Record, int64, error) {
	schema, err := s.family.TrySchema(source)
	if err != nil {
		return nil, 0, err
	}
	junction, err := s.family.TryPeerLinkTableOf(source)
	if err != nil {
		return nil, 0, err
	}
	for _, peer := range sortedGroupNames(peers) {
		if err := s.family.VerifyPeerOf(source, peer); err != nil {
			return nil, 0, err
		}
		if err := verify.PK(s.family, peer, peers[peer]); err != nil {
			return nil, 0, err
		}
	}

	bond, err := query.FKUnion(s.family, peers, query.Where{})
	if err != nil {
		return nil, 0, err
	}
	sourceFK, err := s.family.FKName(source)
	if err != nil {
		return nil, 0, err
	}
	exists := query.PeerExists(junction, sourceFK, source, schema.PK, bond)
	cfg.Where = query.Merge(exists, cfg.Where, "AND")
	return s.All(ctx, source, cfg, withTotal)
}

// Count returns the number of matching records, optionally distinct
// over one validated column.
func (s *Store) Count(ctx context.Context, table string, cfg CountConfig) (int64, error) {
	schema, err := s.family.TrySchema(table)
	if err != nil {
		return 0, err
	}
	if cfg.DistinctColumn != "" {
		if err := verify.Columns(schema, []string{cfg.DistinctColumn}); err != nil {
			return 0, err
		}
	}
	return s.total(ctx, table, cfg.DistinctColumn, cfg.Where)
}
