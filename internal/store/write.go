package store

import (
	"context"

	"github.com/relstore/relstore/internal/model"
	"github.com/relstore/relstore/internal/query"
	"github.com/relstore/relstore/internal/verify"
)

// Create verifies and normalizes the payload in full-column mode and
// inserts it: every schema column ends up present, defaults are
// substituted where allowed, and no required column can slip through
// empty.
func (s *Store) Create(ctx context.Context, table string, payload model.Record, defaultIfAbsent bool) error {
	schema, err := s.family.TrySchema(table)
	if err != nil {
		return err
	}
	verified, err := verify.Input(schema, payload, verify.Options{
		DefaultIfAbsent:     defaultIfAbsent,
		MustHaveEveryColumn: true,
	})
	if err != nil {
		return err
	}
	return s.insert(ctx, table, verified)
}

// CreateChildOf creates a record in child attached to one parent record
// per supplied parent table. Each parenthood claim is verified and the
// parent's key is injected into the payload as the foreign-key column
// before the ordinary create path runs.
func (s *Store) CreateChildOf(ctx context.Context, child string, parents map[string]model.Value, payload model.Record, defaultIfAbsent bool) error {
	merged := make(model.Record, len(payload)+len(parents))
	for col, val := range payload {
		merged[col] = val
	}
	for _, parent := range sortedGroupNames(parents) {
		val := parents[parent]
		if err := verify.Parenthood(s.family, child, parent, []model.Value{val}); err != nil {
			return err
		}
		fk, err := s.family.FKName(parent)
		if err != nil {
			return err
		}
		merged[fk] = val
	}
	return s.Create(ctx, child, merged, defaultIfAbsent)
}

// UpdateAll rewrites every record matching the condition with the
// partial payload. The payload is verified column by column; the
// primary key may never appear in it, and the condition may not be
// empty.
func (s *Store) UpdateAll(ctx context.Context, table string, payload model.Record, where query.Where, defaultIfAbsent bool) error {
	schema, err := s.family.TrySchema(table)
	if err != nil {
		return err
	}
	if err := verify.NoPKWrite(schema, payload); err != nil {
		return err
	}
	verified, err := verify.Input(schema, payload, verify.Options{
		DefaultIfAbsent:     defaultIfAbsent,
		MustHaveEveryColumn: false,
	})
	if err != nil {
		return err
	}
	return s.update(ctx, table, verified, where)
}

// UpdateByPK updates the records with the given primary-key values.
func (s *Store) UpdateByPK(ctx context.Context, table string, pks []model.Value, payload model.Record, where query.Where, defaultIfAbsent bool) error {
	schema, err := s.family.TrySchema(table)
	if err != nil {
		return err
	}
	if err := verify.PK(s.family, table, pks); err != nil {
		return err
	}
	return s.UpdateAll(ctx, table, payload, query.InThemAnd(schema.PK, pks, where), defaultIfAbsent)
}

// UpdateChildrenOf updates every record of child belonging to any of
// the supplied parent groups.
func (s *Store) UpdateChildrenOf(ctx context.Context, child string, parents map[string][]model.Value, payload model.Record, where query.Where, defaultIfAbsent bool) error {
	for _, parent := range sortedGroupNames(parents) {
		if err := verify.Parenthood(s.family, child, parent, parents[parent]); err != nil {
			return err
		}
	}
	combined, err := query.FKUnion(s.family, parents, where)
	if err != nil {
		return err
	}
	return s.UpdateAll(ctx, child, payload, combined, defaultIfAbsent)
}

// Delete removes the records with the given primary-key values, merged
// with any caller-supplied condition.
func (s *Store) Delete(ctx context.Context, table string, pks []model.Value, where query.Where) error {
	schema, err := s.family.TrySchema(table)
	if err != nil {
		return err
	}
	if err := verify.PK(s.family, table, pks); err != nil {
		return err
	}
	return s.deleteRows(ctx, table, query.InThemAnd(schema.PK, pks, where))
}

// DeleteChildrenOf removes every record of child belonging to any of
// the supplied parent groups.
func (s *Store) DeleteChildrenOf(ctx context.Context, child string, parents map[string][]model.Value, where query.Where) error {
	if _, err := s.family.TrySchema(child); err != nil {
		return err
	}
	for _, parent := range sortedGroupNames(parents) {
		if err := verify.Parenthood(s.family, child, parent, parents[parent]); err != nil {
			return err
		}
	}
	combined, err := query.FKUnion(s.family, parents, where)
	if err != nil {
		return err
	}
	return s.deleteRows(ctx, child, combined)
}
