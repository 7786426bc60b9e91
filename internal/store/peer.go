package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/relstore/relstore/internal/model"
	"github.com/relstore/relstore/internal/query"
	"github.com/relstore/relstore/internal/verify"
)

// peerGroup is one side of a link/unlink call: a peer table and the
// primary-key values of its records.
type peerGroup struct {
	table  string
	fkCol  string
	values []model.Value
}

// Link connects every record in one group with every record in the
// other by inserting the missing junction rows. Each side's values are
// deduplicated first, then each pair of the Cartesian product is
// existence-checked and inserted only when absent, so linking the same
// pair twice leaves exactly one row without relying on a junction
// uniqueness constraint. The check-then-insert sequence is not
// transactional: concurrent callers linking the same pair can race
// unless the junction table itself enforces uniqueness.
func (s *Store) Link(ctx context.Context, groups map[string][]model.Value) error {
	a, b, junction, err := s.peerGroups(groups)
	if err != nil {
		return err
	}
	for _, aVal := range a.values {
		for _, bVal := range b.values {
			pair := pairCondition(a.fkCol, aVal, b.fkCol, bVal)
			n, err := s.total(ctx, junction, "", pair)
			if err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			row := model.Record{a.fkCol: aVal, b.fkCol: bVal}
			if err := s.insert(ctx, junction, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unlink removes the junction rows for every pair of the Cartesian
// product of the two deduplicated groups. Pairs that were never linked
// are a no-op, not an error.
func (s *Store) Unlink(ctx context.Context, groups map[string][]model.Value) error {
	a, b, junction, err := s.peerGroups(groups)
	if err != nil {
		return err
	}
	for _, aVal := range a.values {
		for _, bVal := range b.values {
			if err := s.deleteRows(ctx, junction, pairCondition(a.fkCol, aVal, b.fkCol, bVal)); err != nil {
				return err
			}
		}
	}
	return nil
}

// peerGroups validates a link/unlink input: exactly two named groups,
// a real peer relationship between them, type-correct key values, and
// a resolvable junction table.
func (s *Store) peerGroups(groups map[string][]model.Value) (peerGroup, peerGroup, string, error) {
	if len(groups) != 2 {
		names := sortedGroupNames(groups)
		return peerGroup{}, peerGroup{}, "", fmt.Errorf(
			"peer operations take exactly 2 tables, got %d: [%s]", len(groups), strings.Join(names, ", "))
	}
	names := sortedGroupNames(groups)
	if err := s.family.VerifyPeerOf(names[0], names[1]); err != nil {
		return peerGroup{}, peerGroup{}, "", err
	}

	out := make([]peerGroup, 2)
	for i, name := range names {
		if err := verify.PK(s.family, name, groups[name]); err != nil {
			return peerGroup{}, peerGroup{}, "", err
		}
		fk, err := s.family.FKName(name)
		if err != nil {
			return peerGroup{}, peerGroup{}, "", err
		}
		out[i] = peerGroup{table: name, fkCol: fk, values: dedupeValues(groups[name])}
	}

	junction, err := s.family.TryPeerLinkTableOf(names[0])
	if err != nil {
		return peerGroup{}, peerGroup{}, "", err
	}
	return out[0], out[1], junction, nil
}

func pairCondition(aCol string, aVal model.Value, bCol string, bVal model.Value) query.Where {
	return query.Where{
		Clause: fmt.Sprintf("%s = ? AND %s = ?", aCol, bCol),
		Args:   []model.Value{aVal, bVal},
	}
}

// dedupeValues removes duplicate values while preserving first-seen
// order.
func dedupeValues(values []model.Value) []model.Value {
	seen := make(map[string]struct{}, len(values))
	out := make([]model.Value, 0, len(values))
	for _, v := range values {
		key := dedupeKey(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupeKey(v model.Value) string {
	if v.Type() == model.TypeBlob {
		return "B|" + string(v.Bytes())
	}
	return v.Type().String() + "|" + v.String()
}
