package introspect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/relstore/relstore/internal/model"
)

const (
	// DefaultJunctionPrefix marks N-to-N junction tables.
	DefaultJunctionPrefix = "rel"
	// DefaultJunctionSplitter separates the prefix and the two peer
	// names inside a junction table name.
	DefaultJunctionSplitter = "_"
)

// Options controls family resolution. The naming convention is fixed
// for the lifetime of the snapshot built with it.
type Options struct {
	// Exclude lists tables left out of the family entirely.
	Exclude []string
	// JunctionPrefix marks junction tables; empty means DefaultJunctionPrefix.
	JunctionPrefix string
	// JunctionSplitter separates name segments; empty means DefaultJunctionSplitter.
	JunctionSplitter string
}

func (o Options) prefix() string {
	if strings.TrimSpace(o.JunctionPrefix) == "" {
		return DefaultJunctionPrefix
	}
	return o.JunctionPrefix
}

func (o Options) splitter() string {
	if strings.TrimSpace(o.JunctionSplitter) == "" {
		return DefaultJunctionSplitter
	}
	return o.JunctionSplitter
}

// Family introspects every table and resolves parent/child and peer
// relationships into an immutable snapshot.
//
// Resolution is not incremental: a column cannot be classified as a
// foreign key until the candidate parent's primary-key type is known,
// so the whole family is recomputed from the full table set every time.
func Family(ctx context.Context, db *sqlx.DB, opts Options) (*model.SchemaFamily, error) {
	names, err := TableNames(ctx, db, opts.Exclude)
	if err != nil {
		return nil, err
	}

	metas := make(map[string][]model.ColumnMeta, len(names))
	schemas := make(map[string]*model.Schema, len(names))
	for _, name := range names {
		cols, err := Columns(ctx, db, name)
		if err != nil {
			return nil, err
		}
		schema, err := metaToSchema(name, cols)
		if err != nil {
			return nil, err
		}
		metas[name] = cols
		schemas[name] = schema
	}

	family := &model.SchemaFamily{
		Schemas:        schemas,
		Parents:        map[string]map[string]struct{}{},
		Children:       map[string]map[string]struct{}{},
		Peers:          map[string]map[string]struct{}{},
		PeerLinkTables: map[string]string{},
	}

	resolver := resolver{opts: opts, family: family, metas: metas}
	if err := resolver.run(names); err != nil {
		return nil, err
	}
	return family, nil
}

// metaToSchema folds column metadata into a table schema. Exactly one
// primary-key column is supported; composite keys are a modeling
// choice this layer deliberately rejects.
func metaToSchema(table string, cols []model.ColumnMeta) (*model.Schema, error) {
	schema := &model.Schema{
		Name:        table,
		ColumnTypes: make(map[string]model.Type, len(cols)),
		Defaults:    make(map[string]model.Value, len(cols)),
		Required:    make(map[string]struct{}),
	}
	for _, col := range cols {
		schema.ColumnTypes[col.Name] = col.Type
		schema.Defaults[col.Name] = col.Default
		if col.Required {
			schema.Required[col.Name] = struct{}{}
		}
		if col.PK {
			if schema.PK != "" {
				return nil, fmt.Errorf("table %q has a composite primary key (%q, %q); only single-column primary keys are supported",
					table, schema.PK, col.Name)
			}
			schema.PK = col.Name
		}
	}
	return schema, nil
}

type resolver struct {
	opts   Options
	family *model.SchemaFamily
	metas  map[string][]model.ColumnMeta
}

func (r *resolver) run(names []string) error {
	sort.Strings(names)

	marker := r.opts.prefix() + r.opts.splitter()
	var entities, junctions []string
	for _, name := range names {
		if strings.HasPrefix(name, marker) {
			junctions = append(junctions, name)
		} else {
			entities = append(entities, name)
		}
	}

	// Entity tables publish the foreign-key column name other tables
	// would use to reference them, together with the primary key's type.
	type fkTarget struct {
		parent string
		typ    model.Type
	}
	possibleFKs := make(map[string]fkTarget)
	for _, name := range entities {
		schema := r.family.Schemas[name]
		if schema.PK == "" {
			continue
		}
		possibleFKs[schema.Name+"_"+schema.PK] = fkTarget{
			parent: name,
			typ:    schema.ColumnTypes[schema.PK],
		}
	}

	for _, child := range entities {
		for _, col := range r.metas[child] {
			target, ok := possibleFKs[col.Name]
			if !ok || target.parent == child {
				continue
			}
			if col.Type != target.typ {
				return fmt.Errorf("column %q of table %q is expected to be a foreign key to table %q with type %s, but it is %s; fix the column type or the parent's primary-key type first",
					col.Name, child, target.parent, target.typ, col.Type)
			}
			r.addParent(target.parent, child, col.Name)
		}
	}

	for _, junction := range junctions {
		if err := r.resolveJunction(junction); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) addParent(parent, child, fkCol string) {
	if r.family.Parents[child] == nil {
		r.family.Parents[child] = map[string]struct{}{}
	}
	r.family.Parents[child][parent] = struct{}{}
	if r.family.Children[parent] == nil {
		r.family.Children[parent] = map[string]struct{}{}
	}
	r.family.Children[parent][child] = struct{}{}
	// A column resolved as a foreign key must always carry a value,
	// whatever its NOT NULL flag says.
	r.family.Schemas[child].Required[fkCol] = struct{}{}
}

func (r *resolver) resolveJunction(junction string) error {
	prefix, splitter := r.opts.prefix(), r.opts.splitter()
	rest := strings.TrimPrefix(junction, prefix+splitter)
	segments := strings.Split(rest, splitter)
	if len(segments) != 2 {
		return fmt.Errorf("invalid junction table name %q: expected the format %q with exactly 2 tables; %s",
			junction, strings.Join([]string{prefix, "table1", "table2"}, splitter), renameHint(prefix, splitter))
	}

	cols := make(map[string]struct{}, len(r.metas[junction]))
	for _, col := range r.metas[junction] {
		cols[col.Name] = struct{}{}
	}

	for _, peer := range segments {
		schema, ok := r.family.Schemas[peer]
		if !ok {
			return fmt.Errorf("table %q does not exist, but it is named by the junction table %q; %s",
				peer, junction, renameHint(prefix, splitter))
		}
		fkCol := schema.Name + "_" + schema.PK
		if _, ok := cols[fkCol]; !ok {
			return fmt.Errorf("junction table %q is missing the peer foreign-key column %q; %s",
				junction, fkCol, renameHint(prefix, splitter))
		}
	}

	a, b := segments[0], segments[1]
	r.addPeer(a, b, junction)
	r.addPeer(b, a, junction)
	return nil
}

func (r *resolver) addPeer(table, peer, junction string) {
	if r.family.Peers[table] == nil {
		r.family.Peers[table] = map[string]struct{}{}
	}
	r.family.Peers[table][peer] = struct{}{}
	r.family.PeerLinkTables[table] = junction
}

func renameHint(prefix, splitter string) string {
	return fmt.Sprintf("if this table is not meant to represent a peer relationship, rename it so it does not start with %q", prefix+splitter)
}
