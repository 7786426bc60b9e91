package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ColumnMeta is the transient per-column result of catalog
// introspection, consumed by the relationship resolver.
type ColumnMeta struct {
	Name     string
	Type     Type
	Required bool
	Default  Value
	PK       bool
}

// Schema describes one table: its primary key, the storage class of
// every column, a non-Null default per column, and the set of columns
// that must hold a non-empty value on write.
type Schema struct {
	Name        string
	PK          string
	ColumnTypes map[string]Type
	Defaults    map[string]Value
	Required    map[string]struct{}
}

// UnknownColumn returns the first name from cols that the schema does
// not declare, or "" when every column is known.
func (s *Schema) UnknownColumn(cols []string) string {
	for _, c := range cols {
		if _, ok := s.ColumnTypes[c]; !ok {
			return c
		}
	}
	return ""
}

// ColumnNames returns the declared column names in sorted order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, 0, len(s.ColumnTypes))
	for name := range s.ColumnTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiredNames returns the required column names in sorted order.
func (s *Schema) RequiredNames() []string {
	names := make([]string, 0, len(s.Required))
	for name := range s.Required {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON renders the schema for clients such as the CLI dump.
func (s *Schema) MarshalJSON() ([]byte, error) {
	types := make(map[string]string, len(s.ColumnTypes))
	for name, t := range s.ColumnTypes {
		types[name] = t.String()
	}
	return json.Marshal(struct {
		Name     string           `json:"name"`
		PK       string           `json:"pk"`
		Types    map[string]string `json:"types"`
		Required []string         `json:"required_fields"`
		Defaults map[string]Value `json:"defaults"`
	}{
		Name:     s.Name,
		PK:       s.PK,
		Types:    types,
		Required: s.RequiredNames(),
		Defaults: s.Defaults,
	})
}

// UnmarshalJSON restores a schema from a saved dump. Defaults are
// decoded against the declared column types so a dump round trip
// preserves storage classes.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string                     `json:"name"`
		PK       string                     `json:"pk"`
		Types    map[string]string          `json:"types"`
		Required []string                   `json:"required_fields"`
		Defaults map[string]json.RawMessage `json:"defaults"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.PK = raw.PK
	s.ColumnTypes = make(map[string]Type, len(raw.Types))
	for col, typeName := range raw.Types {
		t := ParseType(typeName)
		if t == TypeNull {
			return fmt.Errorf("invalid type %q for column %q of table %q", typeName, col, raw.Name)
		}
		s.ColumnTypes[col] = t
	}
	s.Required = make(map[string]struct{}, len(raw.Required))
	for _, col := range raw.Required {
		s.Required[col] = struct{}{}
	}
	s.Defaults = make(map[string]Value, len(raw.Defaults))
	for col, msg := range raw.Defaults {
		val, err := decodeDefault(msg, s.ColumnTypes[col])
		if err != nil {
			return fmt.Errorf("default for column %q of table %q: %w", col, raw.Name, err)
		}
		s.Defaults[col] = val
	}
	return nil
}

func decodeDefault(msg json.RawMessage, t Type) (Value, error) {
	switch t {
	case TypeInteger:
		var i int64
		if err := json.Unmarshal(msg, &i); err != nil {
			return Null(), err
		}
		return Int(i), nil
	case TypeReal:
		var f float64
		if err := json.Unmarshal(msg, &f); err != nil {
			return Null(), err
		}
		return Real(f), nil
	case TypeText:
		var str string
		if err := json.Unmarshal(msg, &str); err != nil {
			return Null(), err
		}
		return Text(str), nil
	case TypeBlob:
		var b []byte
		if err := json.Unmarshal(msg, &b); err != nil {
			return Null(), err
		}
		if b == nil {
			b = []byte{}
		}
		return Blob(b), nil
	}
	return Null(), fmt.Errorf("no declared type for default %s", string(msg))
}

// SchemaFamily is the complete, immutable snapshot of all table
// schemas and their relationships for one database. It is built once
// during trusted initialization and never mutated; concurrent readers
// need no locking. Any schema change requires rebuilding the family.
type SchemaFamily struct {
	Schemas        map[string]*Schema
	Parents        map[string]map[string]struct{}
	Children       map[string]map[string]struct{}
	Peers          map[string]map[string]struct{}
	PeerLinkTables map[string]string
}

// TrySchema returns the schema for a table, or an error listing the
// available tables.
func (f *SchemaFamily) TrySchema(table string) (*Schema, error) {
	if s, ok := f.Schemas[table]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("table %q not found in schema family; available tables are: %s",
		table, strings.Join(f.TableNames(), ", "))
}

// TableNames returns every table in the family in sorted order.
func (f *SchemaFamily) TableNames() []string {
	names := make([]string, 0, len(f.Schemas))
	for name := range f.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParentsOf returns the parent tables of child in sorted order.
func (f *SchemaFamily) ParentsOf(child string) []string {
	return sortedKeys(f.Parents[child])
}

// ChildrenOf returns the child tables of parent in sorted order.
func (f *SchemaFamily) ChildrenOf(parent string) []string {
	return sortedKeys(f.Children[parent])
}

// PeersOf returns the peer tables of table in sorted order.
func (f *SchemaFamily) PeersOf(table string) []string {
	return sortedKeys(f.Peers[table])
}

// VerifyChildOf checks that child holds a foreign key to parent.
func (f *SchemaFamily) VerifyChildOf(child, parent string) error {
	if set, ok := f.Parents[child]; ok {
		if _, ok := set[parent]; ok {
			return nil
		}
	}
	return fmt.Errorf("table %q is not a child of %q; available parent tables are [%s]",
		child, parent, strings.Join(f.ParentsOf(child), ", "))
}

// VerifyPeerOf checks that a and b are related through a junction table.
func (f *SchemaFamily) VerifyPeerOf(a, b string) error {
	if set, ok := f.Peers[a]; ok {
		if _, ok := set[b]; ok {
			return nil
		}
	}
	return fmt.Errorf("table %q is not a peer of %q; available peer tables of %q are [%s]",
		a, b, a, strings.Join(f.PeersOf(a), ", "))
}

// TryPeerLinkTableOf returns the junction table that stores a table's
// peer relationships.
func (f *SchemaFamily) TryPeerLinkTableOf(table string) (string, error) {
	if link, ok := f.PeerLinkTables[table]; ok {
		return link, nil
	}
	return "", fmt.Errorf("table %q does not have peers defined", table)
}

// FKName returns the column name other tables use to reference a
// table's primary key: "<table>_<pk>". The convention is load-bearing
// for relationship resolution and not configurable per column.
func (f *SchemaFamily) FKName(table string) (string, error) {
	schema, err := f.TrySchema(table)
	if err != nil {
		return "", err
	}
	return schema.Name + "_" + schema.PK, nil
}

// MarshalJSON renders the whole family for clients such as the CLI dump.
func (f *SchemaFamily) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Schemas        map[string]*Schema  `json:"schemas"`
		Parents        map[string][]string `json:"parents"`
		Children       map[string][]string `json:"children"`
		Peers          map[string][]string `json:"peers"`
		PeerLinkTables map[string]string   `json:"peer_link_tables"`
	}{
		Schemas:        f.Schemas,
		Parents:        setsToLists(f.Parents),
		Children:       setsToLists(f.Children),
		Peers:          setsToLists(f.Peers),
		PeerLinkTables: f.PeerLinkTables,
	})
}

// UnmarshalJSON restores a family from a saved dump, rebuilding the
// relationship sets.
func (f *SchemaFamily) UnmarshalJSON(data []byte) error {
	var raw struct {
		Schemas        map[string]*Schema  `json:"schemas"`
		Parents        map[string][]string `json:"parents"`
		Children       map[string][]string `json:"children"`
		Peers          map[string][]string `json:"peers"`
		PeerLinkTables map[string]string   `json:"peer_link_tables"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Schemas = raw.Schemas
	if f.Schemas == nil {
		f.Schemas = map[string]*Schema{}
	}
	f.Parents = listsToSets(raw.Parents)
	f.Children = listsToSets(raw.Children)
	f.Peers = listsToSets(raw.Peers)
	f.PeerLinkTables = raw.PeerLinkTables
	if f.PeerLinkTables == nil {
		f.PeerLinkTables = map[string]string{}
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setsToLists(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, set := range m {
		out[k] = sortedKeys(set)
	}
	return out
}

func listsToSets(m map[string][]string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(m))
	for k, list := range m {
		set := make(map[string]struct{}, len(list))
		for _, name := range list {
			set[name] = struct{}{}
		}
		out[k] = set
	}
	return out
}
