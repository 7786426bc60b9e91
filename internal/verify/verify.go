// Package verify validates caller input against a resolved schema
// family before any SQL is built: write payloads, primary/foreign key
// values, display-column allowlists, and relationship claims.
package verify

import (
	"fmt"
	"strings"

	"github.com/relstore/relstore/internal/model"
)

// Options controls write-payload verification.
type Options struct {
	// DefaultIfAbsent substitutes the column default for empty or
	// absent values instead of rejecting them.
	DefaultIfAbsent bool
	// MustHaveEveryColumn visits every schema column missing from the
	// payload: with DefaultIfAbsent the column's default is filled in
	// and re-checked for required-ness, otherwise a required column
	// with no payload value is an error and an optional one is left to
	// the database. Set for create, unset for update.
	MustHaveEveryColumn bool
}

// Input validates and normalizes a write payload against a table's
// schema. Unknown columns fail closed, values must match the declared
// storage class, and required columns may never end up empty.
func Input(schema *model.Schema, payload model.Record, opts Options) (model.Record, error) {
	out := make(model.Record, len(schema.ColumnTypes))

	for col, val := range payload {
		declared, ok := schema.ColumnTypes[col]
		if !ok {
			return nil, fmt.Errorf("column %q is not defined in table %q; available columns: %s",
				col, schema.Name, strings.Join(schema.ColumnNames(), ", "))
		}
		if val.IsEmpty() && opts.DefaultIfAbsent {
			val = schema.Defaults[col]
		}
		if err := checkType(schema.Name, col, declared, val); err != nil {
			return nil, err
		}
		if err := checkRequired(schema, col, val); err != nil {
			return nil, err
		}
		out[col] = val
	}

	if opts.MustHaveEveryColumn {
		for col := range schema.ColumnTypes {
			if _, ok := out[col]; ok {
				continue
			}
			fill := model.Null()
			if opts.DefaultIfAbsent {
				fill = schema.Defaults[col]
			}
			// A required column with no payload value must never pass
			// silently, whatever the default happens to be.
			if err := checkRequired(schema, col, fill); err != nil {
				return nil, err
			}
			if fill.Type() != model.TypeNull {
				out[col] = fill
			}
		}
	}
	return out, nil
}

func checkType(table, col string, declared model.Type, val model.Value) error {
	if val.Type() != declared {
		return fmt.Errorf("value %s for column %q of table %q has the wrong type %s, expected %s",
			val, col, table, val.Type(), declared)
	}
	return nil
}

func checkRequired(schema *model.Schema, col string, val model.Value) error {
	if _, required := schema.Required[col]; required && val.IsEmpty() {
		return fmt.Errorf("column %q of table %q is required but empty; required columns: %s",
			col, schema.Name, strings.Join(schema.RequiredNames(), ", "))
	}
	return nil
}

// NoPKWrite rejects a payload that tries to rewrite a row's identity.
func NoPKWrite(schema *model.Schema, payload model.Record) error {
	if _, ok := payload[schema.PK]; ok {
		return fmt.Errorf("column %q cannot be updated: it is the primary key of table %q", schema.PK, schema.Name)
	}
	return nil
}

// ColumnValue checks that a single value matches a column's declared type.
func ColumnValue(family *model.SchemaFamily, table, col string, val model.Value) error {
	schema, err := family.TrySchema(table)
	if err != nil {
		return err
	}
	declared, ok := schema.ColumnTypes[col]
	if !ok {
		return fmt.Errorf("column %q is not defined in table %q; available columns: %s",
			col, table, strings.Join(schema.ColumnNames(), ", "))
	}
	return checkType(table, col, declared, val)
}

// PK checks every value against the table's primary-key type.
func PK(family *model.SchemaFamily, table string, values []model.Value) error {
	schema, err := family.TrySchema(table)
	if err != nil {
		return err
	}
	for _, val := range values {
		if err := ColumnValue(family, table, schema.PK, val); err != nil {
			return err
		}
	}
	return nil
}

// FK checks every value against the child table's foreign-key column
// referencing parent.
func FK(family *model.SchemaFamily, child, parent string, values []model.Value) error {
	fk, err := family.FKName(parent)
	if err != nil {
		return err
	}
	for _, val := range values {
		if err := ColumnValue(family, child, fk, val); err != nil {
			return err
		}
	}
	return nil
}

// Parenthood checks the relationship claim "child belongs to parent"
// together with the types of the supplied parent key values: the edge
// must exist in the family, the values must match the parent's primary
// key, and the child must carry a type-compatible foreign-key column.
func Parenthood(family *model.SchemaFamily, child, parent string, values []model.Value) error {
	if err := family.VerifyChildOf(child, parent); err != nil {
		return err
	}
	if err := PK(family, parent, values); err != nil {
		return err
	}
	return FK(family, child, parent, values)
}

// Columns checks a display-column allowlist against the schema.
func Columns(schema *model.Schema, cols []string) error {
	if unknown := schema.UnknownColumn(cols); unknown != "" {
		return fmt.Errorf("unknown column %q in table %q; available columns: %s",
			unknown, schema.Name, strings.Join(schema.ColumnNames(), ", "))
	}
	return nil
}
