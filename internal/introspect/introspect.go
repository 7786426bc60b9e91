// Package introspect reads table structure from a SQLite database's
// system catalog and resolves cross-table relationships into an
// immutable model.SchemaFamily.
//
// PRAGMA statements cannot be parameterized, so nothing in this package
// may run on request-controlled table names. Build the family once
// during trusted initialization and share the snapshot.
package introspect

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/relstore/relstore/internal/model"
)

// tableInfoRow holds a row from PRAGMA table_info().
type tableInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

// Columns reads the column-definition catalog for one table. Declared
// types must map onto the four concrete storage classes; anything else
// signals a data-modeling gap and fails rather than being silently
// skipped. Defaults are normalized so that no column ever carries a
// Null default: an empty-string literal in any quoting form becomes
// canonical empty text, and a missing default becomes the zero value
// of the column's type.
func Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error) {
	pragma := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(table))
	var rows []tableInfoRow
	if err := db.SelectContext(ctx, &rows, pragma); err != nil {
		return nil, fmt.Errorf("table_info for %q: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}

	metas := make([]model.ColumnMeta, 0, len(rows))
	for _, row := range rows {
		colType := model.ParseType(row.Type)
		if colType == model.TypeNull {
			return nil, fmt.Errorf("invalid type %q for column %q of table %q", row.Type, row.Name, table)
		}
		metas = append(metas, model.ColumnMeta{
			Name:     row.Name,
			Type:     colType,
			Required: row.NotNull != 0 || row.PK > 0,
			Default:  normalizeDefault(row.Default, colType),
			PK:       row.PK > 0,
		})
	}
	return metas, nil
}

// normalizeDefault turns the catalog's default-value literal into a
// concrete Value of the column's type.
func normalizeDefault(raw *string, colType model.Type) model.Value {
	if raw == nil {
		return model.ZeroValue(colType)
	}
	lit := *raw
	if lit == "" || lit == "''" || lit == `""` {
		return model.Text("")
	}
	switch colType {
	case model.TypeText:
		return model.Text(unquoteLiteral(lit))
	case model.TypeInteger:
		var i int64
		if _, err := fmt.Sscanf(lit, "%d", &i); err == nil {
			return model.Int(i)
		}
	case model.TypeReal:
		var f float64
		if _, err := fmt.Sscanf(lit, "%g", &f); err == nil {
			return model.Real(f)
		}
	}
	// Expressions and unparseable literals fall back to the zero value;
	// the engine only needs a type-correct substitute, the database
	// still applies its own default on insert-by-omission.
	return model.ZeroValue(colType)
}

// unquoteLiteral strips one level of SQL quoting from a default literal.
func unquoteLiteral(lit string) string {
	if len(lit) >= 2 {
		if (lit[0] == '\'' && lit[len(lit)-1] == '\'') || (lit[0] == '"' && lit[len(lit)-1] == '"') {
			return lit[1 : len(lit)-1]
		}
	}
	return lit
}

// TableNames enumerates user tables, skipping SQLite's own tables and
// the caller's exclusion list. Exclusions are filtered here rather than
// interpolated into the catalog query.
func TableNames(ctx context.Context, db *sqlx.DB, exclude []string) ([]string, error) {
	const q = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := db.SelectContext(ctx, &names, q); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}
	kept := names[:0]
	for _, name := range names {
		if _, skip := excluded[name]; !skip {
			kept = append(kept, name)
		}
	}
	return kept, nil
}

// quoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double quotes.
func quoteIdentifier(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"', '"')
		} else {
			out = append(out, name[i])
		}
	}
	return string(append(out, '"'))
}
