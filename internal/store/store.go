// Package store is the relationship-aware CRUD engine. Every operation
// takes a context, consults the immutable schema family for validation
// and relationship resolution, builds SQL through the query package's
// single parameterized path, and executes against the caller's
// connection pool. Calls are synchronous, run one or more sequential
// statements, never retry, and surface every database error as-is.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/relstore/relstore/internal/model"
	"github.com/relstore/relstore/internal/query"
)

// Store executes CRUD operations for one database session. The schema
// family snapshot is owned by the caller and read-only here; rebuilding
// it after DDL means building a new Store.
type Store struct {
	db     *sqlx.DB
	family *model.SchemaFamily
	logger *slog.Logger
}

// New creates a Store over an open connection pool and a resolved
// schema family. A nil logger falls back to slog.Default.
func New(db *sqlx.DB, family *model.SchemaFamily, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, family: family, logger: logger}
}

// Family returns the snapshot this store validates against.
func (s *Store) Family() *model.SchemaFamily { return s.family }

// FetchConfig bundles the optional read-shaping parameters. All fields
// compose independently; the zero value reads everything.
type FetchConfig struct {
	Distinct bool
	// Columns is the display-column allowlist; empty means "*".
	Columns []string
	Where   query.Where
	// GroupBy and OrderBy cannot be parameterized by the driver and
	// pass through query.CheckByClause before reaching SQL text.
	GroupBy string
	OrderBy string
	Limit   int64
	Offset  int64
}

// CountConfig bundles the optional count-shaping parameters.
type CountConfig struct {
	// DistinctColumn switches COUNT(*) to COUNT(DISTINCT col).
	DistinctColumn string
	Where          query.Where
}

// fetchAll is the single SELECT-building path. With withTotal it also
// runs the unpaginated statement through COUNT(*) so callers can page.
func (s *Store) fetchAll(ctx context.Context, table string, cfg FetchConfig, withTotal bool) ([]model.Record, int64, error) {
	cols := "*"
	if len(cfg.Columns) > 0 {
		cols = strings.Join(cfg.Columns, ", ")
	}
	distinct := ""
	if cfg.Distinct {
		distinct = "DISTINCT "
	}

	groupBy := stripSpaces(cfg.GroupBy)
	orderBy := strings.TrimSpace(cfg.OrderBy)
	for _, clause := range []string{groupBy, orderBy} {
		if err := query.CheckByClause(clause); err != nil {
			return nil, 0, err
		}
	}

	where := query.Standardize(cfg.Where, "WHERE")
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s%s FROM %s", distinct, cols, table)
	if !where.IsEmpty() {
		b.WriteString(" ")
		b.WriteString(where.Clause)
	}
	if groupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(groupBy)
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}
	unpaginated := b.String()

	paginated := unpaginated
	if cfg.Limit > 0 {
		paginated += fmt.Sprintf(" LIMIT %d", cfg.Limit)
	}
	if cfg.Offset > 0 {
		paginated += fmt.Sprintf(" OFFSET %d", cfg.Offset)
	}

	args := where.BindArgs()
	s.logger.DebugContext(ctx, "fetch", "sql", paginated, "params", len(args))

	rows, err := s.db.QueryxContext(ctx, paginated, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch from %q: %w", table, err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		raw := map[string]interface{}{}
		if err := rows.MapScan(raw); err != nil {
			return nil, 0, fmt.Errorf("scan row from %q: %w", table, err)
		}
		rec, err := rawToRecord(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("convert row from %q: %w", table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("fetch from %q: %w", table, err)
	}

	if !withTotal {
		return records, int64(len(records)), nil
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", unpaginated)
	var total int64
	if err := s.db.GetContext(ctx, &total, countSQL, args...); err != nil {
		return nil, 0, fmt.Errorf("count for %q: %w", table, err)
	}
	return records, total, nil
}

// insert writes one record. Columns are ordered deterministically.
func (s *Store) insert(ctx context.Context, table string, rec model.Record) error {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		placeholders[i] = "?"
		args[i] = rec[col].Arg()
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	s.logger.DebugContext(ctx, "insert", "sql", stmt)

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert into %q: %w", table, err)
	}
	return nil
}

// update rewrites matching rows. An empty condition is refused so a
// malformed caller condition can never become an unconditional update.
func (s *Store) update(ctx context.Context, table string, rec model.Record, where query.Where) error {
	if where.IsEmpty() {
		return fmt.Errorf("update on %q requires a non-empty condition (refusing to update all rows)", table)
	}
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(where.Args))
	for i, col := range cols {
		sets[i] = col + " = ?"
		args = append(args, rec[col].Arg())
	}
	std := query.Standardize(where, "WHERE")
	args = append(args, std.BindArgs()...)

	stmt := fmt.Sprintf("UPDATE %s SET %s %s", table, strings.Join(sets, ", "), std.Clause)
	s.logger.DebugContext(ctx, "update", "sql", stmt)

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update %q: %w", table, err)
	}
	return nil
}

// deleteRows removes matching rows under the same non-empty-condition
// guard as update.
func (s *Store) deleteRows(ctx context.Context, table string, where query.Where) error {
	if where.IsEmpty() {
		return fmt.Errorf("delete on %q requires a non-empty condition (refusing to delete all rows)", table)
	}
	std := query.Standardize(where, "WHERE")
	stmt := fmt.Sprintf("DELETE FROM %s %s", table, std.Clause)
	s.logger.DebugContext(ctx, "delete", "sql", stmt)

	if _, err := s.db.ExecContext(ctx, stmt, std.BindArgs()...); err != nil {
		return fmt.Errorf("delete from %q: %w", table, err)
	}
	return nil
}

// total counts matching rows, optionally distinct over one column.
func (s *Store) total(ctx context.Context, table, distinctCol string, where query.Where) (int64, error) {
	counted := "*"
	if distinctCol != "" {
		counted = "DISTINCT " + distinctCol
	}
	std := query.Standardize(where, "WHERE")
	stmt := strings.TrimSpace(fmt.Sprintf("SELECT COUNT(%s) FROM %s %s", counted, table, std.Clause))

	var n int64
	if err := s.db.GetContext(ctx, &n, stmt, std.BindArgs()...); err != nil {
		return 0, fmt.Errorf("count %q: %w", table, err)
	}
	return n, nil
}

func rawToRecord(raw map[string]interface{}) (model.Record, error) {
	rec := make(model.Record, len(raw))
	for col, v := range raw {
		val, err := model.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		rec[col] = val
	}
	return rec, nil
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// sortedGroupNames returns a relation map's table names in sorted
// order so multi-group operations validate and build deterministically.
func sortedGroupNames[V any](groups map[string]V) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
