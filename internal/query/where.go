// Package query composes parameterized SQL WHERE fragments and the few
// unparameterizable clause strings (GROUP BY / ORDER BY) the store is
// allowed to splice into SQL text. It never touches the database.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relstore/relstore/internal/model"
)

// Where is a WHERE-clause fragment plus its positional bind values.
// An empty Clause means "no condition"; Args must line up with the
// placeholders in Clause.
type Where struct {
	Clause string
	Args   []model.Value
}

// IsEmpty reports whether the fragment carries no condition.
func (w Where) IsEmpty() bool {
	return strings.TrimSpace(w.Clause) == ""
}

// BindArgs returns the driver bind values for the fragment.
func (w Where) BindArgs() []interface{} {
	args := make([]interface{}, len(w.Args))
	for i, v := range w.Args {
		args[i] = v.Arg()
	}
	return args
}

// InThem builds "<col> IN (?, ?, …)" over the given values.
func InThem(col string, values []model.Value) Where {
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	return Where{
		Clause: fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")),
		Args:   append([]model.Value(nil), values...),
	}
}

// Standardize prefixes a non-empty fragment with a link word such as
// "WHERE" or "AND". An empty fragment standardizes to an empty clause
// and no parameters, so it can be spliced into SQL unconditionally.
func Standardize(w Where, linkWord string) Where {
	if w.IsEmpty() {
		return Where{}
	}
	clause := strings.TrimSpace(w.Clause)
	if linkWord != "" {
		clause = linkWord + " " + clause
	}
	return Where{Clause: clause, Args: append([]model.Value(nil), w.Args...)}
}

// Merge combines two fragments into "(a linkWord b)" with parameters
// concatenated in order. If either side is empty the other is wrapped
// alone; parenthesization keeps precedence correct under repeated
// merges.
func Merge(a, b Where, linkWord string) Where {
	left := Standardize(a, "")
	right := Standardize(b, "")
	switch {
	case left.IsEmpty() && right.IsEmpty():
		return Where{}
	case left.IsEmpty():
		return Where{Clause: "(" + right.Clause + ")", Args: right.Args}
	case right.IsEmpty():
		return Where{Clause: "(" + left.Clause + ")", Args: left.Args}
	}
	return Where{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, linkWord, right.Clause),
		Args:   append(left.Args, right.Args...),
	}
}

// InThemAnd merges an IN condition with an extra caller condition by AND.
func InThemAnd(col string, values []model.Value, extra Where) Where {
	return Merge(InThem(col, values), extra, "AND")
}

// FKUnion builds the condition matching rows related to any of several
// foreign-key groups: "(parent1_fk IN (…) OR parent2_fk IN (…))",
// ANDed with extra. Groups are visited in sorted table-name order so
// the produced SQL is deterministic.
func FKUnion(family *model.SchemaFamily, relMap map[string][]model.Value, extra Where) (Where, error) {
	tables := make([]string, 0, len(relMap))
	for table := range relMap {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var union Where
	for _, table := range tables {
		fk, err := family.FKName(table)
		if err != nil {
			return Where{}, err
		}
		union = Merge(union, InThem(fk, relMap[table]), "OR")
	}
	return Merge(union, extra, "AND"), nil
}

// PeerExists builds the correlated-subquery condition selecting rows of
// the source table that appear in its junction table:
//
//	EXISTS (SELECT 1 FROM <junction> WHERE <fkCol> = <source>.<pk> AND <bond>)
//
// bond is an extra condition on the junction rows; its parameters are
// carried through.
func PeerExists(junction, fkCol, sourceTable, sourcePK string, bond Where) Where {
	link := fmt.Sprintf("%s = %s.%s", fkCol, sourceTable, sourcePK)
	inner := Standardize(bond, "AND")
	clause := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s%s)", junction, link, prefixSpace(inner.Clause))
	return Where{Clause: clause, Args: inner.Args}
}

func prefixSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}

// illegalByChars are rejected in GROUP BY / ORDER BY strings. Special
// characters would need quoting the driver cannot apply here.
const illegalByChars = "@!#$%^&*={}[]<>~"

// CheckByClause vets a GROUP BY / ORDER BY string before it is
// concatenated into SQL text. These clauses cannot be parameterized by
// the driver, so this denylist is the one injection guard on that path:
// control characters, comment sequences, and a fixed set of special
// characters are rejected.
func CheckByClause(s string) error {
	if strings.ContainsAny(s, "\n\r\t") ||
		strings.Contains(s, "--") ||
		strings.Contains(s, "/*") ||
		strings.Contains(s, "*/") ||
		strings.ContainsAny(s, illegalByChars) {
		return fmt.Errorf("illegal characters in clause: %q", s)
	}
	return nil
}
