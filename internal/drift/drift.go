// Package drift compares a saved schema-family snapshot against the
// live family and classifies every difference. The family is built
// once per session and never refreshed, so drift here means the
// snapshot's consumers are operating on stale structure and need a
// rebuild.
package drift

import (
	"fmt"
	"time"

	"github.com/relstore/relstore/internal/model"
)

// Kind classifies the severity of a schema change.
type Kind string

const (
	// Additive means new structure appeared. Existing callers keep working.
	Additive Kind = "additive"
	// Breaking means structure a caller may rely on was removed or
	// changed shape.
	Breaking Kind = "breaking"
)

// Item describes a single difference between the snapshot and the
// live family.
type Item struct {
	Kind        Kind   `json:"kind"`
	Category    string `json:"category"`
	Table       string `json:"table"`
	Column      string `json:"column,omitempty"`
	Old         string `json:"old,omitempty"`
	New         string `json:"new,omitempty"`
	Description string `json:"description"`
}

// Report summarizes all differences between two families.
type Report struct {
	HasDrift      bool      `json:"has_drift"`
	HasBreaking   bool      `json:"has_breaking"`
	AdditiveCount int       `json:"additive_count"`
	BreakingCount int       `json:"breaking_count"`
	Items         []Item    `json:"items"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Diff compares a snapshot family against the live one. Tables and
// columns are visited in sorted order so the report is deterministic.
func Diff(snapshot, live *model.SchemaFamily) Report {
	report := Report{CheckedAt: time.Now().UTC()}

	for _, table := range snapshot.TableNames() {
		liveSchema, ok := live.Schemas[table]
		if !ok {
			report.add(Item{
				Kind:        Breaking,
				Category:    "table_removed",
				Table:       table,
				Description: fmt.Sprintf("table %q was removed from the database", table),
			})
			continue
		}
		diffSchema(&report, snapshot.Schemas[table], liveSchema)
		diffRelations(&report, table, snapshot, live)
	}

	for _, table := range live.TableNames() {
		if _, ok := snapshot.Schemas[table]; !ok {
			report.add(Item{
				Kind:        Additive,
				Category:    "table_added",
				Table:       table,
				Description: fmt.Sprintf("table %q was added to the database", table),
			})
		}
	}

	report.HasDrift = len(report.Items) > 0
	report.HasBreaking = report.BreakingCount > 0
	return report
}

func diffSchema(report *Report, snapshot, live *model.Schema) {
	table := snapshot.Name

	if snapshot.PK != live.PK {
		report.add(Item{
			Kind:        Breaking,
			Category:    "pk_changed",
			Table:       table,
			Old:         snapshot.PK,
			New:         live.PK,
			Description: fmt.Sprintf("primary key of table %q changed from %q to %q", table, snapshot.PK, live.PK),
		})
	}

	for _, col := range snapshot.ColumnNames() {
		liveType, ok := live.ColumnTypes[col]
		if !ok {
			report.add(Item{
				Kind:        Breaking,
				Category:    "column_removed",
				Table:       table,
				Column:      col,
				Old:         snapshot.ColumnTypes[col].String(),
				Description: fmt.Sprintf("column %q was removed from table %q", col, table),
			})
			continue
		}
		if snapType := snapshot.ColumnTypes[col]; snapType != liveType {
			report.add(Item{
				Kind:        Breaking,
				Category:    "type_changed",
				Table:       table,
				Column:      col,
				Old:         snapType.String(),
				New:         liveType.String(),
				Description: fmt.Sprintf("column %q of table %q changed type from %s to %s", col, table, snapType, liveType),
			})
		}

		_, wasRequired := snapshot.Required[col]
		_, isRequired := live.Required[col]
		switch {
		case !wasRequired && isRequired:
			// Writers that used to omit the column now fail.
			report.add(Item{
				Kind:        Breaking,
				Category:    "required_changed",
				Table:       table,
				Column:      col,
				Old:         "optional",
				New:         "required",
				Description: fmt.Sprintf("column %q of table %q became required", col, table),
			})
		case wasRequired && !isRequired:
			report.add(Item{
				Kind:        Additive,
				Category:    "required_changed",
				Table:       table,
				Column:      col,
				Old:         "required",
				New:         "optional",
				Description: fmt.Sprintf("column %q of table %q became optional", col, table),
			})
		}
	}

	for _, col := range live.ColumnNames() {
		if _, ok := snapshot.ColumnTypes[col]; !ok {
			report.add(Item{
				Kind:        Additive,
				Category:    "column_added",
				Table:       table,
				Column:      col,
				New:         live.ColumnTypes[col].String(),
				Description: fmt.Sprintf("column %q was added to table %q", col, table),
			})
		}
	}
}

// diffRelations reports edges that appeared or disappeared for one
// table. A lost edge breaks every relationship-aware call that names
// it; a new edge is plain capability.
func diffRelations(report *Report, table string, snapshot, live *model.SchemaFamily) {
	edges := []struct {
		category string
		snapshot []string
		live     []string
	}{
		{"parent", snapshot.ParentsOf(table), live.ParentsOf(table)},
		{"peer", snapshot.PeersOf(table), live.PeersOf(table)},
	}
	for _, e := range edges {
		liveSet := make(map[string]struct{}, len(e.live))
		for _, name := range e.live {
			liveSet[name] = struct{}{}
		}
		snapSet := make(map[string]struct{}, len(e.snapshot))
		for _, name := range e.snapshot {
			snapSet[name] = struct{}{}
		}
		for _, name := range e.snapshot {
			if _, ok := liveSet[name]; !ok {
				report.add(Item{
					Kind:        Breaking,
					Category:    e.category + "_removed",
					Table:       table,
					Old:         name,
					Description: fmt.Sprintf("table %q lost its %s %q", table, e.category, name),
				})
			}
		}
		for _, name := range e.live {
			if _, ok := snapSet[name]; !ok {
				report.add(Item{
					Kind:        Additive,
					Category:    e.category + "_added",
					Table:       table,
					New:         name,
					Description: fmt.Sprintf("table %q gained the %s %q", table, e.category, name),
				})
			}
		}
	}
}

func (r *Report) add(item Item) {
	r.Items = append(r.Items, item)
	switch item.Kind {
	case Additive:
		r.AdditiveCount++
	case Breaking:
		r.BreakingCount++
	}
}
