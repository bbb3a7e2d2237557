// Package query builds parameterized PostgreSQL SELECT statements from
// projection maps that translate view field names into qualified columns.
package query

import "strings"

// ProjectionMap maps view field names to qualified column references (alias.column).
// Project calls after a Join resolve against the joined table's alias.
type ProjectionMap struct {
	from    strings.Builder
	current string
	index   map[string]int
	columns []string
	hidden  map[string]string
}

// NewProjectionMap creates a ProjectionMap rooted at schema.table with the given alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	p := &ProjectionMap{
		current: alias,
		index:   make(map[string]int),
		hidden:  make(map[string]string),
	}
	p.from.WriteString(schema + "." + table + " " + alias)
	return p
}

// Project maps column of the current table to viewName.
// Projecting the same viewName twice keeps the latest column.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.current + "." + column
	if i, ok := p.index[viewName]; ok {
		p.columns[i] = qualified
		return p
	}
	p.index[viewName] = len(p.columns)
	p.columns = append(p.columns, qualified)
	return p
}

// Sortable maps column of the current table to viewName for ordering and
// filtering only. It is left out of Columns, so scanners never see it.
func (p *ProjectionMap) Sortable(column, viewName string) *ProjectionMap {
	p.hidden[viewName] = p.current + "." + column
	return p
}

// Join appends "kind schema.table alias ON on" to the FROM clause.
// kind is the SQL join keyword ("JOIN", "LEFT JOIN").
func (p *ProjectionMap) Join(schema, table, alias, kind, on string) *ProjectionMap {
	p.from.WriteString(" " + kind + " " + schema + "." + table + " " + alias + " ON " + on)
	p.current = alias
	return p
}

// From returns the FROM clause body: the base table and every join.
func (p *ProjectionMap) From() string {
	return p.from.String()
}

// Has reports whether viewName is projected or sortable.
func (p *ProjectionMap) Has(viewName string) bool {
	if _, ok := p.index[viewName]; ok {
		return true
	}
	_, ok := p.hidden[viewName]
	return ok
}

// Column returns the qualified column for viewName, or viewName itself if it
// is neither projected nor sortable.
func (p *ProjectionMap) Column(viewName string) string {
	if i, ok := p.index[viewName]; ok {
		return p.columns[i]
	}
	if col, ok := p.hidden[viewName]; ok {
		return col
	}
	return viewName
}

// Columns returns the projected columns in projection order, comma-separated.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columns, ", ")
}
