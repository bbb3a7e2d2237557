package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Op is a comparison operator accepted by WhereCompare.
type Op string

const (
	Eq  Op = "="
	Ne  Op = "<>"
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

func (o Op) valid() bool {
	switch o {
	case Eq, Ne, Lt, Lte, Gt, Gte:
		return true
	}
	return false
}

// binder hands out positional parameters ($1, $2, ...) in the order
// arguments are bound.
type binder struct {
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// condition renders one WHERE predicate, binding its arguments as it goes.
type condition func(b *binder) string

// Builder composes SELECT statements over a ProjectionMap. Where methods
// skip nil or empty values so optional filters can be chained unconditionally.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder for the given projection with optional default sort fields.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// Build returns a SELECT query with the current conditions and ordering.
func (b *Builder) Build() (string, []any) {
	var bn binder
	sql := b.selectClause() + b.where(&bn) + b.orderBy()
	return sql, bn.args
}

// BuildCount returns a COUNT(*) query with the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	var bn binder
	sql := "SELECT COUNT(*) FROM " + b.projection.From() + b.where(&bn)
	return sql, bn.args
}

// BuildPage returns the ordered SELECT limited to one page. Page numbers start at 1.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	if page < 1 {
		page = 1
	}
	var bn binder
	sql := fmt.Sprintf(
		"%s%s%s LIMIT %d OFFSET %d",
		b.selectClause(),
		b.where(&bn),
		b.orderBy(),
		pageSize,
		(page-1)*pageSize,
	)
	return sql, bn.args
}

// BuildSingle returns a SELECT query for a single record by ID.
// Conditions already on the builder are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	var bn binder
	sql := fmt.Sprintf(
		"%s WHERE %s = %s",
		b.selectClause(),
		b.projection.Column(idField),
		bn.bind(id),
	)
	return sql, bn.args
}

// BuildFirst returns the ordered SELECT limited to one row.
func (b *Builder) BuildFirst() (string, []any) {
	var bn binder
	sql := b.selectClause() + b.where(&bn) + b.orderBy() + " LIMIT 1"
	return sql, bn.args
}

// OrderByFields sets the sort order, overriding default sort fields.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// WhereEquals adds an equality condition. No-op for nil values.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.WhereCompare(field, Eq, value)
}

// WhereCompare adds a comparison condition. No-op for nil values.
// Unknown operators fall back to equality.
func (b *Builder) WhereCompare(field string, op Op, value any) *Builder {
	if isNil(value) {
		return b
	}
	if !op.valid() {
		op = Eq
	}
	col := b.projection.Column(field)
	return b.add(func(bn *binder) string {
		return fmt.Sprintf("%s %s %s", col, op, bn.bind(value))
	})
}

// WhereContains adds a case-insensitive substring match. No-op for nil or empty values.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.WhereSearch(value, field)
}

// WhereSearch matches value as a case-insensitive substring of any of fields.
// No-op for nil or empty search.
func (b *Builder) WhereSearch(value *string, fields ...string) *Builder {
	if value == nil || *value == "" || len(fields) == 0 {
		return b
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.projection.Column(f)
	}
	pattern := "%" + *value + "%"

	return b.add(func(bn *binder) string {
		clauses := make([]string, len(cols))
		for i, col := range cols {
			clauses[i] = col + " ILIKE " + bn.bind(pattern)
		}
		if len(clauses) == 1 {
			return clauses[0]
		}
		return "(" + strings.Join(clauses, " OR ") + ")"
	})
}

func (b *Builder) add(c condition) *Builder {
	b.conditions = append(b.conditions, c)
	return b
}

func (b *Builder) selectClause() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From()
}

func (b *Builder) where(bn *binder) string {
	if len(b.conditions) == 0 {
		return ""
	}

	clauses := make([]string, len(b.conditions))
	for i, c := range b.conditions {
		clauses[i] = c(bn)
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func (b *Builder) orderBy() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	return orderClause(b.projection, fields)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}

	return false
}
