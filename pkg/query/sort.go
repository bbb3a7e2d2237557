package query

import "strings"

// SortField is one ORDER BY term. Field is a projected view name.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses a comma-separated sort string such as "name,-createdAt".
// A leading "-" sorts descending and a leading "+" ascending.
// Returns nil for empty input.
func ParseSortFields(s string) []SortField {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)

		var f SortField
		switch {
		case strings.HasPrefix(part, "-"):
			f = SortField{Field: part[1:], Descending: true}
		case strings.HasPrefix(part, "+"):
			f = SortField{Field: part[1:]}
		default:
			f = SortField{Field: part}
		}

		if f.Field != "" {
			fields = append(fields, f)
		}
	}

	return fields
}

// orderClause renders fields against p. Fields the projection does not know
// are dropped so caller-supplied sort strings never reach the SQL text.
func orderClause(p *ProjectionMap, fields []SortField) string {
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !p.Has(f.Field) {
			continue
		}
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		terms = append(terms, p.Column(f.Field)+dir)
	}

	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}
