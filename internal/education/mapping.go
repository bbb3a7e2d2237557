package education

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "education_contents", "e").
	Project("id", "ID").
	Project("name", "Name").
	Project("topic", "Topic").
	Project("content", "Text").
	Project("description", "Description").
	Project("active", "Active")

var defaultSort = query.SortField{
	Field: "Name",
}

// Filters contains optional filtering criteria for content queries.
// Topic and Active use exact matching. Name uses case-insensitive contains matching.
type Filters struct {
	Topic  *Topic  `json:"topic,omitempty"`
	Name   *string `json:"name,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Topic", f.Topic).
		WhereContains("Name", f.Name).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unknown topics are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("topic"); s != "" {
		if topic, err := ParseTopic(s); err == nil {
			f.Topic = &topic
		}
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if a := values.Get("active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}

	return f
}

func scanContent(s repository.Scanner) (Content, error) {
	var c Content
	err := s.Scan(
		&c.ID,
		&c.Name,
		&c.Topic,
		&c.Text,
		&c.Description,
		&c.Active,
	)
	return c, err
}
