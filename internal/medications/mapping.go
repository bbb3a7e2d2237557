package medications

import (
	"net/url"

	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "medications", "m").
	Project("medication_id", "ID").
	Project("patient_id", "PatientID").
	Project("name", "Name").
	Project("dose", "Dose").
	Project("frequency", "Frequency").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Sortable("ordinal", "Ordinal")

// defaultSort follows creation order. Ids sort as text, so MED1000 would
// precede MED999.
var defaultSort = query.SortField{
	Field: "Ordinal",
}

// Filters contains optional filtering criteria for medication queries.
type Filters struct {
	PatientID *string `json:"patient_id,omitempty"`
	Name      *string `json:"name,omitempty"`
	Frequency *string `json:"frequency,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("PatientID", f.PatientID).
		WhereContains("Name", f.Name).
		WhereEquals("Frequency", f.Frequency)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("patient_id"); p != "" {
		f.PatientID = &p
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if fr := values.Get("frequency"); fr != "" {
		f.Frequency = &fr
	}

	return f
}

func scanMedication(s repository.Scanner) (Medication, error) {
	var m Medication
	err := s.Scan(
		&m.ID,
		&m.PatientID,
		&m.Name,
		&m.Dose,
		&m.Frequency,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}
