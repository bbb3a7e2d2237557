package patients

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "patients", "p").
	Project("patient_id", "ID").
	Project("first_name", "FirstName").
	Project("last_name", "LastName").
	Project("pairing_code", "PairingCode").
	Project("is_active", "Active").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "ID",
}

// Filters contains optional filtering criteria for patient queries.
// Active and PairingCode use exact matching; LastName uses contains matching.
type Filters struct {
	Active      *bool   `json:"is_active,omitempty"`
	PairingCode *string `json:"pairing_code,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Active", f.Active).
		WhereEquals("PairingCode", f.PairingCode).
		WhereContains("LastName", f.LastName)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("is_active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}

	if pc := values.Get("pairing_code"); pc != "" {
		f.PairingCode = &pc
	}

	if ln := values.Get("last_name"); ln != "" {
		f.LastName = &ln
	}

	return f
}

func scanPatient(s repository.Scanner) (Patient, error) {
	var p Patient
	err := s.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.PairingCode,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
