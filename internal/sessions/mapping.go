package sessions

import (
	"net/url"
	"strconv"
	"time"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "sessions", "s").
	Project("session_id", "SessionID").
	Project("patient_id", "PatientID").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("ended_at", "EndedAt").
	Project("interaction_completed", "InteractionCompleted").
	Project("medication_change_reported", "MedicationChangeReported").
	Project("educational_prompt_delivered", "EducationalPromptDelivered").
	Join("public", "patients", "p", "JOIN", "p.patient_id = s.patient_id").
	Project("first_name", "FirstName").
	Project("last_name", "LastName")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

const sessionColumns = `session_id, patient_id, created_at, updated_at, ended_at,
	interaction_completed, medication_change_reported, medication_change_details,
	educational_prompt_delivered`

const recordColumns = `session_id, administration_id, patient_id, medication_id,
	medication_name, medication_frequency, patient_confirmed, nurse_contact_required,
	educational_prompt_delivered, error_flag, error_description,
	created_at, updated_at, ended_at`

// Filters contains optional filtering criteria for session queries.
type Filters struct {
	PatientID      *string    `json:"patient_id,omitempty"`
	Completed      *bool      `json:"interaction_completed,omitempty"`
	ChangeReported *bool      `json:"medication_change_reported,omitempty"`
	CreatedSince   *time.Time `json:"created_since,omitempty"`
	CreatedBefore  *time.Time `json:"created_before,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("PatientID", f.PatientID).
		WhereEquals("InteractionCompleted", f.Completed).
		WhereEquals("MedicationChangeReported", f.ChangeReported).
		WhereCompare("CreatedAt", query.Gte, f.CreatedSince).
		WhereCompare("CreatedAt", query.Lt, f.CreatedBefore)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Malformed booleans and timestamps are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("patient_id"); p != "" {
		f.PatientID = &p
	}

	if c := values.Get("interaction_completed"); c != "" {
		if v, err := strconv.ParseBool(c); err == nil {
			f.Completed = &v
		}
	}

	if c := values.Get("medication_change_reported"); c != "" {
		if v, err := strconv.ParseBool(c); err == nil {
			f.ChangeReported = &v
		}
	}

	if s := values.Get("created_since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.CreatedSince = &t
		}
	}

	if s := values.Get("created_before"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.CreatedBefore = &t
		}
	}

	return f
}

func scanSummary(s repository.Scanner) (Summary, error) {
	var m Summary
	err := s.Scan(
		&m.SessionID,
		&m.PatientID,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.EndedAt,
		&m.InteractionCompleted,
		&m.MedicationChangeReported,
		&m.EducationalPromptDelivered,
		&m.FirstName,
		&m.LastName,
	)
	return m, err
}

func scanSession(s repository.Scanner) (intervention.Session, error) {
	var m intervention.Session
	err := s.Scan(
		&m.SessionID,
		&m.PatientID,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.EndedAt,
		&m.InteractionCompleted,
		&m.MedicationChangeReported,
		&m.MedicationChangeDetails,
		&m.EducationalPromptDelivered,
	)
	return m, err
}

type storedRecord struct {
	sessionID string
	intervention.AdministrationRecord
}

func scanRecord(s repository.Scanner) (storedRecord, error) {
	var r storedRecord
	err := s.Scan(
		&r.sessionID,
		&r.AdministrationID,
		&r.PatientID,
		&r.MedicationID,
		&r.MedicationName,
		&r.MedicationFrequency,
		&r.PatientConfirmed,
		&r.NurseContactRequired,
		&r.EducationalPromptDelivered,
		&r.ErrorFlag,
		&r.ErrorDescription,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.EndedAt,
	)
	return r, err
}

func recordArgs(sessionID string, r intervention.AdministrationRecord) []any {
	return []any{
		sessionID,
		r.AdministrationID,
		r.PatientID,
		r.MedicationID,
		r.MedicationName,
		r.MedicationFrequency,
		r.PatientConfirmed,
		r.NurseContactRequired,
		r.EducationalPromptDelivered,
		r.ErrorFlag,
		r.ErrorDescription,
		r.CreatedAt,
		r.UpdatedAt,
		r.EndedAt,
	}
}

// localize expresses stored timestamps in loc.
func localize(s *intervention.Session, loc *time.Location) {
	s.CreatedAt = s.CreatedAt.In(loc)
	s.UpdatedAt = s.UpdatedAt.In(loc)
	if s.EndedAt != nil {
		t := s.EndedAt.In(loc)
		s.EndedAt = &t
	}
	for i := range s.MedicationAdministration {
		r := &s.MedicationAdministration[i]
		r.CreatedAt = r.CreatedAt.In(loc)
		r.UpdatedAt = r.UpdatedAt.In(loc)
		r.EndedAt = r.EndedAt.In(loc)
	}
}
