package intervention

import (
	"fmt"
	"time"
)

// SessionIDLayout is the timestamp layout embedded in session identifiers.
const SessionIDLayout = "20060102150405"

// Patient is the directory view of a patient the core reads at identify.
type Patient struct {
	ID          string `json:"patient_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PairingCode string `json:"pairing_code"`
	Active      bool   `json:"is_active"`
}

// DisplayName joins first and last name.
func (p Patient) DisplayName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Medication is the directory view of a prescribed medication.
type Medication struct {
	ID        string `json:"medication_id"`
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
}

// AdministrationRecord captures the outcome of confirming one medication in a
// session. Medication fields are copies taken when the record was built.
type AdministrationRecord struct {
	AdministrationID           int       `json:"administration_id"`
	PatientID                  string    `json:"patient_id"`
	MedicationID               string    `json:"medication_id"`
	MedicationName             string    `json:"medication_name"`
	MedicationFrequency        string    `json:"medication_frequency"`
	PatientConfirmed           bool      `json:"patient_confirmed"`
	NurseContactRequired       bool      `json:"nurse_contact_required"`
	EducationalPromptDelivered bool      `json:"educational_prompt_delivered"`
	ErrorFlag                  bool      `json:"error_flag"`
	ErrorDescription           string    `json:"error_description"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
	EndedAt                    time.Time `json:"ended_at"`
}

// Session is one run of the intervention dialogue for a patient and the wire
// shape handed to persistence.
type Session struct {
	SessionID                  string                 `json:"session_id"`
	PatientID                  string                 `json:"patient_id"`
	CreatedAt                  time.Time              `json:"created_at"`
	UpdatedAt                  time.Time              `json:"updated_at"`
	EndedAt                    *time.Time             `json:"ended_at"`
	InteractionCompleted       bool                   `json:"interaction_completed"`
	MedicationChangeReported   bool                   `json:"medication_change_reported"`
	MedicationChangeDetails    string                 `json:"medication_change_details"`
	EducationalPromptDelivered bool                   `json:"educational_prompt_delivered"`
	MedicationAdministration   []AdministrationRecord `json:"medication_administration"`
}

// NewSession starts an open session for patientID created at now.
func NewSession(patientID string, now time.Time) *Session {
	return &Session{
		SessionID:                SessionID(patientID, now),
		PatientID:                patientID,
		CreatedAt:                now,
		UpdatedAt:                now,
		MedicationAdministration: []AdministrationRecord{},
	}
}

// SessionID derives the identifier S_<patient>_<YYYYMMDDHHMMSS> from the
// creation time in its own location.
func SessionID(patientID string, created time.Time) string {
	return fmt.Sprintf("S_%s_%s", patientID, created.Format(SessionIDLayout))
}

// NextAdministrationID returns the id the next appended record must carry.
func (s *Session) NextAdministrationID() int {
	return len(s.MedicationAdministration) + 1
}

// Append adds a record to the session. Completed sessions reject records, as
// do records whose id would leave a gap in the sequence.
func (s *Session) Append(record AdministrationRecord, now time.Time) error {
	if s.InteractionCompleted {
		return ErrSessionClosed
	}
	if record.AdministrationID != s.NextAdministrationID() {
		return fmt.Errorf("administration id %d out of sequence, want %d", record.AdministrationID, s.NextAdministrationID())
	}
	s.MedicationAdministration = append(s.MedicationAdministration, record)
	s.UpdatedAt = now
	return nil
}

// NurseContactRequired reports whether any record requires nurse contact or a
// medication change was reported.
func (s *Session) NurseContactRequired() bool {
	if s.MedicationChangeReported {
		return true
	}
	for _, r := range s.MedicationAdministration {
		if r.NurseContactRequired || r.ErrorFlag {
			return true
		}
	}
	return false
}

// Unresolved counts records flagged with an unregistered answer.
func (s *Session) Unresolved() int {
	n := 0
	for _, r := range s.MedicationAdministration {
		if r.ErrorFlag {
			n++
		}
	}
	return n
}
