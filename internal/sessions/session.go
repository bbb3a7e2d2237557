// Package sessions persists completed intervention sessions. Each save writes
// the session and its administration records to PostgreSQL and archives the
// wire record to blob storage.
package sessions

import (
	"fmt"
	"time"

	"github.com/JaimeStill/adherence/intervention"
)

// Summary is a session row joined with the patient's name, without its
// administration records.
type Summary struct {
	SessionID                  string     `json:"session_id"`
	PatientID                  string     `json:"patient_id"`
	FirstName                  string     `json:"first_name"`
	LastName                   string     `json:"last_name"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
	EndedAt                    *time.Time `json:"ended_at"`
	InteractionCompleted       bool       `json:"interaction_completed"`
	MedicationChangeReported   bool       `json:"medication_change_reported"`
	EducationalPromptDelivered bool       `json:"educational_prompt_delivered"`
}

// SaveResult acknowledges a stored session.
type SaveResult struct {
	SessionID            string `json:"session_id"`
	PatientID            string `json:"patient_id"`
	Administrations      int    `json:"administrations"`
	NurseContactRequired bool   `json:"nurse_contact_required"`
}

// DeleteResult reports how many sessions were removed for a patient.
type DeleteResult struct {
	PatientID       string `json:"patient_id"`
	DeletedSessions int    `json:"deleted_sessions"`
}

// ArchivePrefix returns the blob prefix holding a patient's archived sessions.
func ArchivePrefix(patientID string) string {
	return fmt.Sprintf("sessions/%s/", patientID)
}

// ArchiveKey returns the blob key of an archived session.
func ArchiveKey(patientID, sessionID string) string {
	return ArchivePrefix(patientID) + sessionID + ".json"
}

// Validate checks a session before it is stored. Records must be numbered
// 1..N in order and belong to the session's patient.
func Validate(s *intervention.Session) error {
	if s == nil || s.SessionID == "" {
		return ErrInvalidSession
	}
	if s.PatientID == "" {
		return ErrPatientRequired
	}
	for i, rec := range s.MedicationAdministration {
		if rec.AdministrationID != i+1 {
			return fmt.Errorf(
				"%w: record %d has administration_id %d, want %d",
				ErrInvalidSession, i+1, rec.AdministrationID, i+1,
			)
		}
		if rec.PatientID != s.PatientID {
			return fmt.Errorf(
				"%w: administration %d belongs to patient %q, not %q",
				ErrInvalidSession, rec.AdministrationID, rec.PatientID, s.PatientID,
			)
		}
	}
	return nil
}
