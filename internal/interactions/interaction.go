// Package interactions drives intervention dialogues over HTTP. Each caller
// owns one registered flow and advances it one answer at a time.
package interactions

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/adherence/intervention"
)

// Interaction is the externally visible state of a registered flow.
type Interaction struct {
	ID        uuid.UUID             `json:"id"`
	State     intervention.State    `json:"state"`
	PatientID string                `json:"patient_id,omitempty"`
	SessionID string                `json:"session_id,omitempty"`
	Prompt    intervention.Prompt   `json:"prompt"`
	Saved     bool                  `json:"saved"`
	Outcome   *intervention.Outcome `json:"outcome,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// Response is the result of submitting one answer. SaveError is set when the
// session finalized but could not be persisted; retry with Save.
type Response struct {
	Turn        intervention.Turn `json:"turn"`
	Interaction Interaction       `json:"interaction"`
	SaveError   string            `json:"save_error,omitempty"`
}

func view(id uuid.UUID, flow *intervention.Flow, created time.Time) Interaction {
	v := Interaction{
		ID:        id,
		State:     flow.State,
		Prompt:    flow.Prompt(),
		Saved:     flow.Saved(),
		Outcome:   flow.Outcome,
		CreatedAt: created,
	}
	if flow.Patient != nil {
		v.PatientID = flow.Patient.ID
	}
	if flow.Session != nil {
		v.SessionID = flow.Session.SessionID
	}
	return v
}
