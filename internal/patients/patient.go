// Package patients implements the patient directory domain: enrollment
// records, pairing codes used to identify patients at the start of a session,
// and the active flag that gates who may start one.
package patients

import (
	"strings"
	"time"

	"github.com/JaimeStill/adherence/intervention"
)

// Patient is an enrolled patient. ID is assigned by the database (P001, P002, ...).
type Patient struct {
	ID          string    `json:"patient_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PairingCode string    `json:"pairing_code"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Intervention returns the view of the patient the dialogue reads.
func (p Patient) Intervention() intervention.Patient {
	return intervention.Patient{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		PairingCode: p.PairingCode,
		Active:      p.Active,
	}
}

// CreateCommand carries the data needed to enroll a patient.
// Active defaults to true when omitted.
type CreateCommand struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PairingCode string `json:"pairing_code"`
	Active      *bool  `json:"is_active"`
}

// UpdateCommand replaces a patient's editable fields.
type UpdateCommand struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PairingCode string `json:"pairing_code"`
	Active      bool   `json:"is_active"`
}

func (c *CreateCommand) normalize() error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.PairingCode = strings.TrimSpace(c.PairingCode)
	if c.FirstName == "" || c.LastName == "" {
		return ErrNameRequired
	}
	if c.Active == nil {
		active := true
		c.Active = &active
	}
	return nil
}

func (c *UpdateCommand) normalize() error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.PairingCode = strings.TrimSpace(c.PairingCode)
	if c.FirstName == "" || c.LastName == "" {
		return ErrNameRequired
	}
	return nil
}
