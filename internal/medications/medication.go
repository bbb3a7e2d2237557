// Package medications implements the medication directory domain. A patient's
// medications, in creation order, are the list a session snapshots at identify.
package medications

import (
	"strings"
	"time"

	"github.com/JaimeStill/adherence/intervention"
)

// Medication is a prescribed medication. ID is assigned by the database
// (MED001, MED002, ...). PatientID never changes after creation.
type Medication struct {
	ID        string    `json:"medication_id"`
	PatientID string    `json:"patient_id"`
	Name      string    `json:"name"`
	Dose      string    `json:"dose"`
	Frequency string    `json:"frequency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Intervention returns the view of the medication the dialogue reads.
func (m Medication) Intervention() intervention.Medication {
	return intervention.Medication{
		ID:        m.ID,
		PatientID: m.PatientID,
		Name:      m.Name,
		Dose:      m.Dose,
		Frequency: m.Frequency,
	}
}

// CreateCommand carries the data needed to prescribe a medication.
type CreateCommand struct {
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
}

// UpdateCommand replaces a medication's name, dose, and frequency.
type UpdateCommand struct {
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
}

func normalize(name, dose, frequency *string) error {
	*name = strings.TrimSpace(*name)
	*dose = strings.TrimSpace(*dose)
	*frequency = strings.TrimSpace(*frequency)
	if *name == "" {
		return ErrNameRequired
	}
	if *frequency == "" {
		*frequency = intervention.DefaultFrequency
	}
	return nil
}
