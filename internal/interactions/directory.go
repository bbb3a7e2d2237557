package interactions

import (
	"context"
	"errors"

	"github.com/JaimeStill/adherence/internal/medications"
	"github.com/JaimeStill/adherence/internal/patients"
	"github.com/JaimeStill/adherence/intervention"
)

// Directory adapts the patient and medication systems to the dialogue.
type Directory struct {
	patients    patients.System
	medications medications.System
}

// NewDirectory creates a Directory over the given systems.
func NewDirectory(p patients.System, m medications.System) *Directory {
	return &Directory{patients: p, medications: m}
}

func (d *Directory) FindActivePatient(ctx context.Context, identifier string) (intervention.Patient, error) {
	p, err := d.patients.FindActive(ctx, identifier)
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) || errors.Is(err, patients.ErrIdentifierRequired) {
			return intervention.Patient{}, intervention.ErrPatientNotFound
		}
		return intervention.Patient{}, err
	}
	return p.Intervention(), nil
}

func (d *Directory) ListMedications(ctx context.Context, patientID string) ([]intervention.Medication, error) {
	meds, err := d.medications.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	out := make([]intervention.Medication, len(meds))
	for i, m := range meds {
		out[i] = m.Intervention()
	}
	return out, nil
}
