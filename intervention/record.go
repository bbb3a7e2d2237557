package intervention

import "time"

// BuildRecord creates the administration record for medication at position
// index (1-based) within session. finalTaken is nil when the answer was never
// resolved; nil and false both yield PatientConfirmed false.
func BuildRecord(index int, session *Session, medication Medication, finalTaken *bool, unresolved, forcedNurseContact bool, now time.Time) AdministrationRecord {
	frequency := medication.Frequency
	if frequency == "" {
		frequency = DefaultFrequency
	}

	record := AdministrationRecord{
		AdministrationID:     index,
		PatientID:            session.PatientID,
		MedicationID:         medication.ID,
		MedicationName:       medication.Name,
		MedicationFrequency:  frequency,
		PatientConfirmed:     finalTaken != nil && *finalTaken,
		NurseContactRequired: unresolved || forcedNurseContact,
		ErrorFlag:            unresolved,
		CreatedAt:            now,
		UpdatedAt:            now,
		EndedAt:              now,
	}

	if unresolved {
		record.ErrorDescription = UnresolvedDescription
	}

	return record
}

// DefaultFrequency applies to medications stored without a cadence label.
const DefaultFrequency = "once"
