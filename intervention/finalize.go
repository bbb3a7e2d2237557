package intervention

import (
	"context"
	"errors"
	"fmt"
)

// finalize closes the session, moves the flow to StepFinalize, and persists.
// The Turn is returned even when persistence fails so the caller can report
// the outcome and retry with Save.
func (m *Machine) finalize(ctx context.Context, flow *Flow, notice string) (Turn, error) {
	now := m.now()
	session := flow.Session

	for i := range session.MedicationAdministration {
		session.MedicationAdministration[i].EducationalPromptDelivered = session.EducationalPromptDelivered
		session.MedicationAdministration[i].UpdatedAt = now
	}
	session.EndedAt = &now
	session.UpdatedAt = now
	session.InteractionCompleted = true

	flow.State = State{Step: StepFinalize}
	flow.Outcome = &Outcome{
		SessionID:            session.SessionID,
		Records:              len(session.MedicationAdministration),
		Unresolved:           session.Unresolved(),
		ChangeReported:       session.MedicationChangeReported,
		EducationDelivered:   session.EducationalPromptDelivered,
		NurseContactRequired: session.NurseContactRequired(),
	}

	turn := Turn{
		Accepted: true,
		Notice:   notice,
		Prompt:   flow.Prompt(),
		Outcome:  flow.Outcome,
	}

	return turn, m.Save(ctx, flow)
}

// Save persists a finalized flow's session. It is a no-op once the session has
// been saved, and treats ErrAlreadyPersisted from the store as success. Any
// other store error, ErrSessionConflict included, leaves the flow unsaved.
func (m *Machine) Save(ctx context.Context, flow *Flow) error {
	if flow.State.Step != StepFinalize || flow.Session == nil {
		return ErrNotFinalized
	}
	if flow.saved {
		return nil
	}

	err := m.store.Save(ctx, flow.Session)
	if err != nil && !errors.Is(err, ErrAlreadyPersisted) {
		m.logger.Error(
			"session save failed",
			"session_id", flow.Session.SessionID,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	flow.saved = true
	m.logger.Info(
		"session finalized",
		"session_id", flow.Session.SessionID,
		"records", flow.Outcome.Records,
		"nurse_contact_required", flow.Outcome.NurseContactRequired,
	)
	return nil
}
