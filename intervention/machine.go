package intervention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Directory resolves patients and their medication lists.
type Directory interface {
	// FindActivePatient matches identifier against pairing codes first, then
	// patient ids, among active patients. Returns ErrPatientNotFound on no match.
	FindActivePatient(ctx context.Context, identifier string) (Patient, error)
	// ListMedications returns the patient's medications in prompting order.
	ListMedications(ctx context.Context, patientID string) ([]Medication, error)
}

// Store persists completed sessions.
type Store interface {
	// Save writes the session. A store that already holds this session as
	// completed returns an error wrapping ErrAlreadyPersisted. A different
	// session stored under the same id must fail with another error, such
	// as one wrapping ErrSessionConflict.
	Save(ctx context.Context, session *Session) error
}

// EducationSource supplies the text delivered for a topic.
type EducationSource interface {
	Content(ctx context.Context, topic Topic) (string, error)
}

// Step names a state of the dialogue.
type Step string

const (
	StepIdentify              Step = "identify"
	StepMedicationChangeCheck Step = "medication_change_check"
	StepMedicationQuestions   Step = "medication_questions"
	StepEducationInterest     Step = "education_interest"
	StepEducationConfirm      Step = "education_confirm"
	StepEducationTopic        Step = "education_topic"
	StepFinalize              Step = "finalize"
)

// Phase is the position within the per-medication confirmation exchange.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseConfirm Phase = "confirm"
	PhaseRepeat  Phase = "repeat"
)

// State is the current position of a flow. Index and Phase apply only to
// StepMedicationQuestions.
type State struct {
	Step  Step  `json:"step"`
	Index int   `json:"index,omitempty"`
	Phase Phase `json:"phase,omitempty"`
}

// Outcome summarizes a finalized session for the caller.
type Outcome struct {
	SessionID            string `json:"session_id"`
	Records              int    `json:"records"`
	Unresolved           int    `json:"unresolved"`
	ChangeReported       bool   `json:"medication_change_reported"`
	EducationDelivered   bool   `json:"educational_prompt_delivered"`
	NurseContactRequired bool   `json:"nurse_contact_required"`
}

// Flow is the caller-owned context of one dialogue. A Flow must be driven by
// one goroutine at a time.
type Flow struct {
	State         State
	Patient       *Patient
	Medications   []Medication
	Session       *Session
	Topic         Topic
	EducationText string
	Outcome       *Outcome

	initial Response
	saved   bool
}

// Saved reports whether the finalized session has been persisted.
func (f *Flow) Saved() bool {
	return f.saved
}

// Finished reports whether the flow is finalized and persisted.
func (f *Flow) Finished() bool {
	return f.State.Step == StepFinalize && f.saved
}

// Prompt returns the question for the flow's current state.
func (f *Flow) Prompt() Prompt {
	return promptFor(f)
}

// Input is one normalized patient answer. Details carries free text describing
// a medication change and is read only when the change check is answered yes.
type Input struct {
	Text    string `json:"text"`
	Details string `json:"details,omitempty"`
}

// Turn is the result of handling one input. When Accepted is false, Reason
// explains the rejection and the flow has not moved.
type Turn struct {
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason,omitempty"`
	Notice   string   `json:"notice,omitempty"`
	Prompt   Prompt   `json:"prompt"`
	Outcome  *Outcome `json:"outcome,omitempty"`
}

// Options tune machine behavior.
type Options struct {
	// ContinueAfterUnresolved records an unresolved medication and moves on to
	// the next one instead of ending the medication questions.
	ContinueAfterUnresolved bool
	// Location stamps session times and identifiers. Defaults to UTC.
	Location *time.Location
	// Now overrides the clock.
	Now func() time.Time
}

// Machine drives flows through the dialogue.
type Machine struct {
	directory Directory
	store     Store
	education EducationSource
	opts      Options
	logger    *slog.Logger
}

// NewMachine creates a Machine. education may be nil, in which case the
// built-in topic content is delivered.
func NewMachine(directory Directory, store Store, education EducationSource, opts Options, logger *slog.Logger) *Machine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		directory: directory,
		store:     store,
		education: education,
		opts:      opts,
		logger:    logger.With("system", "intervention"),
	}
}

// Start returns a new flow positioned at identify.
func (m *Machine) Start() *Flow {
	return &Flow{State: State{Step: StepIdentify}}
}

// Handle applies one input to flow. Invalid input yields a rejected Turn and no
// error. Errors are returned for directory failures, for persistence failures
// at finalize (alongside the finalized Turn), and for flows already finalized.
func (m *Machine) Handle(ctx context.Context, flow *Flow, in Input) (Turn, error) {
	switch flow.State.Step {
	case StepIdentify:
		return m.identify(ctx, flow, in)
	case StepMedicationChangeCheck:
		return m.changeCheck(ctx, flow, in)
	case StepMedicationQuestions:
		return m.medicationQuestion(ctx, flow, in)
	case StepEducationInterest:
		return m.educationInterest(ctx, flow, in)
	case StepEducationConfirm:
		return m.educationConfirm(ctx, flow, in)
	case StepEducationTopic:
		return m.educationTopic(ctx, flow, in)
	case StepFinalize:
		return Turn{Prompt: flow.Prompt(), Outcome: flow.Outcome}, ErrFlowClosed
	default:
		return Turn{}, fmt.Errorf("unknown step %q", flow.State.Step)
	}
}

func (m *Machine) now() time.Time {
	return m.opts.Now().In(m.opts.Location)
}

func (m *Machine) identify(ctx context.Context, flow *Flow, in Input) (Turn, error) {
	identifier := strings.TrimSpace(in.Text)
	if identifier == "" {
		return reject(flow, ReasonIdentifierRequired), nil
	}

	patient, err := m.directory.FindActivePatient(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return reject(flow, ReasonPatientNotFound), nil
		}
		return Turn{}, fmt.Errorf("find patient: %w", err)
	}

	meds, err := m.directory.ListMedications(ctx, patient.ID)
	if err != nil {
		return Turn{}, fmt.Errorf("list medications for %s: %w", patient.ID, err)
	}

	flow.Patient = &patient
	flow.Medications = meds
	flow.Session = NewSession(patient.ID, m.now())
	flow.State = State{Step: StepMedicationChangeCheck}

	m.logger.Info(
		"session started",
		"session_id", flow.Session.SessionID,
		"patient_id", patient.ID,
		"medications", len(meds),
	)

	return accept(flow, ""), nil
}

func (m *Machine) changeCheck(ctx context.Context, flow *Flow, in Input) (Turn, error) {
	switch ParseYesNo(in.Text) {
	case Yes:
		now := m.now()
		flow.Session.MedicationChangeReported = true
		flow.Session.MedicationChangeDetails = strings.TrimSpace(in.Details)
		for _, med := range flow.Medications {
			taken := false
			record := BuildRecord(flow.Session.NextAdministrationID(), flow.Session, med, &taken, false, true, now)
			if err := flow.Session.Append(record, now); err != nil {
				return Turn{}, err
			}
		}
		flow.State = State{Step: StepEducationInterest}
		return accept(flow, NoticeChangeReported), nil
	case No:
		if len(flow.Medications) == 0 {
			flow.State = State{Step: StepEducationInterest}
		} else {
			flow.State = State{Step: StepMedicationQuestions, Index: 0, Phase: PhaseInitial}
		}
		return accept(flow, ""), nil
	default:
		return reject(flow, ReasonInvalidYesNo), nil
	}
}

func (m *Machine) medicationQuestion(ctx context.Context, flow *Flow, in Input) (Turn, error) {
	switch flow.State.Phase {
	case PhaseConfirm:
		switch ParseYesNo(in.Text) {
		case Yes:
			return m.resolve(flow, flow.initial == ResponseYes)
		case No:
			flow.State.Phase = PhaseRepeat
			return accept(flow, ""), nil
		default:
			return reject(flow, ReasonInvalidYesNo), nil
		}

	case PhaseRepeat:
		switch r := ParseYesNoUnregistered(in.Text); r {
		case ResponseYes, ResponseNo:
			return m.resolve(flow, r == ResponseYes)
		case ResponseUnregistered:
			return m.unresolved(flow)
		default:
			return reject(flow, ReasonInvalidResponse), nil
		}

	default:
		switch r := ParseYesNoUnregistered(in.Text); r {
		case ResponseYes, ResponseNo:
			flow.initial = r
			flow.State.Phase = PhaseConfirm
			return accept(flow, ""), nil
		case ResponseUnregistered:
			return m.unresolved(flow)
		default:
			return reject(flow, ReasonInvalidResponse), nil
		}
	}
}

func (m *Machine) resolve(flow *Flow, taken bool) (Turn, error) {
	if err := m.record(flow, &taken, false); err != nil {
		return Turn{}, err
	}
	m.nextMedication(flow)
	return accept(flow, ""), nil
}

func (m *Machine) unresolved(flow *Flow) (Turn, error) {
	if err := m.record(flow, nil, true); err != nil {
		return Turn{}, err
	}

	m.logger.Warn(
		"medication answer unresolved",
		"session_id", flow.Session.SessionID,
		"medication_id", flow.Medications[flow.State.Index].ID,
	)

	if m.opts.ContinueAfterUnresolved {
		m.nextMedication(flow)
	} else {
		flow.State = State{Step: StepEducationInterest}
	}
	return accept(flow, NoticeUnresolved), nil
}

func (m *Machine) record(flow *Flow, taken *bool, unresolved bool) error {
	now := m.now()
	med := flow.Medications[flow.State.Index]
	record := BuildRecord(flow.Session.NextAdministrationID(), flow.Session, med, taken, unresolved, false, now)
	flow.initial = ResponseInvalid
	return flow.Session.Append(record, now)
}

func (m *Machine) nextMedication(flow *Flow) {
	next := flow.State.Index + 1
	if next >= len(flow.Medications) {
		flow.State = State{Step: StepEducationInterest}
		return
	}
	flow.State = State{Step: StepMedicationQuestions, Index: next, Phase: PhaseInitial}
}

func (m *Machine) educationInterest(ctx context.Context, flow *Flow, in Input) (Turn, error) {
	switch ParseYesNo(in.Text) {
	case Yes:
		flow.State = State{Step: StepEducationConfirm}
		return accept(flow, ""), nil
	case No:
		return m.finalize(ctx, flow, "")
	default:
		return reject(flow, ReasonInvalidYesNo), nil
	}
}

func (m *Machine) educationConfirm(ctx context.Context, flow *Flow, in Input) (Turn, error) {
	switch ParseYesNo(in.Text) {
	case Yes:
		flow.State = State{Step: StepEducationTopic}
		return accept(flow, ""), nil
	case No:
		return m.finalize(ctx, flow, "")
	default:
		return reject(flow, ReasonInvalidYesNo), nil
	}
}

func (m *Machine) educationTopic(ctx context.Context, flow *Flow, in Input) (Turn, error) {
	topic := ParseTopic(in.Text)
	switch topic {
	case TopicInvalid:
		return reject(flow, ReasonInvalidTopic), nil
	case TopicLeave:
		flow.Session.EducationalPromptDelivered = false
		return m.finalize(ctx, flow, "")
	}

	text := m.content(ctx, topic)
	flow.Topic = topic
	flow.EducationText = text
	flow.Session.EducationalPromptDelivered = true
	return m.finalize(ctx, flow, text)
}

func (m *Machine) content(ctx context.Context, topic Topic) string {
	if m.education == nil {
		return DefaultEducation(topic)
	}

	text, err := m.education.Content(ctx, topic)
	if err != nil || text == "" {
		if err != nil {
			m.logger.Warn("education content unavailable, using default", "topic", topic.Key(), "error", err)
		}
		return DefaultEducation(topic)
	}
	return text
}

func accept(flow *Flow, notice string) Turn {
	return Turn{
		Accepted: true,
		Notice:   notice,
		Prompt:   flow.Prompt(),
	}
}

func reject(flow *Flow, reason string) Turn {
	return Turn{
		Reason: reason,
		Prompt: flow.Prompt(),
	}
}
