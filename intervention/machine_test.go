package intervention_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/adherence/intervention"
)

type fakeDirectory struct {
	patients    []intervention.Patient
	medications map[string][]intervention.Medication
	err         error
}

func (d *fakeDirectory) FindActivePatient(_ context.Context, identifier string) (intervention.Patient, error) {
	if d.err != nil {
		return intervention.Patient{}, d.err
	}
	for _, p := range d.patients {
		if p.Active && p.PairingCode == identifier {
			return p, nil
		}
	}
	for _, p := range d.patients {
		if p.Active && p.ID == identifier {
			return p, nil
		}
	}
	return intervention.Patient{}, intervention.ErrPatientNotFound
}

func (d *fakeDirectory) ListMedications(_ context.Context, patientID string) ([]intervention.Medication, error) {
	return d.medications[patientID], nil
}

type fakeStore struct {
	saved []intervention.Session
	err   error
}

func (s *fakeStore) Save(_ context.Context, session *intervention.Session) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *session)
	return nil
}

type fakeEducation struct {
	text string
	err  error
}

func (e fakeEducation) Content(context.Context, intervention.Topic) (string, error) {
	return e.text, e.err
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		patients: []intervention.Patient{
			{ID: "P001", FirstName: "Ada", LastName: "Lovelace", PairingCode: "1234", Active: true},
			{ID: "P002", FirstName: "Inactive", PairingCode: "9999", Active: false},
			{ID: "P003", FirstName: "No", LastName: "Meds", PairingCode: "P001", Active: true},
		},
		medications: map[string][]intervention.Medication{
			"P001": {
				{ID: "MED001", PatientID: "P001", Name: "M1", Dose: "10mg", Frequency: "once"},
				{ID: "MED002", PatientID: "P001", Name: "M2", Dose: "5mg", Frequency: "twice"},
			},
		},
	}
}

func newMachine(dir intervention.Directory, store intervention.Store, opts intervention.Options) *intervention.Machine {
	if opts.Now == nil {
		fixed := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
		opts.Now = func() time.Time { return fixed }
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return intervention.NewMachine(dir, store, nil, opts, logger)
}

// drive feeds inputs in order and fails on any error or rejection.
func drive(t *testing.T, m *intervention.Machine, flow *intervention.Flow, inputs ...string) intervention.Turn {
	t.Helper()
	var turn intervention.Turn
	for _, in := range inputs {
		var err error
		turn, err = m.Handle(context.Background(), flow, intervention.Input{Text: in})
		if err != nil {
			t.Fatalf("Handle(%q) error = %v", in, err)
		}
		if !turn.Accepted {
			t.Fatalf("Handle(%q) rejected: %s", in, turn.Reason)
		}
	}
	return turn
}

func TestAllMedicationsConfirmed(t *testing.T) {
	store := &fakeStore{}
	m := newMachine(newDirectory(), store, intervention.Options{})
	flow := m.Start()

	turn := drive(t, m, flow, "1234", "no", "yes", "yes", "yes", "yes", "no")

	if turn.Outcome == nil {
		t.Fatal("expected outcome after finalize")
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(store.saved))
	}

	s := store.saved[0]
	if !s.InteractionCompleted || s.EndedAt == nil {
		t.Error("session not completed")
	}
	if len(s.MedicationAdministration) != 2 {
		t.Fatalf("records = %d, want 2", len(s.MedicationAdministration))
	}
	for i, r := range s.MedicationAdministration {
		if r.AdministrationID != i+1 {
			t.Errorf("record %d id = %d", i, r.AdministrationID)
		}
		if !r.PatientConfirmed || r.NurseContactRequired {
			t.Errorf("record %d confirmed=%v nurse=%v", i, r.PatientConfirmed, r.NurseContactRequired)
		}
	}
	if turn.Outcome.NurseContactRequired {
		t.Error("outcome should not require nurse contact")
	}
	if !flow.Finished() {
		t.Error("flow should be finished")
	}
}

func TestUnresolvedAbandonsRemainingMedications(t *testing.T) {
	store := &fakeStore{}
	m := newMachine(newDirectory(), store, intervention.Options{})
	flow := m.Start()

	drive(t, m, flow, "1234", "no")
	turn := drive(t, m, flow, "Unable")

	if turn.Notice != intervention.NoticeUnresolved {
		t.Errorf("Notice = %q", turn.Notice)
	}
	if flow.State.Step != intervention.StepEducationInterest {
		t.Fatalf("step = %s, want education_interest", flow.State.Step)
	}

	drive(t, m, flow, "no")

	s := store.saved[0]
	if len(s.MedicationAdministration) != 1 {
		t.Fatalf("records = %d, want 1", len(s.MedicationAdministration))
	}
	r := s.MedicationAdministration[0]
	if !r.ErrorFlag || !r.NurseContactRequired || r.PatientConfirmed {
		t.Errorf("record = %+v", r)
	}
	if r.MedicationID != "MED001" {
		t.Errorf("MedicationID = %s, want MED001", r.MedicationID)
	}
	if !flow.Outcome.NurseContactRequired {
		t.Error("outcome should require nurse contact")
	}
}

func TestContinueAfterUnresolved(t *testing.T) {
	store := &fakeStore{}
	m := newMachine(newDirectory(), store, intervention.Options{ContinueAfterUnresolved: true})
	flow := m.Start()

	drive(t, m, flow, "1234", "no", "3")

	if flow.State.Step != intervention.StepMedicationQuestions || flow.State.Index != 1 {
		t.Fatalf("state = %+v, want medication 1", flow.State)
	}

	drive(t, m, flow, "2", "1", "no")

	records := store.saved[0].MedicationAdministration
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if !records[0].ErrorFlag || records[1].ErrorFlag {
		t.Errorf("error flags = %v, %v", records[0].ErrorFlag, records[1].ErrorFlag)
	}
	if records[1].PatientConfirmed {
		t.Error("second medication answered no should not be confirmed")
	}
	if records[1].AdministrationID != 2 {
		t.Errorf("second id = %d, want 2", records[1].AdministrationID)
	}
}

func TestMedicationChangeReported(t *testing.T) {
	store := &fakeStore{}
	m := newMachine(newDirectory(), store, intervention.Options{})
	flow := m.Start()

	drive(t, m, flow, "1234")
	turn, err := m.Handle(context.Background(), flow, intervention.Input{Text: "yes", Details: " new prescription "})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if turn.Notice != intervention.NoticeChangeReported {
		t.Errorf("Notice = %q", turn.Notice)
	}
	if turn.Prompt.Step != intervention.StepEducationInterest {
		t.Errorf("next step = %s, want education_interest", turn.Prompt.Step)
	}

	drive(t, m, flow, "yes", "yes", "2")

	s := store.saved[0]
	if !s.MedicationChangeReported || s.MedicationChangeDetails != "new prescription" {
		t.Errorf("change = %v %q", s.MedicationChangeReported, s.MedicationChangeDetails)
	}
	if len(s.MedicationAdministration) != 2 {
		t.Fatalf("records = %d, want 2", len(s.MedicationAdministration))
	}
	for _, r := range s.MedicationAdministration {
		if !r.NurseContactRequired || r.PatientConfirmed || r.ErrorFlag {
			t.Errorf("record = %+v", r)
		}
		if !r.EducationalPromptDelivered {
			t.Error("education flag not propagated")
		}
	}
	if flow.Topic != intervention.TopicExercise {
		t.Errorf("Topic = %v, want Exercise", flow.Topic)
	}
}

func TestConfirmationNoThenRepeat(t *testing.T) {
	tests := []struct {
		name          string
		repeat        string
		wantConfirmed bool
		wantError     bool
	}{
		{name: "repeat yes", repeat: "yes", wantConfirmed: true},
		{name: "repeat no", repeat: "no", wantConfirmed: false},
		{name: "repeat unable", repeat: "unable", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			m := newMachine(newDirectory(), store, intervention.Options{})
			flow := m.Start()

			drive(t, m, flow, "1234", "no", "no", "no")
			if flow.State.Phase != intervention.PhaseRepeat {
				t.Fatalf("phase = %s, want repeat", flow.State.Phase)
			}
			drive(t, m, flow, tt.repeat)

			records := flow.Session.MedicationAdministration
			if len(records) != 1 {
				t.Fatalf("records = %d, want 1", len(records))
			}
			if records[0].PatientConfirmed != tt.wantConfirmed {
				t.Errorf("PatientConfirmed = %v, want %v", records[0].PatientConfirmed, tt.wantConfirmed)
			}
			if records[0].ErrorFlag != tt.wantError {
				t.Errorf("ErrorFlag = %v, want %v", records[0].ErrorFlag, tt.wantError)
			}
		})
	}
}

func TestInvalidInputDoesNotAdvance(t *testing.T) {
	m := newMachine(newDirectory(), &fakeStore{}, intervention.Options{})
	flow := m.Start()

	steps := []struct {
		valid      string
		invalid    string
		wantReason string
	}{
		{valid: "1234", invalid: "", wantReason: intervention.ReasonIdentifierRequired},
		{valid: "no", invalid: "maybe", wantReason: intervention.ReasonInvalidYesNo},
		{valid: "yes", invalid: "sure", wantReason: intervention.ReasonInvalidResponse},
		{valid: "yes", invalid: "unable", wantReason: intervention.ReasonInvalidYesNo},
	}

	for _, st := range steps {
		before := flow.State
		records := 0
		if flow.Session != nil {
			records = len(flow.Session.MedicationAdministration)
		}

		turn, err := m.Handle(context.Background(), flow, intervention.Input{Text: st.invalid})
		if err != nil {
			t.Fatalf("Handle(%q) error = %v", st.invalid, err)
		}
		if turn.Accepted {
			t.Errorf("Handle(%q) accepted at %s", st.invalid, before.Step)
		}
		if turn.Reason != st.wantReason {
			t.Errorf("Reason = %q, want %q", turn.Reason, st.wantReason)
		}
		if flow.State != before {
			t.Errorf("state moved from %+v to %+v", before, flow.State)
		}
		if flow.Session != nil && len(flow.Session.MedicationAdministration) != records {
			t.Error("invalid input wrote a record")
		}

		drive(t, m, flow, st.valid)
	}

	if flow.State.Step != intervention.StepMedicationQuestions || flow.State.Index != 1 {
		t.Errorf("state = %+v, want second medication", flow.State)
	}
}

func TestIdentify(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		wantPatient string
		wantReason  string
	}{
		{name: "pairing code", identifier: "1234", wantPatient: "P001"},
		{name: "patient id", identifier: " P001 ", wantPatient: "P003"},
		{name: "inactive", identifier: "9999", wantReason: intervention.ReasonPatientNotFound},
		{name: "inactive by id", identifier: "P002", wantReason: intervention.ReasonPatientNotFound},
		{name: "unknown", identifier: "nobody", wantReason: intervention.ReasonPatientNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(newDirectory(), &fakeStore{}, intervention.Options{})
			flow := m.Start()

			turn, err := m.Handle(context.Background(), flow, intervention.Input{Text: tt.identifier})
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if tt.wantReason != "" {
				if turn.Accepted || turn.Reason != tt.wantReason {
					t.Errorf("turn = %+v, want rejection %q", turn, tt.wantReason)
				}
				if flow.State.Step != intervention.StepIdentify {
					t.Errorf("step = %s, want identify", flow.State.Step)
				}
				return
			}
			if flow.Patient == nil || flow.Patient.ID != tt.wantPatient {
				t.Errorf("patient = %+v, want %s", flow.Patient, tt.wantPatient)
			}
		})
	}
}

func TestIdentifyPairingCodeTakesPrecedence(t *testing.T) {
	m := newMachine(newDirectory(), &fakeStore{}, intervention.Options{})
	flow := m.Start()
	drive(t, m, flow, "P001")

	if flow.Patient.ID != "P003" {
		t.Errorf("patient = %s, want P003 (pairing code match)", flow.Patient.ID)
	}
}

func TestNoMedicationsSkipsQuestions(t *testing.T) {
	store := &fakeStore{}
	m := newMachine(newDirectory(), store, intervention.Options{})
	flow := m.Start()

	turn := drive(t, m, flow, "P001", "no")
	if turn.Prompt.Step != intervention.StepEducationInterest {
		t.Errorf("next step = %s, want education_interest", turn.Prompt.Step)
	}

	drive(t, m, flow, "yes", "no")
	if len(store.saved) != 1 || len(store.saved[0].MedicationAdministration) != 0 {
		t.Errorf("saved = %+v", store.saved)
	}
}

func TestDirectoryFailure(t *testing.T) {
	dir := newDirectory()
	dir.err = errors.New("connection refused")
	m := newMachine(dir, &fakeStore{}, intervention.Options{})
	flow := m.Start()

	_, err := m.Handle(context.Background(), flow, intervention.Input{Text: "1234"})
	if err == nil {
		t.Fatal("expected error for directory failure")
	}
	if flow.State.Step != intervention.StepIdentify {
		t.Errorf("step = %s, want identify", flow.State.Step)
	}
}

func TestEducationTopics(t *testing.T) {
	tests := []struct {
		name          string
		choice        string
		education     intervention.EducationSource
		wantDelivered bool
		wantText      string
	}{
		{
			name:          "diet default",
			choice:        "1",
			wantDelivered: true,
			wantText:      intervention.DefaultEducation(intervention.TopicDiet),
		},
		{
			name:          "override",
			choice:        "other",
			education:     fakeEducation{text: "custom tips"},
			wantDelivered: true,
			wantText:      "custom tips",
		},
		{
			name:          "source failure falls back",
			choice:        "exercise",
			education:     fakeEducation{err: errors.New("db down")},
			wantDelivered: true,
			wantText:      intervention.DefaultEducation(intervention.TopicExercise),
		},
		{
			name:          "leave",
			choice:        "4",
			wantDelivered: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			m := intervention.NewMachine(newDirectory(), store, tt.education, intervention.Options{}, logger)
			flow := m.Start()

			turn := drive(t, m, flow, "1234", "no", "yes", "yes", "no", "yes", "yes", "yes", tt.choice)

			if turn.Notice != tt.wantText {
				t.Errorf("Notice = %q, want %q", turn.Notice, tt.wantText)
			}
			s := store.saved[0]
			if s.EducationalPromptDelivered != tt.wantDelivered {
				t.Errorf("session delivered = %v, want %v", s.EducationalPromptDelivered, tt.wantDelivered)
			}
			for _, r := range s.MedicationAdministration {
				if r.EducationalPromptDelivered != s.EducationalPromptDelivered {
					t.Error("record education flag differs from session")
				}
			}
		})
	}
}

func TestSaveFailureAndRetry(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	m := newMachine(newDirectory(), store, intervention.Options{})
	flow := m.Start()

	drive(t, m, flow, "1234", "no", "yes", "yes")
	turn, err := m.Handle(context.Background(), flow, intervention.Input{Text: "yes"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	drive(t, m, flow, "yes")

	turn, err = m.Handle(context.Background(), flow, intervention.Input{Text: "no"})
	if !errors.Is(err, intervention.ErrSaveFailed) {
		t.Fatalf("err = %v, want ErrSaveFailed", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v, want underlying cause", err)
	}
	if turn.Outcome == nil || flow.State.Step != intervention.StepFinalize {
		t.Fatal("flow should be finalized despite save failure")
	}
	if flow.Saved() {
		t.Error("flow should not be saved")
	}
	if !flow.Session.InteractionCompleted || len(flow.Session.MedicationAdministration) != 2 {
		t.Error("session state lost after save failure")
	}

	if _, err := m.Handle(context.Background(), flow, intervention.Input{Text: "yes"}); !errors.Is(err, intervention.ErrFlowClosed) {
		t.Errorf("Handle after finalize = %v, want ErrFlowClosed", err)
	}

	store.err = nil
	if err := m.Save(context.Background(), flow); err != nil {
		t.Fatalf("Save() retry error = %v", err)
	}
	if !flow.Saved() || len(store.saved) != 1 {
		t.Errorf("saved = %v, count = %d", flow.Saved(), len(store.saved))
	}
	if err := m.Save(context.Background(), flow); err != nil || len(store.saved) != 1 {
		t.Errorf("second Save() = %v, count = %d", err, len(store.saved))
	}
}

func TestSaveAlreadyPersisted(t *testing.T) {
	store := &fakeStore{err: intervention.ErrAlreadyPersisted}
	m := newMachine(newDirectory(), store, intervention.Options{})
	flow := m.Start()

	drive(t, m, flow, "P001", "no", "no")
	if !flow.Saved() {
		t.Error("ErrAlreadyPersisted should count as saved")
	}
}

func TestSaveStoreErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantSaved bool
	}{
		{"retry of stored session", fmt.Errorf("session completed: %w", intervention.ErrAlreadyPersisted), true},
		{"different session under id", fmt.Errorf("S_P001: %w", intervention.ErrSessionConflict), false},
		{"store down", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{err: tt.err}
			m := newMachine(newDirectory(), store, intervention.Options{})
			flow := m.Start()

			drive(t, m, flow, "P001", "no")
			_, err := m.Handle(context.Background(), flow, intervention.Input{Text: "no"})

			if flow.Saved() != tt.wantSaved {
				t.Errorf("Saved() = %v, want %v", flow.Saved(), tt.wantSaved)
			}
			if tt.wantSaved && err != nil {
				t.Errorf("Handle() error = %v", err)
			}
			if !tt.wantSaved && !errors.Is(err, intervention.ErrSaveFailed) {
				t.Errorf("Handle() error = %v, want ErrSaveFailed", err)
			}
		})
	}
}

func TestSaveBeforeFinalize(t *testing.T) {
	m := newMachine(newDirectory(), &fakeStore{}, intervention.Options{})
	flow := m.Start()
	if err := m.Save(context.Background(), flow); !errors.Is(err, intervention.ErrNotFinalized) {
		t.Errorf("Save() = %v, want ErrNotFinalized", err)
	}
}

func TestSessionStampedInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	m := newMachine(newDirectory(), &fakeStore{}, intervention.Options{Location: ny})
	flow := m.Start()
	drive(t, m, flow, "1234")

	if want := "S_P001_20240501090000"; flow.Session.SessionID != want {
		t.Errorf("SessionID = %q, want %q", flow.Session.SessionID, want)
	}
}

func TestPrompts(t *testing.T) {
	m := newMachine(newDirectory(), &fakeStore{}, intervention.Options{})
	flow := m.Start()

	if p := flow.Prompt(); p.Text != "Hello, what is your identifier?" {
		t.Errorf("identify prompt = %q", p.Text)
	}

	turn := drive(t, m, flow, "1234", "no")
	want := "Okay, did you take your M1 10mg today? It is for your blood pressure and you take it once a day."
	if turn.Prompt.Text != want {
		t.Errorf("medication prompt = %q, want %q", turn.Prompt.Text, want)
	}

	turn = drive(t, m, flow, "no")
	if !strings.Contains(turn.Prompt.Text, "have not taken your M1") {
		t.Errorf("confirm prompt = %q", turn.Prompt.Text)
	}
}
