package sessions_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/internal/sessions"
	"github.com/JaimeStill/adherence/pkg/pagination"
)

var baseTime = time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)

func newRepo(t *testing.T, db *memDB, store *memStorage) sessions.System {
	t.Helper()
	return sessions.New(
		db.open(t),
		store,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		time.UTC,
	)
}

func buildSession(patientID string, created time.Time, records int, completed bool) *intervention.Session {
	s := intervention.NewSession(patientID, created)
	for i := range records {
		s.MedicationAdministration = append(s.MedicationAdministration, intervention.AdministrationRecord{
			AdministrationID:    i + 1,
			PatientID:           patientID,
			MedicationID:        fmt.Sprintf("MED%03d", i+1),
			MedicationName:      fmt.Sprintf("Medication %d", i+1),
			MedicationFrequency: "once daily",
			PatientConfirmed:    i%2 == 0,
			CreatedAt:           created,
			UpdatedAt:           created.Add(time.Minute),
			EndedAt:             created.Add(time.Minute),
		})
	}
	if completed {
		ended := created.Add(2 * time.Minute)
		s.EndedAt = &ended
		s.UpdatedAt = ended
		s.InteractionCompleted = true
	}
	return s
}

func readArchive(t *testing.T, store *memStorage, s *intervention.Session) (intervention.Session, bool) {
	t.Helper()
	data, ok := store.blob(sessions.ArchiveKey(s.PatientID, s.SessionID))
	if !ok {
		return intervention.Session{}, false
	}
	var archived intervention.Session
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	return archived, true
}

func TestRepositorySaveRoundTrip(t *testing.T) {
	db := newMemDB("P001")
	store := newMemStorage()
	repo := newRepo(t, db, store)

	s := buildSession("P001", baseTime, 3, true)
	s.MedicationChangeReported = true
	s.MedicationChangeDetails = "stopped M2"
	s.MedicationAdministration[1].ErrorFlag = true
	s.MedicationAdministration[1].ErrorDescription = intervention.UnresolvedDescription

	if err := repo.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Find(context.Background(), s.SessionID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if got.SessionID != s.SessionID || got.PatientID != s.PatientID {
		t.Errorf("identity = %s/%s", got.SessionID, got.PatientID)
	}
	if !got.CreatedAt.Equal(s.CreatedAt) || got.EndedAt == nil || !got.EndedAt.Equal(*s.EndedAt) {
		t.Errorf("timestamps = %v, %v", got.CreatedAt, got.EndedAt)
	}
	if !got.InteractionCompleted || !got.MedicationChangeReported || got.MedicationChangeDetails != "stopped M2" {
		t.Errorf("flags = %+v", got)
	}
	if len(got.MedicationAdministration) != 3 {
		t.Fatalf("records = %d, want 3", len(got.MedicationAdministration))
	}
	for i, rec := range got.MedicationAdministration {
		want := s.MedicationAdministration[i]
		if rec.AdministrationID != want.AdministrationID || rec.MedicationID != want.MedicationID {
			t.Errorf("record %d = %d/%s, want %d/%s", i, rec.AdministrationID, rec.MedicationID, want.AdministrationID, want.MedicationID)
		}
		if rec.PatientConfirmed != want.PatientConfirmed || rec.ErrorFlag != want.ErrorFlag || rec.ErrorDescription != want.ErrorDescription {
			t.Errorf("record %d = %+v, want %+v", i, rec, want)
		}
	}

	archived, ok := readArchive(t, store, s)
	if !ok {
		t.Fatal("archive not written")
	}
	if archived.SessionID != s.SessionID || len(archived.MedicationAdministration) != 3 {
		t.Errorf("archive = %+v", archived)
	}
}

func TestRepositorySaveCompletedUnchanged(t *testing.T) {
	db := newMemDB("P001")
	store := newMemStorage()
	repo := newRepo(t, db, store)

	original := buildSession("P001", baseTime, 2, true)
	original.MedicationChangeReported = true
	original.MedicationChangeDetails = "ORIGINAL"
	if err := repo.Save(context.Background(), original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tests := []struct {
		name          string
		session       func() *intervention.Session
		wantErr       error
		wantPersisted bool
	}{
		{
			name: "same session rewritten",
			session: func() *intervention.Session {
				s := buildSession("P001", baseTime, 2, true)
				s.MedicationChangeReported = true
				s.MedicationChangeDetails = "REJECTED"
				return s
			},
			wantErr:       sessions.ErrCompleted,
			wantPersisted: true,
		},
		{
			name: "different session under id",
			session: func() *intervention.Session {
				s := buildSession("P001", baseTime.Add(500*time.Millisecond), 1, true)
				s.MedicationChangeDetails = "REJECTED"
				return s
			},
			wantErr: sessions.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploads := store.uploads
			s := tt.session()

			err := repo.Save(context.Background(), s)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Save() error = %v, want %v", err, tt.wantErr)
			}
			if got := errors.Is(err, intervention.ErrAlreadyPersisted); got != tt.wantPersisted {
				t.Errorf("ErrAlreadyPersisted = %v, want %v", got, tt.wantPersisted)
			}

			if store.uploads != uploads {
				t.Errorf("uploads = %d, want %d", store.uploads, uploads)
			}
			archived, ok := readArchive(t, store, original)
			if !ok || archived.MedicationChangeDetails != "ORIGINAL" {
				t.Errorf("archive details = %q, want ORIGINAL", archived.MedicationChangeDetails)
			}

			stored, err := repo.Find(context.Background(), original.SessionID)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if stored.MedicationChangeDetails != "ORIGINAL" || len(stored.MedicationAdministration) != 2 {
				t.Errorf("stored = %q with %d records", stored.MedicationChangeDetails, len(stored.MedicationAdministration))
			}
		})
	}
}

func TestRepositorySaveRepairsArchive(t *testing.T) {
	tests := []struct {
		name      string
		earlier   func(repo sessions.System) error
		wantStale bool
	}{
		{
			name:    "missing",
			earlier: func(sessions.System) error { return nil },
		},
		{
			name: "left from open write",
			earlier: func(repo sessions.System) error {
				return repo.Save(context.Background(), buildSession("P001", baseTime, 1, false))
			},
			wantStale: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemDB("P001")
			store := newMemStorage()
			repo := newRepo(t, db, store)

			if err := tt.earlier(repo); err != nil {
				t.Fatalf("earlier save: %v", err)
			}

			s := buildSession("P001", baseTime, 2, true)
			store.uploadErr = errors.New("storage unavailable")
			if err := repo.Save(context.Background(), s); err == nil {
				t.Fatal("Save() should fail when the archive upload fails")
			}
			if row := db.session(s.SessionID); row == nil {
				t.Fatal("session row should be committed before the upload")
			}

			archived, ok := readArchive(t, store, s)
			if ok != tt.wantStale || (ok && archived.InteractionCompleted) {
				t.Fatalf("archive before retry: present %v, completed %v", ok, archived.InteractionCompleted)
			}

			store.uploadErr = nil
			err := repo.Save(context.Background(), s)
			if !errors.Is(err, intervention.ErrAlreadyPersisted) {
				t.Fatalf("retry error = %v, want ErrAlreadyPersisted", err)
			}

			archived, ok = readArchive(t, store, s)
			if !ok {
				t.Fatal("archive not repaired")
			}
			if !archived.InteractionCompleted || len(archived.MedicationAdministration) != 2 {
				t.Errorf("repaired archive = %+v", archived)
			}
		})
	}
}

func TestRepositorySaveRepairFailure(t *testing.T) {
	db := newMemDB("P001")
	store := newMemStorage()
	repo := newRepo(t, db, store)

	s := buildSession("P001", baseTime, 1, true)
	store.uploadErr = errors.New("storage unavailable")
	if err := repo.Save(context.Background(), s); err == nil {
		t.Fatal("Save() should fail when the archive upload fails")
	}

	err := repo.Save(context.Background(), s)
	if err == nil || errors.Is(err, intervention.ErrAlreadyPersisted) {
		t.Errorf("retry error = %v, want a failure that is not ErrAlreadyPersisted", err)
	}
}

func TestRepositorySaveRollsBack(t *testing.T) {
	db := newMemDB("P001")
	db.failRecordInsert = 2
	store := newMemStorage()
	repo := newRepo(t, db, store)

	s := buildSession("P001", baseTime, 3, true)
	if err := repo.Save(context.Background(), s); err == nil {
		t.Fatal("Save() should fail")
	}

	if db.session(s.SessionID) != nil || db.recordCount(s.SessionID) != 0 {
		t.Error("failed write left rows behind")
	}
	if db.rollbacks == 0 || db.commits != 0 {
		t.Errorf("commits = %d, rollbacks = %d", db.commits, db.rollbacks)
	}
	if _, ok := readArchive(t, store, s); ok {
		t.Error("archive written for a rolled back session")
	}
}

func TestRepositorySaveRejects(t *testing.T) {
	tests := []struct {
		name    string
		session func() *intervention.Session
		wantErr error
	}{
		{"nil", func() *intervention.Session { return nil }, sessions.ErrInvalidSession},
		{
			"missing patient",
			func() *intervention.Session {
				s := buildSession("P001", baseTime, 0, true)
				s.PatientID = ""
				return s
			},
			sessions.ErrPatientRequired,
		},
		{
			"gap in administration ids",
			func() *intervention.Session {
				s := buildSession("P001", baseTime, 2, true)
				s.MedicationAdministration[1].AdministrationID = 3
				return s
			},
			sessions.ErrInvalidSession,
		},
		{
			"duplicate administration id",
			func() *intervention.Session {
				s := buildSession("P001", baseTime, 2, true)
				s.MedicationAdministration[1].AdministrationID = 1
				return s
			},
			sessions.ErrInvalidSession,
		},
		{
			"record of another patient",
			func() *intervention.Session {
				s := buildSession("P001", baseTime, 2, true)
				s.MedicationAdministration[0].PatientID = "P002"
				return s
			},
			sessions.ErrInvalidSession,
		},
		{"unknown patient", func() *intervention.Session { return buildSession("P404", baseTime, 1, true) }, sessions.ErrPatientNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemDB("P001", "P002")
			store := newMemStorage()
			repo := newRepo(t, db, store)

			err := repo.Save(context.Background(), tt.session())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
			if db.commits != 0 || store.uploads != 0 {
				t.Errorf("commits = %d, uploads = %d", db.commits, store.uploads)
			}
		})
	}
}

func TestRepositorySaveOpenSession(t *testing.T) {
	db := newMemDB("P001", "P002")
	store := newMemStorage()
	repo := newRepo(t, db, store)

	open := buildSession("P001", baseTime, 1, false)
	if err := repo.Save(context.Background(), open); err != nil {
		t.Fatalf("Save(open) error = %v", err)
	}

	done := buildSession("P001", baseTime, 3, true)
	if err := repo.Save(context.Background(), done); err != nil {
		t.Fatalf("Save(completed) error = %v", err)
	}
	if n := db.recordCount(done.SessionID); n != 3 {
		t.Errorf("records = %d, want 3", n)
	}
	if archived, _ := readArchive(t, store, done); !archived.InteractionCompleted {
		t.Error("archive should hold the completed write")
	}

	other := buildSession("P002", baseTime, 0, false)
	other.SessionID = "S_shared_20240501130000"
	first := buildSession("P001", baseTime, 0, false)
	first.SessionID = other.SessionID
	if err := repo.Save(context.Background(), first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(context.Background(), other); !errors.Is(err, sessions.ErrPatientMismatch) {
		t.Errorf("Save(other patient) = %v, want ErrPatientMismatch", err)
	}
}

func TestRepositoryFindOrdersRecords(t *testing.T) {
	db := newMemDB("P001")
	repo := newRepo(t, db, newMemStorage())

	s := buildSession("P001", baseTime, 4, true)
	if err := repo.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	db.mu.Lock()
	slices.Reverse(db.records[s.SessionID])
	db.mu.Unlock()

	got, err := repo.Find(context.Background(), s.SessionID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	for i, rec := range got.MedicationAdministration {
		if rec.AdministrationID != i+1 {
			t.Errorf("record %d has administration_id %d", i, rec.AdministrationID)
		}
	}

	if _, err := repo.Find(context.Background(), "S_missing"); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("Find(missing) = %v, want ErrNotFound", err)
	}
}

func TestRepositoryListForPatient(t *testing.T) {
	db := newMemDB("P001", "P002", "P003")
	repo := newRepo(t, db, newMemStorage())

	for i, offset := range []time.Duration{time.Hour, 0, 2 * time.Hour} {
		if err := repo.Save(context.Background(), buildSession("P001", baseTime.Add(offset), i+1, true)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if err := repo.Save(context.Background(), buildSession("P002", baseTime, 2, true)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tests := []struct {
		patient     string
		wantErr     error
		wantCreated []time.Time
		wantRecords []int
	}{
		{
			patient:     "P001",
			wantCreated: []time.Time{baseTime.Add(2 * time.Hour), baseTime.Add(time.Hour), baseTime},
			wantRecords: []int{3, 1, 2},
		},
		{patient: "P003", wantCreated: []time.Time{}},
		{patient: "P404", wantErr: sessions.ErrPatientNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.patient, func(t *testing.T) {
			got, err := repo.ListForPatient(context.Background(), tt.patient)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ListForPatient() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			if got == nil || len(got) != len(tt.wantCreated) {
				t.Fatalf("sessions = %d, want %d", len(got), len(tt.wantCreated))
			}
			for i, s := range got {
				if !s.CreatedAt.Equal(tt.wantCreated[i]) {
					t.Errorf("session %d created %v, want %v", i, s.CreatedAt, tt.wantCreated[i])
				}
				if len(s.MedicationAdministration) != tt.wantRecords[i] {
					t.Errorf("session %d has %d records, want %d", i, len(s.MedicationAdministration), tt.wantRecords[i])
				}
				for j, rec := range s.MedicationAdministration {
					if rec.AdministrationID != j+1 {
						t.Errorf("session %d record %d has administration_id %d", i, j, rec.AdministrationID)
					}
				}
			}
		})
	}
}

func TestRepositoryArchive(t *testing.T) {
	db := newMemDB("P001")
	repo := newRepo(t, db, newMemStorage())

	s := buildSession("P001", baseTime, 1, true)
	if err := repo.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rc, err := repo.Archive(context.Background(), s.SessionID)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	defer rc.Close()

	var archived intervention.Session
	if err := json.NewDecoder(rc).Decode(&archived); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if archived.SessionID != s.SessionID {
		t.Errorf("archive session = %s", archived.SessionID)
	}

	if _, err := repo.Archive(context.Background(), "S_missing"); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("Archive(missing) = %v, want ErrNotFound", err)
	}
}
