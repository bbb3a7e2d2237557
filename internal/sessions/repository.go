package sessions

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/pagination"
	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
	"github.com/JaimeStill/adherence/pkg/storage"
)

const archiveDeleteLimit = 8

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
	location   *time.Location
}

// New creates a session repository implementing the System interface.
// Timestamps read back from the database are expressed in loc.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
	loc *time.Location,
) System {
	if loc == nil {
		loc = time.UTC
	}
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "sessions"),
		pagination: pagination,
		location:   loc,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination, r.location)
}

// Save writes the session under a row lock, then archives the committed
// record. A completed session is never rewritten. Saving the same session
// again repairs a missing or stale archive from the stored row and returns
// ErrCompleted; a different session under the id returns ErrConflict.
func (r *repo) Save(ctx context.Context, s *intervention.Session) error {
	if err := Validate(s); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", s.SessionID, err)
	}

	err = r.write(ctx, s)
	switch {
	case errors.Is(err, ErrCompleted):
		if rerr := r.repairArchive(ctx, s.PatientID, s.SessionID); rerr != nil {
			return rerr
		}
		return err
	case err != nil:
		return err
	}

	key := ArchiveKey(s.PatientID, s.SessionID)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		r.logger.Error("session archive failed", "session_id", s.SessionID, "key", key, "error", err)
		return fmt.Errorf("archive session %s: %w", s.SessionID, err)
	}

	r.logger.Info(
		"session saved",
		"session_id", s.SessionID,
		"patient_id", s.PatientID,
		"records", len(s.MedicationAdministration),
		"completed", s.InteractionCompleted,
	)
	return nil
}

const lockSession = `
	SELECT s.patient_id, s.interaction_completed, s.created_at,
		(SELECT COUNT(*) FROM medication_administrations m WHERE m.session_id = s.session_id)
	FROM sessions s
	WHERE s.session_id = $1
	FOR UPDATE OF s`

const upsertSession = `
	INSERT INTO sessions(` + sessionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (session_id) DO UPDATE SET
		updated_at = EXCLUDED.updated_at,
		ended_at = EXCLUDED.ended_at,
		interaction_completed = EXCLUDED.interaction_completed,
		medication_change_reported = EXCLUDED.medication_change_reported,
		medication_change_details = EXCLUDED.medication_change_details,
		educational_prompt_delivered = EXCLUDED.educational_prompt_delivered
	WHERE NOT sessions.interaction_completed`

const insertRecord = `
	INSERT INTO medication_administrations(` + recordColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (r *repo) write(ctx context.Context, s *intervention.Session) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var (
			owner     string
			completed bool
			createdAt time.Time
			records   int
		)

		err := tx.QueryRowContext(ctx, lockSession, s.SessionID).
			Scan(&owner, &completed, &createdAt, &records)

		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return struct{}{}, fmt.Errorf("lock session %s: %w", s.SessionID, err)
		case completed && sameSession(s, owner, createdAt, records):
			return struct{}{}, ErrCompleted
		case completed:
			return struct{}{}, fmt.Errorf("%s: %w", s.SessionID, ErrConflict)
		case owner != s.PatientID:
			return struct{}{}, ErrPatientMismatch
		}

		res, err := tx.ExecContext(
			ctx, upsertSession,
			s.SessionID,
			s.PatientID,
			s.CreatedAt,
			s.UpdatedAt,
			s.EndedAt,
			s.InteractionCompleted,
			s.MedicationChangeReported,
			s.MedicationChangeDetails,
			s.EducationalPromptDelivered,
		)
		if err != nil {
			if repository.IsForeignKeyViolation(err) {
				return struct{}{}, ErrPatientNotFound
			}
			return struct{}{}, fmt.Errorf("upsert session %s: %w", s.SessionID, err)
		}

		// A concurrent writer completed the session after the lock missed.
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return struct{}{}, fmt.Errorf("%s: %w", s.SessionID, ErrConflict)
		}

		if _, err := tx.ExecContext(
			ctx,
			"DELETE FROM medication_administrations WHERE session_id = $1",
			s.SessionID,
		); err != nil {
			return struct{}{}, fmt.Errorf("clear records of %s: %w", s.SessionID, err)
		}

		for _, rec := range s.MedicationAdministration {
			if _, err := tx.ExecContext(ctx, insertRecord, recordArgs(s.SessionID, rec)...); err != nil {
				return struct{}{}, fmt.Errorf("insert record %d of %s: %w", rec.AdministrationID, s.SessionID, err)
			}
		}

		return struct{}{}, nil
	})
	return err
}

// sameSession reports whether the stored row was written from s. Timestamps
// are compared at the database's microsecond precision.
func sameSession(s *intervention.Session, owner string, createdAt time.Time, records int) bool {
	return owner == s.PatientID &&
		records == len(s.MedicationAdministration) &&
		s.CreatedAt.Truncate(time.Microsecond).Equal(createdAt.Truncate(time.Microsecond))
}

// repairArchive rewrites the archive of a completed session from the stored
// row when the blob is missing or holds an earlier open write.
func (r *repo) repairArchive(ctx context.Context, patientID, sessionID string) error {
	key := ArchiveKey(patientID, sessionID)

	rc, err := r.storage.Download(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("read archive %s: %w", key, err)
	default:
		var archived intervention.Session
		derr := json.NewDecoder(rc).Decode(&archived)
		rc.Close()
		if derr == nil && archived.InteractionCompleted {
			return nil
		}
	}

	stored, err := r.Find(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}

	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("repair archive %s: %w", key, err)
	}

	r.logger.Warn("session archive repaired", "session_id", sessionID, "key", key)
	return nil
}

func (r *repo) Find(ctx context.Context, id string) (*intervention.Session, error) {
	s, err := repository.QueryOne(
		ctx, r.db,
		"SELECT "+sessionColumns+" FROM sessions WHERE session_id = $1",
		[]any{id},
		scanSession,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	records, err := repository.QueryMany(
		ctx, r.db,
		"SELECT "+recordColumns+" FROM medication_administrations WHERE session_id = $1 ORDER BY administration_id",
		[]any{id},
		scanRecord,
	)
	if err != nil {
		return nil, fmt.Errorf("query records of %s: %w", id, err)
	}

	s.MedicationAdministration = make([]intervention.AdministrationRecord, 0, len(records))
	for _, rec := range records {
		s.MedicationAdministration = append(s.MedicationAdministration, rec.AdministrationRecord)
	}

	localize(&s, r.location)
	return &s, nil
}

func (r *repo) ListForPatient(ctx context.Context, patientID string) ([]intervention.Session, error) {
	var exists bool
	if err := r.db.QueryRowContext(
		ctx,
		"SELECT EXISTS(SELECT 1 FROM patients WHERE patient_id = $1)",
		patientID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check patient %s: %w", patientID, err)
	}
	if !exists {
		return nil, ErrPatientNotFound
	}

	list, err := repository.QueryMany(
		ctx, r.db,
		"SELECT "+sessionColumns+" FROM sessions WHERE patient_id = $1 ORDER BY created_at DESC, session_id DESC",
		[]any{patientID},
		scanSession,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions of %s: %w", patientID, err)
	}

	records, err := repository.QueryMany(
		ctx, r.db,
		"SELECT "+recordColumns+" FROM medication_administrations WHERE patient_id = $1 ORDER BY session_id, administration_id",
		[]any{patientID},
		scanRecord,
	)
	if err != nil {
		return nil, fmt.Errorf("query records of %s: %w", patientID, err)
	}

	bySession := make(map[string][]intervention.AdministrationRecord)
	for _, rec := range records {
		bySession[rec.sessionID] = append(bySession[rec.sessionID], rec.AdministrationRecord)
	}

	for i := range list {
		list[i].MedicationAdministration = bySession[list[i].SessionID]
		if list[i].MedicationAdministration == nil {
			list[i].MedicationAdministration = []intervention.AdministrationRecord{}
		}
		localize(&list[i], r.location)
	}

	return list, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Summary], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "SessionID", "FirstName", "LastName")

	filters.Apply(qb)

	items, err := repository.QueryPage(ctx, r.db, qb, page, "sessions", scanSummary)
	if err != nil {
		return nil, err
	}

	result := pagination.Map(
		items,
		func(s Summary) Summary {
			s.CreatedAt = s.CreatedAt.In(r.location)
			s.UpdatedAt = s.UpdatedAt.In(r.location)
			if s.EndedAt != nil {
				t := s.EndedAt.In(r.location)
				s.EndedAt = &t
			}
			return s
		},
	)
	return &result, nil
}

func (r *repo) DeleteForPatient(ctx context.Context, patientID string) (int, error) {
	n, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int, error) {
		return repository.ExecCount(ctx, tx, "DELETE FROM sessions WHERE patient_id = $1", patientID)
	})
	if err != nil {
		return 0, fmt.Errorf("delete sessions of %s: %w", patientID, err)
	}

	if err := r.DeleteArchive(ctx, patientID); err != nil {
		r.logger.Error("session archive cleanup failed", "patient_id", patientID, "error", err)
	}

	r.logger.Info("sessions deleted", "patient_id", patientID, "count", n)
	return n, nil
}

func (r *repo) Archive(ctx context.Context, id string) (io.ReadCloser, error) {
	var patientID string
	err := r.db.QueryRowContext(
		ctx,
		"SELECT patient_id FROM sessions WHERE session_id = $1",
		id,
	).Scan(&patientID)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	rc, err := r.storage.Download(ctx, ArchiveKey(patientID, id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("archive of %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return rc, nil
}

func (r *repo) DeleteArchive(ctx context.Context, patientID string) error {
	keys, err := r.storage.List(ctx, ArchivePrefix(patientID))
	if err != nil {
		return fmt.Errorf("list archives of %s: %w", patientID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(archiveDeleteLimit)

	for _, key := range keys {
		g.Go(func() error {
			if err := r.storage.Delete(gctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("delete archive %s: %w", key, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if len(keys) > 0 {
		r.logger.Info("session archives deleted", "patient_id", patientID, "count", len(keys))
	}
	return nil
}
