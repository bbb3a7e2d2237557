package medications

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/adherence/pkg/pagination"
	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
)

const returning = "RETURNING medication_id, patient_id, name, dose, frequency, created_at, updated_at"

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a medication repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "medications"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Medication], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Dose")

	filters.Apply(qb)

	result, err := repository.QueryPage(ctx, r.db, qb, page, "medications", scanMedication)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListForPatient reads the whole list in a single statement so a concurrent
// edit is seen either entirely or not at all.
func (r *repo) ListForPatient(ctx context.Context, patientID string) ([]Medication, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("PatientID", patientID).
		Build()

	meds, err := repository.QueryMany(ctx, r.db, q, args, scanMedication)
	if err != nil {
		return nil, fmt.Errorf("query medications for %s: %w", patientID, err)
	}
	return meds, nil
}

func (r *repo) Find(ctx context.Context, id string) (*Medication, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMedication)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &m, nil
}

func (r *repo) Create(ctx context.Context, patientID string, cmd CreateCommand) (*Medication, error) {
	if err := normalize(&cmd.Name, &cmd.Dose, &cmd.Frequency); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO medications(patient_id, name, dose, frequency)
		VALUES ($1, $2, $3, $4)
		` + returning

	args := []any{patientID, cmd.Name, cmd.Dose, cmd.Frequency}

	m, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Medication, error) {
		return repository.QueryOne(ctx, tx, q, args, scanMedication)
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrPatientNotFound
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("medication created", "medication_id", m.ID, "patient_id", m.PatientID)
	return &m, nil
}

func (r *repo) Update(ctx context.Context, id string, cmd UpdateCommand) (*Medication, error) {
	if err := normalize(&cmd.Name, &cmd.Dose, &cmd.Frequency); err != nil {
		return nil, err
	}

	q := `
		UPDATE medications
		SET name = $1, dose = $2, frequency = $3, updated_at = now()
		WHERE medication_id = $4
		` + returning

	args := []any{cmd.Name, cmd.Dose, cmd.Frequency, id}

	m, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Medication, error) {
		return repository.QueryOne(ctx, tx, q, args, scanMedication)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("medication updated", "medication_id", m.ID)
	return &m, nil
}

func (r *repo) Delete(ctx context.Context, patientID, id string) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM medications WHERE medication_id = $1 AND patient_id = $2",
			id, patientID,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("medication deleted", "medication_id", id, "patient_id", patientID)
	return nil
}
