package patients

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/adherence/pkg/pagination"
	"github.com/JaimeStill/adherence/pkg/query"
	"github.com/JaimeStill/adherence/pkg/repository"
)

const returning = "RETURNING patient_id, first_name, last_name, pairing_code, is_active, created_at, updated_at"

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	cleanup    []Cleanup
}

// New creates a patient repository implementing the System interface.
// cleanup hooks run after each successful Delete.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	cleanup ...Cleanup,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "patients"),
		pagination: pagination,
		cleanup:    cleanup,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Patient], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "FirstName", "LastName", "PairingCode", "ID")

	filters.Apply(qb)

	result, err := repository.QueryPage(ctx, r.db, qb, page, "patients", scanPatient)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id string) (*Patient, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPatient)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) FindActive(ctx context.Context, identifier string) (*Patient, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrIdentifierRequired
	}

	q := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = true AND (%s = $1 OR %s = $1)
		ORDER BY (%s = $1) DESC
		LIMIT 1`,
		projection.Columns(),
		projection.From(),
		projection.Column("Active"),
		projection.Column("PairingCode"),
		projection.Column("ID"),
		projection.Column("PairingCode"),
	)

	p, err := repository.QueryOne(ctx, r.db, q, []any{identifier}, scanPatient)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Patient, error) {
	if err := cmd.normalize(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO patients(first_name, last_name, pairing_code, is_active)
		VALUES ($1, $2, $3, $4)
		` + returning

	args := []any{cmd.FirstName, cmd.LastName, cmd.PairingCode, *cmd.Active}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Patient, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPatient)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("patient created", "patient_id", p.ID)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, id string, cmd UpdateCommand) (*Patient, error) {
	if err := cmd.normalize(); err != nil {
		return nil, err
	}

	q := `
		UPDATE patients
		SET first_name = $1, last_name = $2, pairing_code = $3, is_active = $4, updated_at = now()
		WHERE patient_id = $5
		` + returning

	args := []any{cmd.FirstName, cmd.LastName, cmd.PairingCode, cmd.Active, id}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Patient, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPatient)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("patient updated", "patient_id", p.ID, "active", p.Active)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM patients WHERE patient_id = $1",
			id,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	for _, fn := range r.cleanup {
		if err := fn(ctx, id); err != nil {
			r.logger.Error("patient cleanup failed", "patient_id", id, "error", err)
		}
	}

	r.logger.Info("patient deleted", "patient_id", id)
	return nil
}
