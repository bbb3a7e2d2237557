package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgForeignKeyCode   = "23503"
	pgDuplicateKeyCode = "23505"
)

// MapError translates database errors to domain errors.
// sql.ErrNoRows becomes notFoundErr and a PostgreSQL unique violation becomes
// duplicateErr. Anything else is returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	if pgCode(err) == pgDuplicateKeyCode {
		return duplicateErr
	}

	return err
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key violation,
// which repositories surface as a missing parent record.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyCode
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
