package sessions

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/adherence/intervention"
)

// Domain errors for session persistence.
var (
	ErrNotFound        = errors.New("session not found")
	ErrDuplicate       = errors.New("session already exists")
	ErrPatientRequired = errors.New("patient_id is required")
	ErrPatientNotFound = errors.New("patient not found")
	ErrPatientMismatch = errors.New("session belongs to another patient")
	ErrInvalidSession  = errors.New("invalid session")
	// ErrCompleted rejects writes to a session stored as completed.
	ErrCompleted = fmt.Errorf("session completed: %w", intervention.ErrAlreadyPersisted)
	// ErrConflict rejects a session whose id is held by a different
	// completed session.
	ErrConflict = fmt.Errorf("session conflict: %w", intervention.ErrSessionConflict)
)

// MapHTTPStatus maps session domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPatientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCompleted), errors.Is(err, ErrConflict),
		errors.Is(err, ErrDuplicate), errors.Is(err, ErrPatientMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrPatientRequired), errors.Is(err, ErrInvalidSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
