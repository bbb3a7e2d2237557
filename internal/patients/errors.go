package patients

import (
	"errors"
	"net/http"
)

// Domain errors for patient operations.
var (
	ErrNotFound           = errors.New("patient not found")
	ErrDuplicate          = errors.New("pairing code already assigned")
	ErrNameRequired       = errors.New("first_name and last_name are required")
	ErrIdentifierRequired = errors.New("identifier is required")
)

// MapHTTPStatus maps patient domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNameRequired) || errors.Is(err, ErrIdentifierRequired) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
