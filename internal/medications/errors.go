package medications

import (
	"errors"
	"net/http"
)

// Domain errors for medication operations.
var (
	ErrNotFound        = errors.New("medication not found")
	ErrDuplicate       = errors.New("medication already exists")
	ErrPatientNotFound = errors.New("patient not found")
	ErrNameRequired    = errors.New("name is required")
)

// MapHTTPStatus maps medication domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPatientNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNameRequired) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
