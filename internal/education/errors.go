package education

import (
	"errors"
	"net/http"
)

// Domain errors for education content operations.
var (
	ErrNotFound       = errors.New("education content not found")
	ErrDuplicate      = errors.New("education content name already exists")
	ErrInvalidTopic   = errors.New("topic must be diet, exercise, or other_tips")
	ErrInvalidContent = errors.New("name and content are required")
)

// MapHTTPStatus maps education domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidTopic) || errors.Is(err, ErrInvalidContent) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
