package interactions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/adherence/intervention"
)

// ErrNotFound indicates no in-progress interaction has the requested id.
var ErrNotFound = errors.New("interaction not found")

// MapHTTPStatus maps interaction and dialogue errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, intervention.ErrFlowClosed), errors.Is(err, intervention.ErrNotFinalized):
		return http.StatusConflict
	case errors.Is(err, intervention.ErrSaveFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
