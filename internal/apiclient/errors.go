package apiclient

import (
	"fmt"
	"net/http"

	"messenger/pkg/types"
)

// APIError carries the HTTP status and the server's message verbatim.
// Unwrap maps onto the shared taxonomy so callers use errors.Is without
// knowing about HTTP.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("data service: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("data service: status %d", e.Status)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return types.ErrNotFound
	case e.Status == http.StatusForbidden:
		return types.ErrPermissionDenied
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return types.ErrValidation
	default:
		return types.ErrNetwork
	}
}

// errorClass labels an error for the APIErrors metric.
func errorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	default:
		if apiErr, ok := err.(*APIError); ok {
			switch apiErr.Unwrap() {
			case types.ErrNotFound:
				return "not_found"
			case types.ErrPermissionDenied:
				return "permission_denied"
			case types.ErrValidation:
				return "validation"
			}
		}
		return "network"
	}
}
