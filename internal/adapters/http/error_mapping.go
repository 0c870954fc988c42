package httpadapter

import (
	"net/http"

	"github.com/kirillkom/cinegraph/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSourceNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrStrategyUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides internals behind a generic message for 5xx
// responses. 4xx errors carry actionable detail for the caller.
func clientMessage(status int, err error) string {
	if status >= http.StatusInternalServerError {
		return "internal error"
	}
	if status == http.StatusServiceUnavailable {
		return "service temporarily unavailable"
	}
	return err.Error()
}
