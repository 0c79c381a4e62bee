package httpadapter

import (
	"net/http"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrValidationFailure):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrFileNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
