package handler

import (
	"errors"
	"net/http"

	"dressline/internal/domain"
	"dressline/internal/httputil"
)

// statusFromError maps domain errors to HTTP status codes
func statusFromError(err error) int {
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, httputil.ErrBodyTooLarge),
		errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrOrphanedModule),
		errors.Is(err, domain.ErrEncoding),
		errors.Is(err, domain.ErrDecoding):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRemote):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// handleError converts domain errors to HTTP responses. Unexpected errors
// are reported without their cause.
func handleError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError && !errors.Is(err, domain.ErrStorage) {
		httputil.RespondError(w, status, "internal server error")
		return
	}
	httputil.RespondError(w, status, err.Error())
}

// pathID parses a numeric path parameter, answering 400 when it is invalid
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := httputil.PathInt64(r, name)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// parseBody decodes a JSON request body, answering 400 or 413 on failure
func parseBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(w, r, dest); err != nil {
		httputil.RespondError(w, statusFromBodyError(err), err.Error())
		return false
	}
	return true
}

func statusFromBodyError(err error) int {
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
