package api

import (
	"errors"
	"net/http"

	"learnstream/internal/identity"
	"learnstream/internal/models"
	"learnstream/internal/progress"
	"learnstream/internal/service"
)

// statusFor maps a use case error onto an HTTP status and a client message.
func statusFor(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, identity.ErrMissingToken),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrTokenExpired):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, models.ErrNotOnboarded):
		return http.StatusForbidden, "User has not completed onboarding"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, progress.ErrPhaseUnavailable):
		return http.StatusConflict, "Phase is not available yet"
	case errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict, "Progress was updated concurrently, retry"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *ApiHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.Log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	}
	respondWithError(w, code, msg)
}
