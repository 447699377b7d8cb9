package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"learnstream/internal/identity"
	"learnstream/internal/logger"
)

type contextKey string

// ContextSubjectKey holds the identity subject of an authenticated request.
const ContextSubjectKey contextKey = "subject"

// SubjectFromContext returns the subject stored by AuthMiddleware.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ContextSubjectKey).(string)
	return s
}

// AuthMiddleware rejects requests without a valid session token and stores
// the token's subject in the request context.
func (h *ApiHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := h.Verifier.Verify(identity.TokenFromRequest(r))
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrMissingToken):
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
			case errors.Is(err, identity.ErrTokenExpired):
				respondWithError(w, http.StatusUnauthorized, "Token has expired")
			default:
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), ContextSubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
			)
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500.
func RecoveryMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", v)
					respondWithError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
