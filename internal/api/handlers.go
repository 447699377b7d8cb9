package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"learnstream/internal/logger"
	"learnstream/internal/models"
	"learnstream/internal/service"
)

// Onboarding is the user profile use case.
type Onboarding interface {
	Onboard(ctx context.Context, subject string, req service.OnboardingRequest) (service.OnboardingResult, error)
	Me(ctx context.Context, subject string) (models.User, error)
}

// Learning is the module and progress use case.
type Learning interface {
	OpenModule(ctx context.Context, subject, moduleID string) (service.ModuleView, error)
	CompletePhase(ctx context.Context, subject string, req service.CompletePhaseRequest) (service.ProgressView, error)
	Feed(ctx context.Context, subject, query, category string) (service.FeedView, error)
	SubmitCreation(ctx context.Context, subject string, req service.CreationRequest) (service.CreationResult, error)
	Narration(ctx context.Context, moduleID string, segment int) (*models.Object, error)
}

// TokenVerifier turns a session token into a subject id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// ModuleLookup reports whether a module exists in the catalog.
type ModuleLookup interface {
	Get(id string) (models.ContentModule, bool)
}

// Pinger checks the database connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ApiHandler serves the JSON API and the page shells.
type ApiHandler struct {
	Onboarding Onboarding
	Learning   Learning
	Verifier   TokenVerifier
	Modules    ModuleLookup
	DB         Pinger
	StaticDir  string
	Log        *logger.Logger
}

// OnboardUser handles POST /api/users/onboarding.
func (h *ApiHandler) OnboardUser(w http.ResponseWriter, r *http.Request) {
	subject := SubjectFromContext(r.Context())

	var req service.OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	res, err := h.Onboarding.Onboard(r.Context(), subject, req)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// GetMe handles GET /api/users/me.
func (h *ApiHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.Onboarding.Me(r.Context(), SubjectFromContext(r.Context()))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// UpdateProgress handles POST /api/progress/update.
func (h *ApiHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req service.CompletePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	view, err := h.Learning.CompletePhase(r.Context(), SubjectFromContext(r.Context()), req)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// CreateCreation handles POST /api/creations.
func (h *ApiHandler) CreateCreation(w http.ResponseWriter, r *http.Request) {
	var req service.CreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	res, err := h.Learning.SubmitCreation(r.Context(), SubjectFromContext(r.Context()), req)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

// GetFeed handles GET /api/feed.
func (h *ApiHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.Learning.Feed(r.Context(), SubjectFromContext(r.Context()), q.Get("q"), q.Get("category"))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// GetModule handles GET /api/modules/{id}.
func (h *ApiHandler) GetModule(w http.ResponseWriter, r *http.Request) {
	view, err := h.Learning.OpenModule(r.Context(), SubjectFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// GetNarration handles GET /api/modules/{id}/narration/{segment}.
func (h *ApiHandler) GetNarration(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	segment, err := strconv.Atoi(vars["segment"])
	if err != nil || segment < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid segment")
		return
	}

	obj, err := h.Learning.Narration(r.Context(), vars["id"], segment)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	defer obj.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		h.Log.Warn("narration stream interrupted", "module_id", vars["id"], "segment", segment, "error", err)
	}
}

// Healthz answers 200 while the database is reachable.
func (h *ApiHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		h.Log.Error("health check failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
