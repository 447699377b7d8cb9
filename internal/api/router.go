package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers the API, the page routes and the static assets.
func NewRouter(h *ApiHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(h.Log), RecoveryMiddleware(h.Log))

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.AuthMiddleware)
	api.HandleFunc("/users/onboarding", h.OnboardUser).Methods(http.MethodPost)
	api.HandleFunc("/users/me", h.GetMe).Methods(http.MethodGet)
	api.HandleFunc("/progress/update", h.UpdateProgress).Methods(http.MethodPost)
	api.HandleFunc("/creations", h.CreateCreation).Methods(http.MethodPost)
	api.HandleFunc("/feed", h.GetFeed).Methods(http.MethodGet)
	api.HandleFunc("/modules/{id}", h.GetModule).Methods(http.MethodGet)
	api.HandleFunc("/modules/{id}/narration/{segment:[0-9]+}", h.GetNarration).Methods(http.MethodGet)

	r.HandleFunc("/", h.HomePage).Methods(http.MethodGet)
	r.HandleFunc("/learn/{id}", h.LearnPage).Methods(http.MethodGet)
	r.HandleFunc("/onboarding", h.OnboardingPage).Methods(http.MethodGet)
	r.HandleFunc("/sign-in", h.SignInPage).Methods(http.MethodGet)
	r.HandleFunc("/sign-up", h.SignUpPage).Methods(http.MethodGet)

	fs := http.FileServer(http.Dir(h.StaticDir))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs)).Methods(http.MethodGet)

	return r
}
