package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"learnstream/internal/identity"
	"learnstream/internal/models"
)

// gate resolves the page visitor. It writes a redirect and returns false
// when the visitor has to go somewhere else first.
func (h *ApiHandler) gate(w http.ResponseWriter, r *http.Request, onboarded bool) bool {
	subject, err := h.Verifier.Verify(identity.TokenFromRequest(r))
	if err != nil {
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
		return false
	}
	if !onboarded {
		return true
	}

	if _, err := h.Onboarding.Me(r.Context(), subject); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
			return false
		}
		h.Log.Error("failed to resolve page visitor", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *ApiHandler) serveStatic(w http.ResponseWriter, r *http.Request, name string) {
	http.ServeFile(w, r, filepath.Join(h.StaticDir, name))
}

// HomePage serves the knowledge stream.
func (h *ApiHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, true) {
		return
	}
	h.serveStatic(w, r, "index.html")
}

// LearnPage serves the lesson shell for a catalog module.
func (h *ApiHandler) LearnPage(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, true) {
		return
	}
	if _, ok := h.Modules.Get(mux.Vars(r)["id"]); !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.serveStatic(w, r, "learn.html")
}

// OnboardingPage serves the profile form to any signed-in visitor.
func (h *ApiHandler) OnboardingPage(w http.ResponseWriter, r *http.Request) {
	if !h.gate(w, r, false) {
		return
	}
	h.serveStatic(w, r, "onboarding.html")
}

func (h *ApiHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.serveStatic(w, r, "sign-in.html")
}

func (h *ApiHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.serveStatic(w, r, "sign-up.html")
}
