package httpapi

import (
	"net/http"

	"peka.app/internal/audit"
	"peka.app/internal/onboarding"
)

type onboardingRequest struct {
	Preferences []onboarding.Answer `json:"preferences"`
}

// handleOnboardingPreferences serves the first-run answer set:
// GET returns it, POST replaces it wholesale.
func (a *API) handleOnboardingPreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getOnboardingPreferences(w, r)
	case http.MethodPost:
		a.saveOnboardingPreferences(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) getOnboardingPreferences(w http.ResponseWriter, r *http.Request) {
	p, _ := principal(r)
	answers, err := a.deps.Onboarding.Get(r.Context(), p.User.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preferences": answers})
}

func (a *API) saveOnboardingPreferences(w http.ResponseWriter, r *http.Request) {
	p, _ := principal(r)

	var req onboardingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := a.deps.Onboarding.Save(r.Context(), p.User.ID, req.Preferences)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "onboarding.preferences.saved", map[string]any{
		"count": len(saved),
	})
	writeJSON(w, http.StatusOK, map[string]any{"preferences": saved})
}
