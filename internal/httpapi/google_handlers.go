package httpapi

import (
	"errors"
	"net/http"
	"time"

	"peka.app/internal/audit"
	"peka.app/internal/auth"
	"peka.app/internal/oauth"
	"peka.app/internal/session"
)

const providerGoogle = "google"

type googleSignInRequest struct {
	Code string `json:"code"`
}

type googleSignInResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        auth.User `json:"user"`
}

// handleGoogleSignIn exchanges an authorization code, upserts the
// account, stores the delegated provider token in the session, and
// issues our own access token with the default scopes.
func (a *API) handleGoogleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.deps.Google == nil || a.deps.Sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}

	var req googleSignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identity, err := a.deps.Google.Exchange(r.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrEmailNotVerified):
			writeError(w, r, http.StatusForbidden, "email not verified by provider")
		case errors.Is(err, oauth.ErrExchangeFailed), errors.Is(err, oauth.ErrTokenInvalid):
			writeError(w, r, http.StatusUnauthorized, "sign-in rejected")
		default:
			writeError(w, r, http.StatusBadGateway, "provider unavailable")
		}
		return
	}

	user, err := a.deps.Users.UpsertOAuth(r.Context(), identity.Email, identity.Name)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if user.Disabled {
		writeError(w, r, http.StatusUnauthorized, genericAuthError)
		return
	}

	token, expiresAt, err := a.deps.Codec.Issue(user.Email, []string{auth.ScopeMe})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	if err := a.deps.Sessions.Put(w, r, providerGoogle, identity.AccessToken); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.google.signin", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})

	writeJSON(w, http.StatusOK, googleSignInResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	})
}

// handleGoogleToken exposes the delegated provider token held in the
// caller's session.
func (a *API) handleGoogleToken(w http.ResponseWriter, r *http.Request) {
	if a.deps.Sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		token, err := a.deps.Sessions.Get(r, providerGoogle)
		if err != nil {
			if errors.Is(err, session.ErrNoToken) {
				writeError(w, r, http.StatusUnauthorized, "no delegated token; sign in with google first")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"provider":     providerGoogle,
			"access_token": token,
		})
	case http.MethodDelete:
		if err := a.deps.Sessions.Remove(w, r, providerGoogle); err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.google.token_removed", nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}
