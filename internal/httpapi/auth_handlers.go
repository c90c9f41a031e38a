package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"peka.app/internal/audit"
	"peka.app/internal/auth"
	"peka.app/internal/todo"
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login failures share one body so callers cannot tell an unknown
// email from a wrong password.
const genericLoginError = "incorrect email or password"

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	user := auth.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := a.deps.Users.Create(r.Context(), &user); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.user.signup", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})

	w.Header().Set("Location", "/v1/users/me")
	writeJSON(w, http.StatusCreated, user)
}

// handleToken is the password login endpoint. The body is form-encoded
// with username, password, and an optional space-separated scope list.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed form body")
		return
	}

	scopes := auth.NormalizeScopes(strings.Fields(strings.Join(r.PostForm["scope"], " ")))
	for _, s := range scopes {
		if !auth.KnownScope(s) {
			writeError(w, r, http.StatusBadRequest, "unknown scope: "+s)
			return
		}
	}

	user, err := a.deps.Authenticator.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, genericLoginError)
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
		return
	}

	token, expiresAt, err := a.deps.Codec.Issue(user.Email, scopes)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"user_id":    user.ID,
		"scopes":     scopes,
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, genericAuthError)
		return
	}
	writeJSON(w, http.StatusOK, p.User)
}

func (a *API) handleMeItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, genericAuthError)
		return
	}
	items, err := a.deps.Todos.List(r.Context(), p.User.ID, todo.ListFilter{})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*todo.Todo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner": p.User.Email,
		"items": items,
	})
}
