package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"peka.app/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// genericAuthError is the one body every authentication failure shares,
// so callers cannot distinguish unknown accounts from bad tokens.
const genericAuthError = "could not validate credentials"

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// challenge builds the WWW-Authenticate value for the declared scopes.
func challenge(scopes []string) string {
	if len(scopes) == 0 {
		return "Bearer"
	}
	return fmt.Sprintf("Bearer scope=%q", strings.Join(scopes, " "))
}

// requireScopes authenticates the request and enforces the declared
// scopes. A missing, malformed, or expired token answers 401; a valid
// token lacking a scope answers 403. Both carry WWW-Authenticate.
func (a *API) requireScopes(next http.Handler, scopes ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", challenge(scopes))
			writeError(w, r, http.StatusUnauthorized, genericAuthError)
			return
		}

		principal, err := a.deps.Resolver.Resolve(r.Context(), token, scopes)
		if err != nil {
			w.Header().Set("WWW-Authenticate", challenge(scopes))
			switch {
			case errors.Is(err, auth.ErrForbidden):
				writeError(w, r, http.StatusForbidden, "insufficient scope")
			case errors.Is(err, auth.ErrUnauthenticated):
				writeError(w, r, http.StatusUnauthorized, genericAuthError)
			default:
				// Credential store unreachable; not an auth verdict.
				writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal returns the verified identity set by requireScopes.
func principal(r *http.Request) (auth.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}
