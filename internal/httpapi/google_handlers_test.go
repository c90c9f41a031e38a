package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"peka.app/internal/auth"
	"peka.app/internal/oauth"
)

// seedDelegatedToken writes a provider token into a session cookie the
// way the sign-in handler would, and returns the cookie header value.
func seedDelegatedToken(t *testing.T, env *testEnv, token string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", nil)
	if err := env.api.deps.Sessions.Put(rec, req, providerGoogle, token); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return rec.Result().Cookies()
}

func (e *testEnv) doWithCookies(t *testing.T, method, target string, header http.Header, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(""))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestGoogleTokenFromSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "ada@example.com", "correct horse", "me")
	cookies := seedDelegatedToken(t, env, "ya29.delegated")

	rec := env.doWithCookies(t, http.MethodGet, "/v1/auth/google/token", authHeaderFor(token), cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := jsonDecode(rec, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["access_token"] != "ya29.delegated" || resp["provider"] != "google" {
		t.Fatalf("resp = %v", resp)
	}
}

func TestGoogleTokenAbsent(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "ada@example.com", "correct horse", "me")

	rec := env.do(t, http.MethodGet, "/v1/auth/google/token", "", "", authHeaderFor(token))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestGoogleTokenDelete(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "ada@example.com", "correct horse", "me")
	cookies := seedDelegatedToken(t, env, "ya29.delegated")

	rec := env.doWithCookies(t, http.MethodDelete, "/v1/auth/google/token", authHeaderFor(token), cookies)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d body = %s", rec.Code, rec.Body.String())
	}

	// Deleting when nothing is stored stays a no-op.
	rec = env.do(t, http.MethodDelete, "/v1/auth/google/token", "", "", authHeaderFor(token))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestGoogleTokenRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	cookies := seedDelegatedToken(t, env, "ya29.delegated")

	rec := env.doWithCookies(t, http.MethodGet, "/v1/auth/google/token", nil, cookies)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

// fakeIssuer is a local OIDC issuer: discovery, JWKS, and a token
// endpoint that signs whatever ID-token claims the test configures.
type fakeIssuer struct {
	srv    *httptest.Server
	key    *rsa.PrivateKey
	claims jwt.MapClaims
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	iss := &fakeIssuer{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 iss.srv.URL,
			"authorization_endpoint": iss.srv.URL + "/auth",
			"token_endpoint":         iss.srv.URL + "/token",
			"jwks_uri":               iss.srv.URL + "/keys",
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		pub := iss.key.Public().(*rsa.PublicKey)
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": "issuer-key",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, iss.claims)
		tok.Header["kid"] = "issuer-key"
		raw, err := tok.SignedString(iss.key)
		if err != nil {
			t.Errorf("sign id token: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "delegated-access-token",
			"token_type":   "bearer",
			"expires_in":   3600,
			"id_token":     raw,
		})
	})
	iss.srv = httptest.NewServer(mux)
	t.Cleanup(iss.srv.Close)

	iss.claims = jwt.MapClaims{
		"iss":            iss.srv.URL,
		"aud":            "test-client",
		"sub":            "google-user-1",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada Lovelace",
		"picture":        "https://example.com/ada.png",
	}
	return iss
}

func newGoogleEnv(t *testing.T, iss *fakeIssuer) *testEnv {
	t.Helper()
	google, err := oauth.NewGoogle(context.Background(), "test-client", "test-secret", iss.srv.URL, "http://localhost/callback")
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}
	return newTestEnvWith(t, google)
}

func TestGoogleSignInIssuesTokenAndStoresSession(t *testing.T) {
	iss := newFakeIssuer(t)
	env := newGoogleEnv(t, iss)

	rec := env.do(t, http.MethodPost, "/v1/auth/google", "application/json", `{"code": "good-code"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp googleSignInResponse
	if err := jsonDecode(rec, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.User.Email != "ada@example.com" || resp.User.Name != "Ada Lovelace" {
		t.Fatalf("user = %+v", resp.User)
	}

	// The issued token opens a scope-gated endpoint.
	me := env.do(t, http.MethodGet, "/v1/users/me", "", "", authHeaderFor(resp.AccessToken))
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d body = %s", me.Code, me.Body.String())
	}

	// The delegated provider token landed in the session cookie.
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("sign-in set no session cookie")
	}
	delegated := env.doWithCookies(t, http.MethodGet, "/v1/auth/google/token", authHeaderFor(resp.AccessToken), cookies)
	if delegated.Code != http.StatusOK {
		t.Fatalf("delegated token status = %d body = %s", delegated.Code, delegated.Body.String())
	}
	var tok map[string]string
	if err := jsonDecode(delegated, &tok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tok["access_token"] != "delegated-access-token" {
		t.Fatalf("delegated token = %v", tok)
	}
}

func TestGoogleSignInUnverifiedEmail(t *testing.T) {
	iss := newFakeIssuer(t)
	iss.claims["email_verified"] = false
	env := newGoogleEnv(t, iss)

	rec := env.do(t, http.MethodPost, "/v1/auth/google", "application/json", `{"code": "good-code"}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "access_token") {
		t.Fatalf("body leaks a token: %s", rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("rejected sign-in set a session cookie")
	}
	if _, err := env.users.FindByEmail(context.Background(), "ada@example.com"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("user was created despite rejection: err = %v", err)
	}
}

func TestGoogleSignInRejectedCode(t *testing.T) {
	iss := newFakeIssuer(t)
	env := newGoogleEnv(t, iss)

	rec := env.do(t, http.MethodPost, "/v1/auth/google", "application/json", `{"code": "bad-code"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("rejected sign-in set a session cookie")
	}
}

func TestGoogleSignInNotConfigured(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/google", "application/json", `{"code": "abc"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestCalendarNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	token := env.signupAndLogin(t, "ada@example.com", "correct horse")

	rec := env.do(t, http.MethodGet, "/v1/calendar/calendars", "", "", authHeaderFor(token))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}
