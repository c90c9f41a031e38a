package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *TokenStore {
	t.Helper()
	store, err := NewTokenStore("test-session-secret", 3600)
	require.NoError(t, err)
	return store
}

// carry copies the cookies set by a response onto a fresh request, the
// way a browser would between calls.
func carry(t *testing.T, rec *httptest.ResponseRecorder, method, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestTokenRoundTrip(t *testing.T) {
	store := newStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", nil)
	require.NoError(t, store.Put(rec, req, "google", "ya29.delegated"))

	next := carry(t, rec, http.MethodGet, "/v1/auth/google/token")
	token, err := store.Get(next, "google")
	require.NoError(t, err)
	assert.Equal(t, "ya29.delegated", token)
}

func TestGetMissingProvider(t *testing.T) {
	store := newStore(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/google/token", nil)
	_, err := store.Get(req, "google")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestPutReplacesToken(t *testing.T) {
	store := newStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", nil)
	require.NoError(t, store.Put(rec, req, "google", "first"))

	second := carry(t, rec, http.MethodPost, "/v1/auth/google")
	rec2 := httptest.NewRecorder()
	require.NoError(t, store.Put(rec2, second, "google", "second"))

	next := carry(t, rec2, http.MethodGet, "/v1/auth/google/token")
	token, err := store.Get(next, "google")
	require.NoError(t, err)
	assert.Equal(t, "second", token)
}

func TestRemoveToken(t *testing.T) {
	store := newStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", nil)
	require.NoError(t, store.Put(rec, req, "google", "tok"))

	del := carry(t, rec, http.MethodDelete, "/v1/auth/google/token")
	rec2 := httptest.NewRecorder()
	require.NoError(t, store.Remove(rec2, del, "google"))

	next := carry(t, rec2, http.MethodGet, "/v1/auth/google/token")
	_, err := store.Get(next, "google")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRemoveMissingIsNoOp(t *testing.T) {
	store := newStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/auth/google/token", nil)
	assert.NoError(t, store.Remove(rec, req, "google"))
}

func TestProvidersAreIndependent(t *testing.T) {
	store := newStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", nil)
	require.NoError(t, store.Put(rec, req, "google", "g-token"))

	second := carry(t, rec, http.MethodPost, "/v1/auth/github")
	rec2 := httptest.NewRecorder()
	require.NoError(t, store.Put(rec2, second, "github", "gh-token"))

	next := carry(t, rec2, http.MethodGet, "/v1/auth/google/token")
	g, err := store.Get(next, "google")
	require.NoError(t, err)
	assert.Equal(t, "g-token", g)
	gh, err := store.Get(next, "github")
	require.NoError(t, err)
	assert.Equal(t, "gh-token", gh)
}

func TestCookieAttributes(t *testing.T) {
	store := newStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", nil)
	require.NoError(t, store.Put(rec, req, "google", "tok"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "peka_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}
