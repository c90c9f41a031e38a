// Package session stores delegated third-party access tokens in a
// signed cookie session, keyed by provider name. The server never
// persists these tokens; they live only in the caller's cookie.
package session

import (
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

func init() {
	// Session values are gob-encoded behind an interface type.
	gob.Register(map[string]string{})
}

const (
	sessionName = "peka_session"
	tokensKey   = "tokens"
)

// ErrNoToken is returned when no token is stored for the provider.
var ErrNoToken = errors.New("session: no token stored for provider")

// TokenStore reads and writes per-provider delegated tokens in the
// request's cookie session.
type TokenStore struct {
	store *sessions.CookieStore
}

// NewTokenStore builds a cookie-backed token store. The secret signs
// and authenticates the session cookie; maxAgeSeconds bounds how long
// a stored token survives in the browser.
func NewTokenStore(secret string, maxAgeSeconds int) (*TokenStore, error) {
	if secret == "" {
		return nil, errors.New("session: secret must not be empty")
	}
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &TokenStore{store: cs}, nil
}

// Put stores the provider's token in the session cookie, replacing any
// previous token for the same provider.
func (s *TokenStore) Put(w http.ResponseWriter, r *http.Request, provider, token string) error {
	if provider == "" {
		return errors.New("session: provider must not be empty")
	}
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		// A cookie signed with a rotated secret fails validation; start
		// a fresh session instead of refusing the write.
		sess, _ = s.store.New(r, sessionName)
	}
	tokens := tokensFrom(sess)
	tokens[provider] = token
	sess.Values[tokensKey] = tokens
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Get returns the stored token for the provider, or ErrNoToken.
func (s *TokenStore) Get(r *http.Request, provider string) (string, error) {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return "", ErrNoToken
	}
	tokens := tokensFrom(sess)
	token, ok := tokens[provider]
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Remove drops the provider's token from the session. Removing a token
// that was never stored is a no-op.
func (s *TokenStore) Remove(w http.ResponseWriter, r *http.Request, provider string) error {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return nil
	}
	tokens := tokensFrom(sess)
	if _, ok := tokens[provider]; !ok {
		return nil
	}
	delete(tokens, provider)
	sess.Values[tokensKey] = tokens
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func tokensFrom(sess *sessions.Session) map[string]string {
	if raw, ok := sess.Values[tokensKey]; ok {
		if tokens, ok := raw.(map[string]string); ok {
			return tokens
		}
	}
	return map[string]string{}
}
