package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"peka.app/internal/auth"
	"peka.app/internal/focus"
	"peka.app/internal/oauth"
	"peka.app/internal/onboarding"
	"peka.app/internal/session"
	"peka.app/internal/stream"
	"peka.app/internal/todo"
)

var errDBDown = errors.New("connection refused")

// memUsers is an in-memory auth.UserStore keyed by normalized email.
type memUsers struct {
	mu    sync.Mutex
	users map[string]auth.User
	next  int
	fail  error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]auth.User{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return auth.User{}, m.fail
	}
	u, ok := m.users[email]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.users[u.Email]; ok {
		return auth.ErrAlreadyExists
	}
	m.next++
	u.ID = fmt.Sprintf("user-%d", m.next)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.Email] = *u
	return nil
}

func (m *memUsers) UpsertOAuth(_ context.Context, email, name string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		u.Name = name
		m.users[email] = u
		return u, nil
	}
	m.next++
	u := auth.User{
		ID:        fmt.Sprintf("user-%d", m.next),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.users[email] = u
	return u, nil
}

func (m *memUsers) SetDisabled(_ context.Context, id string, disabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.users {
		if u.ID == id {
			u.Disabled = disabled
			m.users[email] = u
			return nil
		}
	}
	return auth.ErrNotFound
}

// memTodos is an in-memory todo.Store.
type memTodos struct {
	mu    sync.Mutex
	todos map[string]*todo.Todo
	next  int
}

func newMemTodos() *memTodos {
	return &memTodos{todos: map[string]*todo.Todo{}}
}

func (m *memTodos) Create(_ context.Context, t *todo.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	t.ID = fmt.Sprintf("todo-%d", m.next)
	cp := *t
	m.todos[t.ID] = &cp
	return nil
}

func (m *memTodos) Get(_ context.Context, userID, id string) (*todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok || t.UserID != userID {
		return nil, todo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTodos) List(_ context.Context, userID string, f todo.ListFilter) ([]*todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*todo.Todo
	for i := 1; i <= m.next; i++ {
		t, ok := m.todos[fmt.Sprintf("todo-%d", i)]
		if !ok || t.UserID != userID {
			continue
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTodos) Update(_ context.Context, t *todo.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.todos[t.ID]
	if !ok || cur.UserID != t.UserID {
		return todo.ErrNotFound
	}
	cp := *t
	m.todos[t.ID] = &cp
	return nil
}

func (m *memTodos) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok || t.UserID != userID {
		return todo.ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

// memFocus is an in-memory focus.Store.
type memFocus struct {
	mu       sync.Mutex
	sessions map[string]*focus.Session
	next     int
}

func newMemFocus() *memFocus {
	return &memFocus{sessions: map[string]*focus.Session{}}
}

func (m *memFocus) Create(_ context.Context, s *focus.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	s.ID = fmt.Sprintf("fs-%d", m.next)
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memFocus) Get(_ context.Context, userID, id string) (*focus.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, focus.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memFocus) List(_ context.Context, userID string) ([]*focus.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*focus.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memFocus) Update(_ context.Context, s *focus.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok || cur.UserID != s.UserID {
		return focus.ErrNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// memOnboarding is an in-memory onboarding.Store.
type memOnboarding struct {
	mu    sync.Mutex
	prefs map[string][]onboarding.Answer
}

func newMemOnboarding() *memOnboarding {
	return &memOnboarding{prefs: map[string][]onboarding.Answer{}}
}

func (m *memOnboarding) Save(_ context.Context, userID string, answers []onboarding.Answer, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]onboarding.Answer, len(answers))
	copy(cp, answers)
	m.prefs[userID] = cp
	return nil
}

func (m *memOnboarding) Get(_ context.Context, userID string) ([]onboarding.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	answers, ok := m.prefs[userID]
	if !ok {
		return nil, nil
	}
	cp := make([]onboarding.Answer, len(answers))
	copy(cp, answers)
	return cp, nil
}

type testEnv struct {
	api     *API
	handler http.Handler
	users   *memUsers
	codec   *auth.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith wires the API against in-memory stores, optionally
// with a real Google verifier pointed at a local issuer.
func newTestEnvWith(t *testing.T, google *oauth.Google) *testEnv {
	t.Helper()

	users := newMemUsers()
	codec, err := auth.NewCodec("test-signing-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	authn, err := auth.NewAuthenticator(users)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	resolver, err := auth.NewResolver(codec, users)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	sessions, err := session.NewTokenStore("test-session-secret", 3600)
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}

	api := New(Deps{
		Authenticator: authn,
		Resolver:      resolver,
		Codec:         codec,
		Users:         users,
		Todos:         todo.NewService(newMemTodos()),
		Focus:         focus.NewService(newMemFocus()),
		Onboarding:    onboarding.NewService(newMemOnboarding()),
		Google:        google,
		Sessions:      sessions,
		Stream:        stream.New(),
		Version:       "test",
		RateBurst:     1000,
		RatePerSec:    1000,
	})
	return &testEnv{
		api:     api,
		handler: api.Handler(),
		users:   users,
		codec:   codec,
	}
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signupAndLogin provisions a user and returns a bearer token with the
// given scopes.
func (e *testEnv) signupAndLogin(t *testing.T, email, password string, scopes ...string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/signup", "application/json",
		fmt.Sprintf(`{"email": %q, "name": "Test User", "password": %q}`, email, password), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body = %s", rec.Code, rec.Body.String())
	}

	form := "username=" + email + "&password=" + password
	if len(scopes) > 0 {
		form += "&scope=" + strings.Join(scopes, "+")
	}
	rec = e.do(t, http.MethodPost, "/v1/auth/token", "application/x-www-form-urlencoded", form, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("token status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := jsonDecode(rec, &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("token_type = %q", resp.TokenType)
	}
	return resp.AccessToken
}

func authHeaderFor(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func jsonDecode(rec *httptest.ResponseRecorder, dst any) error {
	return json.Unmarshal(rec.Body.Bytes(), dst)
}
