// Package httpapi is the HTTP surface of the service: routing,
// middleware, authentication at the boundary, and translation of
// domain errors into status codes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"peka.app/internal/assistant"
	"peka.app/internal/auth"
	"peka.app/internal/calendar"
	"peka.app/internal/focus"
	"peka.app/internal/oauth"
	"peka.app/internal/obs"
	"peka.app/internal/onboarding"
	"peka.app/internal/session"
	"peka.app/internal/stream"
	"peka.app/internal/todo"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries everything the HTTP layer is wired with. Optional
// collaborators (google, assistant, calendar) may be nil; their
// endpoints answer 503 until configured.
type Deps struct {
	Authenticator *auth.Authenticator
	Resolver      *auth.Resolver
	Codec         *auth.Codec
	Users         auth.UserStore

	Todos      *todo.Service
	Focus      *focus.Service
	Onboarding *onboarding.Service

	Google    *oauth.Google
	Sessions  *session.TokenStore
	Assistant *assistant.Client
	Calendar  *calendar.Client

	Stream *stream.Stream

	ReadyProbe  ReadyProbe
	Version     string
	CORSOrigins []string
	RateBurst   int
	RatePerSec  int
}

// API is the HTTP layer.
type API struct {
	mux  *http.ServeMux
	deps Deps
}

func New(deps Deps) *API {
	a := &API{
		mux:  http.NewServeMux(),
		deps: deps,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/v1/auth/token", a.handleToken)
	a.mux.HandleFunc("/v1/auth/google", a.handleGoogleSignIn)
	a.mux.Handle("/v1/auth/google/token", a.requireScopes(http.HandlerFunc(a.handleGoogleToken), auth.ScopeMe))

	// current user
	a.mux.Handle("/v1/users/me", a.requireScopes(http.HandlerFunc(a.handleMe), auth.ScopeMe))
	a.mux.Handle("/v1/users/me/items", a.requireScopes(http.HandlerFunc(a.handleMeItems), auth.ScopeItems))

	// todos
	a.mux.Handle("/v1/todos", a.requireScopes(http.HandlerFunc(a.handleTodosCollection)))
	a.mux.Handle("/v1/todos/", a.requireScopes(http.HandlerFunc(a.handleTodoResource)))

	// onboarding
	a.mux.Handle("/v1/onboarding/preferences", a.requireScopes(http.HandlerFunc(a.handleOnboardingPreferences)))

	// focus sessions
	a.mux.Handle("/v1/focus/sessions", a.requireScopes(http.HandlerFunc(a.handleFocusCollection)))
	a.mux.Handle("/v1/focus/sessions/", a.requireScopes(http.HandlerFunc(a.handleFocusResource)))

	// collaborators
	a.mux.Handle("/v1/assistant/recommendations", a.requireScopes(http.HandlerFunc(a.handleRecommendations)))
	a.mux.Handle("/v1/calendar/calendars", a.requireScopes(http.HandlerFunc(a.handleCalendars)))
	a.mux.Handle("/v1/calendar/events", a.requireScopes(http.HandlerFunc(a.handleCalendarEvents)))

	// live activity
	a.mux.Handle("/v1/stream", a.requireScopes(http.HandlerFunc(a.Stream)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the router.
func (a *API) Handler() http.Handler {
	burst, perSec := a.deps.RateBurst, a.deps.RatePerSec
	if burst <= 0 {
		burst = 20
	}
	if perSec <= 0 {
		perSec = 10
	}
	var h http.Handler = a.mux
	h = Logging(h)
	h = RateLimit(h, burst, perSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.deps.CORSOrigins)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "peka-api",
		"version": a.deps.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.ReadyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "peka-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.deps.Version,
	})
}
