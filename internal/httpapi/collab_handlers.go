package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"peka.app/internal/calendar"
	"peka.app/internal/session"
	"peka.app/internal/todo"
)

func (a *API) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.deps.Assistant == nil {
		writeError(w, r, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	p, _ := principal(r)

	open := false
	items, err := a.deps.Todos.List(r.Context(), p.User.ID, todo.ListFilter{Completed: &open})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	rec, err := a.deps.Assistant.Recommend(r.Context(), items)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// delegatedToken fetches the provider token from the caller's session,
// answering 401 when the user has not signed in with the provider.
func (a *API) delegatedToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	if a.deps.Sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "google sign-in is not configured")
		return "", false
	}
	token, err := a.deps.Sessions.Get(r, providerGoogle)
	if err != nil {
		if errors.Is(err, session.ErrNoToken) {
			writeError(w, r, http.StatusUnauthorized, "no delegated token; sign in with google first")
			return "", false
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return "", false
	}
	return token, true
}

func (a *API) handleCalendars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.deps.Calendar == nil {
		writeError(w, r, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}
	token, ok := a.delegatedToken(w, r)
	if !ok {
		return
	}

	cals, err := a.deps.Calendar.ListCalendars(r.Context(), token)
	if err != nil {
		handleCalendarError(w, r, err)
		return
	}
	if cals == nil {
		cals = []calendar.Calendar{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": cals})
}

func (a *API) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	if a.deps.Calendar == nil {
		writeError(w, r, http.StatusServiceUnavailable, "calendar is not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listCalendarEvents(w, r)
	case http.MethodPost:
		a.createCalendarEvent(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listCalendarEvents(w http.ResponseWriter, r *http.Request) {
	token, ok := a.delegatedToken(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := calendar.EventQuery{From: time.Now().UTC()}
	if raw := q.Get("time_min"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "time_min must be RFC 3339")
			return
		}
		query.From = t
	}
	if raw := q.Get("time_max"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "time_max must be RFC 3339")
			return
		}
		query.To = t
	}
	if raw := q.Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 250 {
			writeError(w, r, http.StatusBadRequest, "max_results must be between 1 and 250")
			return
		}
		query.MaxResults = n
	}

	events, err := a.deps.Calendar.ListEvents(r.Context(), token, q.Get("calendar_id"), query)
	if err != nil {
		handleCalendarError(w, r, err)
		return
	}
	if events == nil {
		events = []calendar.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (a *API) createCalendarEvent(w http.ResponseWriter, r *http.Request) {
	token, ok := a.delegatedToken(w, r)
	if !ok {
		return
	}

	var req calendar.Event
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := a.deps.Calendar.CreateEvent(r.Context(), token, r.URL.Query().Get("calendar_id"), req)
	if err != nil {
		handleCalendarError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func handleCalendarError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, calendar.ErrUnauthorized) {
		writeError(w, r, http.StatusUnauthorized, "delegated token rejected; sign in with google again")
		return
	}
	handleDomainError(w, r, err)
}
