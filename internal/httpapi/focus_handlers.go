package httpapi

import (
	"net/http"
	"strings"

	"peka.app/internal/audit"
	"peka.app/internal/focus"
	"peka.app/internal/stream"
)

func (a *API) handleFocusCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listFocusSessions(w, r)
	case http.MethodPost:
		a.startFocusSession(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleFocusResource serves GET /v1/focus/sessions/{id} and
// PUT /v1/focus/sessions/{id}, which ends the session.
func (a *API) handleFocusResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/focus/sessions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getFocusSession(w, r, id)
	case http.MethodPut:
		a.endFocusSession(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) listFocusSessions(w http.ResponseWriter, r *http.Request) {
	p, _ := principal(r)
	sessions, err := a.deps.Focus.List(r.Context(), p.User.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*focus.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sessions})
}

func (a *API) startFocusSession(w http.ResponseWriter, r *http.Request) {
	p, _ := principal(r)

	var req focus.StartInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := a.deps.Focus.Start(r.Context(), p.User.ID, req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.publish(stream.Event{
		Kind:     stream.KindFocusStarted,
		UserID:   p.User.ID,
		EntityID: sess.ID,
	})
	_ = audit.LogEvent(r.Context(), "focus.start", map[string]any{"session_id": sess.ID})

	w.Header().Set("Location", "/v1/focus/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) getFocusSession(w http.ResponseWriter, r *http.Request, id string) {
	p, _ := principal(r)
	sess, err := a.deps.Focus.Get(r.Context(), p.User.ID, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) endFocusSession(w http.ResponseWriter, r *http.Request, id string) {
	p, _ := principal(r)

	sess, err := a.deps.Focus.End(r.Context(), p.User.ID, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.publish(stream.Event{
		Kind:     stream.KindFocusEnded,
		UserID:   p.User.ID,
		EntityID: sess.ID,
	})
	_ = audit.LogEvent(r.Context(), "focus.end", map[string]any{
		"session_id":     sess.ID,
		"actual_seconds": sess.ActualSeconds,
	})
	writeJSON(w, http.StatusOK, sess)
}
