package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"peka.app/internal/assistant"
	"peka.app/internal/auth"
	"peka.app/internal/calendar"
	"peka.app/internal/focus"
	"peka.app/internal/onboarding"
	"peka.app/internal/todo"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps sentinel errors from any domain package onto
// status codes. Unknown errors never leak details to the client.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, todo.ErrInvalidInput),
		errors.Is(err, focus.ErrInvalidInput),
		errors.Is(err, onboarding.ErrInvalidInput),
		errors.Is(err, calendar.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, todo.ErrNotFound),
		errors.Is(err, focus.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "resource already exists")
	case errors.Is(err, focus.ErrAlreadyEnded):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, assistant.ErrNoOpenTodos):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, assistant.ErrUpstream), errors.Is(err, calendar.ErrUpstream):
		writeError(w, r, http.StatusBadGateway, "upstream service failed")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
