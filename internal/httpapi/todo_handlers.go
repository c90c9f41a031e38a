package httpapi

import (
	"net/http"
	"strings"

	"peka.app/internal/audit"
	"peka.app/internal/stream"
	"peka.app/internal/todo"
)

func (a *API) handleTodosCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTodos(w, r)
	case http.MethodPost:
		a.createTodo(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTodoResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/todos/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/complete") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/complete"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.completeTodo(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getTodo(w, r, path)
	case http.MethodPatch:
		a.updateTodo(w, r, path)
	case http.MethodDelete:
		a.deleteTodo(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listTodos(w http.ResponseWriter, r *http.Request) {
	p, _ := principal(r)

	var filter todo.ListFilter
	switch r.URL.Query().Get("completed") {
	case "":
	case "true":
		v := true
		filter.Completed = &v
	case "false":
		v := false
		filter.Completed = &v
	default:
		writeError(w, r, http.StatusBadRequest, "completed must be true or false")
		return
	}

	items, err := a.deps.Todos.List(r.Context(), p.User.ID, filter)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*todo.Todo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createTodo(w http.ResponseWriter, r *http.Request) {
	p, _ := principal(r)

	var req todo.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := a.deps.Todos.Create(r.Context(), p.User.ID, req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.publish(stream.Event{
		Kind:     stream.KindTodoCreated,
		UserID:   p.User.ID,
		EntityID: created.ID,
		Title:    created.Title,
	})
	_ = audit.LogEvent(r.Context(), "todo.create", map[string]any{"todo_id": created.ID})

	w.Header().Set("Location", "/v1/todos/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) getTodo(w http.ResponseWriter, r *http.Request, id string) {
	p, _ := principal(r)
	item, err := a.deps.Todos.Get(r.Context(), p.User.ID, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) updateTodo(w http.ResponseWriter, r *http.Request, id string) {
	p, _ := principal(r)

	var req todo.UpdateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := a.deps.Todos.Update(r.Context(), p.User.ID, id, req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.publish(stream.Event{
		Kind:     stream.KindTodoUpdated,
		UserID:   p.User.ID,
		EntityID: updated.ID,
		Title:    updated.Title,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) completeTodo(w http.ResponseWriter, r *http.Request, id string) {
	p, _ := principal(r)

	completed, err := a.deps.Todos.Complete(r.Context(), p.User.ID, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.publish(stream.Event{
		Kind:     stream.KindTodoCompleted,
		UserID:   p.User.ID,
		EntityID: completed.ID,
		Title:    completed.Title,
	})
	_ = audit.LogEvent(r.Context(), "todo.complete", map[string]any{"todo_id": completed.ID})
	writeJSON(w, http.StatusOK, completed)
}

func (a *API) deleteTodo(w http.ResponseWriter, r *http.Request, id string) {
	p, _ := principal(r)

	if err := a.deps.Todos.Delete(r.Context(), p.User.ID, id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.publish(stream.Event{
		Kind:     stream.KindTodoDeleted,
		UserID:   p.User.ID,
		EntityID: id,
	})
	_ = audit.LogEvent(r.Context(), "todo.delete", map[string]any{"todo_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) publish(evt stream.Event) {
	if a.deps.Stream != nil {
		a.deps.Stream.Publish(evt)
	}
}
