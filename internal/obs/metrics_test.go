package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                             "/",
		"/metrics":                     "/metrics",
		"/v1/todos":                    "/v1/todos",
		"/v1/todos/01J0ABC":            "/v1/todos/:id",
		"/v1/todos/01J0ABC/complete":   "/v1/todos/:id/complete",
		"/v1/todos/01J0ABC/extra":      "/v1/todos/01J0ABC/extra",
		"/v1/focus/sessions":           "/v1/focus/sessions",
		"/v1/focus/sessions/01J0DEF":   "/v1/focus/sessions/:id",
		"/v1/auth/token":               "/v1/auth/token",
		"/v1/calendar/events?max=10":   "/v1/calendar/events",
		"/v1/assistant/recommendations": "/v1/assistant/recommendations",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
