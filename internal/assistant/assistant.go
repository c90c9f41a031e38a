// Package assistant asks an upstream text-generation API to prioritize
// the user's open todos. The upstream answer is parsed strictly: a
// response that is not the expected JSON shape, or that references
// unknown todo ids, is an upstream failure and never reaches the client.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"peka.app/internal/todo"
)

var (
	// ErrUpstream covers transport failures, non-2xx responses, and
	// unparseable answers from the text-generation API.
	ErrUpstream = errors.New("assistant upstream failed")
	// ErrNoOpenTodos is returned when there is nothing to prioritize.
	ErrNoOpenTodos = errors.New("no open todos to prioritize")
)

const (
	defaultModel   = "command-r"
	defaultTimeout = 30 * time.Second
	maxPromptTodos = 50
)

// Recommendation is the assistant's ordering of the user's open todos.
type Recommendation struct {
	SortedIDs   []string `json:"sorted_ids"`
	TopTodoID   string   `json:"top_todo_id"`
	Explanation string   `json:"explanation"`
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

type Option func(*Client)

// WithModel overrides the upstream model name.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient substitutes the transport, for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("assistant: base url is required")
	}
	if apiKey == "" {
		return nil, errors.New("assistant: api key is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   defaultModel,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Recommend asks the upstream model to order the open todos by what
// the user should do first.
func (c *Client) Recommend(ctx context.Context, todos []*todo.Todo) (*Recommendation, error) {
	open := make([]*todo.Todo, 0, len(todos))
	for _, t := range todos {
		if !t.Completed {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return nil, ErrNoOpenTodos
	}
	if len(open) > maxPromptTodos {
		open = open[:maxPromptTodos]
	}

	payload := map[string]any{
		"model":       c.model,
		"temperature": 0.2,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildPrompt(open)},
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("assistant: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("assistant: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %s", ErrUpstream, resp.Status)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}
	rec, err := parseRecommendation(out.Choices[0].Message.Content, open)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

const systemPrompt = "You prioritize a user's todo list. Reply with a single JSON object " +
	`{"sorted_ids": [...], "top_todo_id": "...", "explanation": "..."} and nothing else. ` +
	"sorted_ids must contain every given todo id exactly once, most urgent first."

func buildPrompt(open []*todo.Todo) string {
	var b strings.Builder
	b.WriteString("Open todos:\n")
	for _, t := range open {
		fmt.Fprintf(&b, "- id=%s priority=%s title=%q", t.ID, t.Priority, t.Title)
		if t.DueAt != nil {
			fmt.Fprintf(&b, " due=%s", t.DueAt.UTC().Format(time.RFC3339))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// parseRecommendation decodes the model's answer and validates it
// against the todos that were actually sent.
func parseRecommendation(content string, open []*todo.Todo) (*Recommendation, error) {
	content = stripFences(content)

	var rec Recommendation
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: malformed answer: %v", ErrUpstream, err)
	}

	known := make(map[string]bool, len(open))
	for _, t := range open {
		known[t.ID] = true
	}
	if len(rec.SortedIDs) != len(open) {
		return nil, fmt.Errorf("%w: answer lists %d ids, want %d", ErrUpstream, len(rec.SortedIDs), len(open))
	}
	seen := make(map[string]bool, len(rec.SortedIDs))
	for _, id := range rec.SortedIDs {
		if !known[id] || seen[id] {
			return nil, fmt.Errorf("%w: answer references unknown or duplicate id %q", ErrUpstream, id)
		}
		seen[id] = true
	}
	if !known[rec.TopTodoID] {
		return nil, fmt.Errorf("%w: top_todo_id %q is not an open todo", ErrUpstream, rec.TopTodoID)
	}
	return &rec, nil
}

// stripFences tolerates answers wrapped in a markdown code block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
