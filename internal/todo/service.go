package todo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store persists todos. Every operation is scoped to the owning user;
// an id belonging to another user behaves as if it does not exist.
type Store interface {
	Create(ctx context.Context, t *Todo) error
	Get(ctx context.Context, userID, id string) (*Todo, error)
	List(ctx context.Context, userID string, f ListFilter) ([]*Todo, error)
	Update(ctx context.Context, t *Todo) error
	Delete(ctx context.Context, userID, id string) error
}

// ListFilter narrows List results. Nil fields mean no constraint.
type ListFilter struct {
	Completed *bool
}

// CreateInput carries the caller-supplied fields of a new todo.
type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueAt       *time.Time `json:"due_at"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *Priority  `json:"priority"`
	Completed   *bool      `json:"completed"`
	DueAt       *time.Time `json:"due_at"`
}

type Service struct {
	store Store
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Todo, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxTitleLen)
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, maxDescriptionLen)
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	now := s.now().UTC()
	t := &Todo{
		UserID:      userID,
		Title:       title,
		Description: in.Description,
		Priority:    priority,
		DueAt:       in.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Todo, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.store.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]*Todo, error) {
	return s.store.List(ctx, userID, f)
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*Todo, error) {
	t, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		if len(title) > maxTitleLen {
			return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxTitleLen)
		}
		t.Title = title
	}
	if in.Description != nil {
		if len(*in.Description) > maxDescriptionLen {
			return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, maxDescriptionLen)
		}
		t.Description = *in.Description
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *in.Priority)
		}
		t.Priority = *in.Priority
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.DueAt != nil {
		t.DueAt = in.DueAt
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return t, nil
}

// Complete marks a todo done. Completing an already-completed todo is
// a no-op that returns the current state.
func (s *Service) Complete(ctx context.Context, userID, id string) (*Todo, error) {
	t, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Completed {
		return t, nil
	}
	t.Completed = true
	t.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("complete todo: %w", err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.store.Delete(ctx, userID, id)
}
