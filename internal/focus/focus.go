// Package focus tracks timed work sessions, optionally linked to a
// todo item.
package focus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("focus session not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyEnded is returned when ending a session twice.
	ErrAlreadyEnded = errors.New("focus session already ended")
)

// Bounds on the planned duration of a session.
const (
	minPlannedSeconds = 60
	maxPlannedSeconds = 4 * 60 * 60
)

type Session struct {
	ID             string     `json:"id"`
	UserID         string     `json:"-"`
	TodoID         *string    `json:"todo_id,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	PlannedSeconds int        `json:"planned_seconds"`
	ActualSeconds  int        `json:"actual_seconds"`
}

// Active reports whether the session is still running.
func (s *Session) Active() bool { return s.EndedAt == nil }

// Store persists focus sessions, scoped to the owning user.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, userID, id string) (*Session, error)
	List(ctx context.Context, userID string) ([]*Session, error)
	Update(ctx context.Context, s *Session) error
}

// StartInput carries the caller-supplied fields of a new session.
type StartInput struct {
	TodoID         *string `json:"todo_id"`
	PlannedSeconds int     `json:"planned_seconds"`
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

func (s *Service) Start(ctx context.Context, userID string, in StartInput) (*Session, error) {
	if in.PlannedSeconds < minPlannedSeconds || in.PlannedSeconds > maxPlannedSeconds {
		return nil, fmt.Errorf("%w: planned_seconds must be between %d and %d", ErrInvalidInput, minPlannedSeconds, maxPlannedSeconds)
	}
	if in.TodoID != nil && *in.TodoID == "" {
		return nil, fmt.Errorf("%w: todo_id must not be empty when set", ErrInvalidInput)
	}
	sess := &Session{
		UserID:         userID,
		TodoID:         in.TodoID,
		StartedAt:      s.now().UTC(),
		PlannedSeconds: in.PlannedSeconds,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("start focus session: %w", err)
	}
	return sess, nil
}

// End stops a running session and records the elapsed time.
func (s *Service) End(ctx context.Context, userID, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, ErrAlreadyEnded
	}
	now := s.now().UTC()
	sess.EndedAt = &now
	sess.ActualSeconds = int(now.Sub(sess.StartedAt) / time.Second)
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("end focus session: %w", err)
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.store.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]*Session, error) {
	return s.store.List(ctx, userID)
}
