// Package onboarding stores the question/answer preferences a user
// submits during first-run setup. The answer set is saved wholesale:
// each save replaces whatever the user answered before.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	maxAnswers     = 50
	maxQuestionLen = 500
	maxAnswerLen   = 2000
)

// Answer is one onboarding question with the user's response.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Store persists the answer set per user. Get returns an empty set,
// not an error, for a user who never saved one.
type Store interface {
	Save(ctx context.Context, userID string, answers []Answer, updatedAt time.Time) error
	Get(ctx context.Context, userID string) ([]Answer, error)
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

// Save validates and stores the full answer set, replacing any previous
// one. An empty set is allowed and clears the stored answers.
func (s *Service) Save(ctx context.Context, userID string, answers []Answer) ([]Answer, error) {
	if len(answers) > maxAnswers {
		return nil, fmt.Errorf("%w: at most %d answers are allowed", ErrInvalidInput, maxAnswers)
	}
	cleaned := make([]Answer, 0, len(answers))
	for i, a := range answers {
		question := strings.TrimSpace(a.Question)
		if question == "" {
			return nil, fmt.Errorf("%w: answer %d has an empty question", ErrInvalidInput, i)
		}
		if len(question) > maxQuestionLen {
			return nil, fmt.Errorf("%w: question exceeds %d characters", ErrInvalidInput, maxQuestionLen)
		}
		if len(a.Answer) > maxAnswerLen {
			return nil, fmt.Errorf("%w: answer exceeds %d characters", ErrInvalidInput, maxAnswerLen)
		}
		cleaned = append(cleaned, Answer{Question: question, Answer: strings.TrimSpace(a.Answer)})
	}
	if err := s.store.Save(ctx, userID, cleaned, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return cleaned, nil
}

// Get returns the user's stored answers, or an empty set when nothing
// has been saved yet.
func (s *Service) Get(ctx context.Context, userID string) ([]Answer, error) {
	answers, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if answers == nil {
		answers = []Answer{}
	}
	return answers, nil
}
