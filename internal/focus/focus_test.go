package focus

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type memStore struct {
	sessions map[string]*Session
	next     int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*Session{}}
}

func (m *memStore) Create(_ context.Context, s *Session) error {
	m.next++
	s.ID = fmt.Sprintf("fs-%d", m.next)
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, userID, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) List(_ context.Context, userID string) ([]*Session, error) {
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, s *Session) error {
	cur, ok := m.sessions[s.ID]
	if !ok || cur.UserID != s.UserID {
		return ErrNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func TestStartAndEnd(t *testing.T) {
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	clock := start
	svc := NewService(newMemStore(), WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	todoID := "t1"
	sess, err := svc.Start(ctx, "user-1", StartInput{TodoID: &todoID, PlannedSeconds: 1500})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sess.Active() {
		t.Fatal("new session not active")
	}
	if sess.TodoID == nil || *sess.TodoID != "t1" {
		t.Fatalf("todo id = %v", sess.TodoID)
	}

	clock = start.Add(23 * time.Minute)
	ended, err := svc.End(ctx, "user-1", sess.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Active() {
		t.Fatal("ended session still active")
	}
	if ended.ActualSeconds != 23*60 {
		t.Fatalf("actual seconds = %d", ended.ActualSeconds)
	}
	if !ended.EndedAt.Equal(clock) {
		t.Fatalf("ended at = %v", ended.EndedAt)
	}
}

func TestStartValidation(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	empty := ""
	cases := []struct {
		name string
		in   StartInput
	}{
		{"too short", StartInput{PlannedSeconds: 30}},
		{"too long", StartInput{PlannedSeconds: 5 * 60 * 60}},
		{"zero", StartInput{}},
		{"empty todo id", StartInput{PlannedSeconds: 1500, TodoID: &empty}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Start(ctx, "user-1", tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestEndTwice(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	sess, err := svc.Start(ctx, "user-1", StartInput{PlannedSeconds: 1500})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.End(ctx, "user-1", sess.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := svc.End(ctx, "user-1", sess.ID); !errors.Is(err, ErrAlreadyEnded) {
		t.Fatalf("err = %v, want ErrAlreadyEnded", err)
	}
}

func TestEndForeignSession(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	sess, err := svc.Start(ctx, "user-1", StartInput{PlannedSeconds: 1500})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.End(ctx, "user-2", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
