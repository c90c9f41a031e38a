// Package stream fan-outs activity events to connected clients. A web
// frontend subscribes over SSE to refresh the user's board live.
package stream

import (
	"context"
	"sync"
	"time"
)

// Kinds of activity events emitted by the todo and focus handlers.
const (
	KindTodoCreated   = "todo.created"
	KindTodoUpdated   = "todo.updated"
	KindTodoCompleted = "todo.completed"
	KindTodoDeleted   = "todo.deleted"
	KindFocusStarted  = "focus.started"
	KindFocusEnded    = "focus.ended"
)

// Event is one unit of user activity pushed to subscribers.
type Event struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id"`
	EntityID  string    `json:"entity_id"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type subscriber struct {
	ch     chan Event
	userID string
}

// Stream fan-outs activity events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
	now  func() time.Time
}

func New() *Stream {
	return &Stream{
		subs: make(map[int]subscriber),
		now:  time.Now,
	}
}

// Subscribe registers a subscriber for the given user's events and
// returns a channel which will receive them. The channel is closed when
// the provided context ends.
func (s *Stream) Subscribe(ctx context.Context, userID string) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{ch: ch, userID: userID}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to the owning user's subscribers.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.userID != evt.UserID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
