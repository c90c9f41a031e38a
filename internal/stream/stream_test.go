package stream

import (
	"context"
	"testing"
	"time"
)

func recvOne(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishReachesOwnSubscriber(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx, "user-1")
	s.Publish(Event{Kind: KindTodoCreated, UserID: "user-1", EntityID: "t1", Title: "ship"})

	evt := recvOne(t, ch)
	if evt.Kind != KindTodoCreated || evt.EntityID != "t1" {
		t.Fatalf("event = %+v", evt)
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("timestamp not stamped")
	}
}

func TestPublishScopedToUser(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine := s.Subscribe(ctx, "user-1")
	theirs := s.Subscribe(ctx, "user-2")

	s.Publish(Event{Kind: KindFocusStarted, UserID: "user-1", EntityID: "fs1"})

	recvOne(t, mine)
	select {
	case evt := <-theirs:
		t.Fatalf("foreign subscriber received %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeClosesOnContextEnd(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx, "user-1")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after unsubscribe must not panic.
	s.Publish(Event{Kind: KindTodoDeleted, UserID: "user-1", EntityID: "t1"})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Subscribe(ctx, "user-1") // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(Event{Kind: KindTodoUpdated, UserID: "user-1", EntityID: "t1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing blocked on slow subscriber")
	}
}
