package core

import (
	"context"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent fails if anything arrives on ch within wait.
func mustNoEvent(t *testing.T, ch <-chan *Event, wait time.Duration) {
	t.Helper()

	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(wait):
	}
}

func waitForMembers(t *testing.T, reg *Registry, room string, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reg.Count(room) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %q: expected %d members, have %d", room, n, reg.Count(room))
}

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(opts...)
	go hub.Run(ctx)
	return hub
}

func newTestClient(id, name string) *Client {
	return NewClient(id, Identity{Subject: id, Email: name + "@example.com", Name: name, Role: "agent"}, 8)
}

type stubSuggester struct {
	suggestion *Suggestion
	err        error
	block      chan struct{}
}

func (s *stubSuggester) Suggest(ctx context.Context, _ SuggestionRequest) (*Suggestion, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.suggestion, s.err
}

type recordingPersister struct {
	saved chan Message
}

func (p *recordingPersister) PersistMessage(_ context.Context, msg Message) error {
	p.saved <- msg
	return nil
}
