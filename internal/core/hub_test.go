package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHubBroadcastReachesAllMembersIncludingSender(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient("a", "alice")
	bob := newTestClient("b", "bob")
	carol := newTestClient("c", "carol")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	hub.RegisterClient(carol)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	carol.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-9"}
	waitForMembers(t, hub.Registry(), "conv-1", 2)
	waitForMembers(t, hub.Registry(), "conv-9", 1)

	before := time.Now().UTC()
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "conv-1", Content: "hello"}

	for name, c := range map[string]*Client{"alice": alice, "bob": bob} {
		ev := mustEvent(t, c.Events, EventNewMessage)
		msg := ev.Message
		if msg.Content != "hello" || msg.Room != "conv-1" {
			t.Fatalf("%s: unexpected message %+v", name, msg)
		}
		if msg.ID == "" {
			t.Fatalf("%s: message id not generated", name)
		}
		if msg.CreatedAt.Before(before) {
			t.Fatalf("%s: timestamp %v before send time %v", name, msg.CreatedAt, before)
		}
		if msg.Sender != SenderAgent {
			t.Fatalf("%s: expected agent sender, got %q", name, msg.Sender)
		}
	}

	mustNoEvent(t, carol.Events, 100*time.Millisecond)
}

func TestHubSendWithoutJoinIsDropped(t *testing.T) {
	hub := startHub(t)

	carol := newTestClient("c", "carol")
	dave := newTestClient("d", "dave")
	hub.RegisterClient(carol)
	hub.RegisterClient(dave)

	dave.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-2"}
	waitForMembers(t, hub.Registry(), "conv-2", 1)

	carol.Commands <- &Command{Kind: CommandSendMessage, Room: "conv-2", Content: "sneaky"}
	carol.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-2"}
	carol.Commands <- &Command{Kind: CommandSendMessage, Room: "conv-2", Content: "legit"}

	// Commands from one client are handled in order, so the first message
	// carol sees must be the one sent after joining.
	ev := mustEvent(t, carol.Events, EventNewMessage)
	if ev.Message.Content != "legit" {
		t.Fatalf("expected only the post-join message, got %q", ev.Message.Content)
	}
	ev = mustEvent(t, dave.Events, EventNewMessage)
	if ev.Message.Content != "legit" {
		t.Fatalf("dave received dropped message %q", ev.Message.Content)
	}
}

func TestHubTypingExcludesSender(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient("a", "alice")
	bob := newTestClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	waitForMembers(t, hub.Registry(), "conv-1", 2)

	alice.Commands <- &Command{Kind: CommandTyping, Room: "conv-1", IsTyping: true}

	ev := mustEvent(t, bob.Events, EventTyping)
	if ev.User != "alice" || !ev.IsTyping || ev.Room != "conv-1" {
		t.Fatalf("unexpected typing event: %+v", ev)
	}
	mustNoEvent(t, alice.Events, 100*time.Millisecond)
}

func TestHubSuggestionOnlyReachesRequester(t *testing.T) {
	hub := startHub(t, WithSuggester(&stubSuggester{
		suggestion: &Suggestion{ID: "s1", Message: "try turning it off and on", Confidence: 0.9},
	}))

	alice := newTestClient("a", "alice")
	bob := newTestClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	waitForMembers(t, hub.Registry(), "conv-1", 2)

	alice.Commands <- &Command{Kind: CommandRequestSuggestion, Room: "conv-1", Content: "my router is broken"}

	ev := mustEvent(t, alice.Events, EventSuggestion)
	if ev.Suggestion == nil || ev.Suggestion.ID != "s1" || ev.Room != "conv-1" {
		t.Fatalf("unexpected suggestion event: %+v", ev)
	}
	mustNoEvent(t, bob.Events, 100*time.Millisecond)
}

func TestHubSuggestionFailureReportsToRequester(t *testing.T) {
	hub := startHub(t, WithSuggester(&stubSuggester{err: errors.New("upstream down")}))

	alice := newTestClient("a", "alice")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandRequestSuggestion, Room: "conv-1", Content: "help"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUpstreamFailure {
		t.Fatalf("expected upstream_failure error, got %+v", ev)
	}
}

func TestHubSuggestionAfterDisconnectIsDiscarded(t *testing.T) {
	block := make(chan struct{})
	hub := startHub(t, WithSuggester(&stubSuggester{
		suggestion: &Suggestion{ID: "late"},
		block:      block,
	}))

	alice := newTestClient("a", "alice")
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandRequestSuggestion, Room: "conv-1", Content: "help"}

	// Give the hub time to start the request, then drop the client.
	time.Sleep(50 * time.Millisecond)
	hub.UnregisterClient(alice)
	close(block)

	select {
	case ev, ok := <-alice.Events:
		if ok {
			t.Fatalf("expected closed event stream, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event stream not closed after unregister")
	}
}

func TestHubDisconnectRevokesMemberships(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient("a", "alice")
	hub.RegisterClient(alice)
	for _, room := range []string{"r1", "r2"} {
		alice.Commands <- &Command{Kind: CommandJoinRoom, Room: room}
	}
	waitForMembers(t, hub.Registry(), "r1", 1)
	waitForMembers(t, hub.Registry(), "r2", 1)

	hub.UnregisterClient(alice)

	waitForMembers(t, hub.Registry(), "r1", 0)
	waitForMembers(t, hub.Registry(), "r2", 0)
	if hub.Registry().Rooms() != 0 {
		t.Fatalf("expected no rooms after disconnect")
	}
}

func TestHubPersistsRelayedMessages(t *testing.T) {
	persister := &recordingPersister{saved: make(chan Message, 1)}
	hub := startHub(t, WithPersister(persister))

	alice := newTestClient("a", "alice")
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "conv-1", Content: "saved"}

	broadcast := mustEvent(t, alice.Events, EventNewMessage)

	select {
	case msg := <-persister.saved:
		if msg.ID != broadcast.Message.ID || msg.Content != "saved" || msg.SenderID != "a" {
			t.Fatalf("unexpected persisted message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message was not persisted")
	}
}

func TestHubPublishBroadcastsToRoom(t *testing.T) {
	hub := startHub(t)

	bob := newTestClient("b", "bob")
	hub.RegisterClient(bob)
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "conv-1"}
	waitForMembers(t, hub.Registry(), "conv-1", 1)

	if err := hub.Publish(context.Background(), Message{ID: "m1", Room: "conv-1", Content: "from rest", Sender: SenderCustomer}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ev := mustEvent(t, bob.Events, EventNewMessage)
	if ev.Message.ID != "m1" || ev.Message.Sender != SenderCustomer {
		t.Fatalf("unexpected published message: %+v", ev.Message)
	}
}

func TestSenderFor(t *testing.T) {
	cases := map[string]SenderRole{
		"admin":    SenderAgent,
		"manager":  SenderAgent,
		"agent":    SenderAgent,
		"customer": SenderCustomer,
		"":         SenderAgent,
	}
	for role, want := range cases {
		if got := SenderFor(Identity{Role: role}); got != want {
			t.Errorf("role %q: expected %q, got %q", role, want, got)
		}
	}
}
