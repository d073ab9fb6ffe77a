package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/store"
	"github.com/vovakirdan/supportchat-server/internal/store/sqlite"
	"github.com/vovakirdan/supportchat-server/internal/suggest"
)

func TestRelayStorePersistsAndServesHistory(t *testing.T) {
	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	customer := &store.Customer{ID: "cust-1", Name: "Neo", Email: "neo@example.com"}
	if err := st.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	conv := &store.Conversation{ID: "conv-1", CustomerID: customer.ID}
	if err := st.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	relay := newRelayStore(st)
	base := time.Now().UTC().Add(time.Minute)
	msgs := []core.Message{
		{ID: "m1", Room: "conv-1", Content: "hi", Sender: core.SenderCustomer, SenderID: "cust", CreatedAt: base},
		{ID: "m2", Room: "conv-1", Content: "hello", Sender: core.SenderAgent, SenderID: "agent-7", CreatedAt: base.Add(time.Second)},
	}
	for _, m := range msgs {
		if err := relay.PersistMessage(ctx, m); err != nil {
			t.Fatalf("persist %s: %v", m.ID, err)
		}
	}

	stored, err := st.ListMessages(ctx, "conv-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(stored))
	}
	if stored[0].AgentID != nil {
		t.Fatalf("customer message must not carry an agent id")
	}
	if stored[1].AgentID == nil || *stored[1].AgentID != "agent-7" {
		t.Fatalf("agent id not stored: %+v", stored[1])
	}

	updated, err := st.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if updated.UpdatedAt.Before(base) {
		t.Fatalf("conversation not bumped: %v", updated.UpdatedAt)
	}

	history, err := relay.RecentHistory(ctx, "conv-1", 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hello" || history[0].Sender != "agent" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestNewSuggesterSelection(t *testing.T) {
	logger := zerolog.New(nil)

	cfg := config.Default()
	s, rdb, err := newSuggester(&cfg, nil, &logger)
	if err != nil || rdb != nil {
		t.Fatalf("placeholder: err=%v rdb=%v", err, rdb)
	}
	if _, ok := s.(*suggest.Static); !ok {
		t.Fatalf("expected static suggester, got %T", s)
	}

	cfg.AIServiceURL = "http://127.0.0.1:1"
	s, _, err = newSuggester(&cfg, nil, &logger)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, ok := s.(*suggest.Client); !ok {
		t.Fatalf("expected http client suggester, got %T", s)
	}

	cfg.RedisURL = "redis://127.0.0.1:1/0"
	s, rdb, err = newSuggester(&cfg, nil, &logger)
	if err != nil {
		t.Fatalf("cached: %v", err)
	}
	defer rdb.Close()
	if _, ok := s.(*suggest.Cached); !ok {
		t.Fatalf("expected cached suggester, got %T", s)
	}

	cfg.RedisURL = "not a url"
	if _, _, err := newSuggester(&cfg, nil, &logger); err == nil {
		t.Fatalf("expected error for bad redis_url")
	}
}

func TestAppRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "app.db")
	cfg.ShutdownTimeout = time.Second
	logger := zerolog.New(nil)

	application, err := New(&cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("app did not stop after cancel")
	}
}

func TestMigrate(t *testing.T) {
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "migrate.db")
	logger := zerolog.New(nil)

	if err := Migrate(&cfg, &logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Applying twice is harmless.
	if err := Migrate(&cfg, &logger); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
