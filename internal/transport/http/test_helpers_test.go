package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/proto"
	"github.com/vovakirdan/supportchat-server/internal/store"
	"github.com/vovakirdan/supportchat-server/internal/store/sqlite"
)

const testSecret = "test-secret"

type testEnv struct {
	ts    *httptest.Server
	store store.Store
	auth  *auth.Service
	hub   *core.Hub
	jwt   *auth.JWTConfig
}

type testOption func(*config.Config)

func withEventsPerMinute(n int) testOption {
	return func(cfg *config.Config) { cfg.MaxEventsPerMinute = n }
}

// stubSuggester answers every request with the same suggestion or error.
type stubSuggester struct {
	suggestion *core.Suggestion
	err        error
}

func (s stubSuggester) Suggest(_ context.Context, _ core.SuggestionRequest) (*core.Suggestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.suggestion
	return &cp, nil
}

func okSuggester() stubSuggester {
	return stubSuggester{suggestion: &core.Suggestion{
		ID:         "sugg-1",
		Message:    "Try restarting the router.",
		Confidence: 0.8,
		Sources:    []core.SuggestionSource{{FAQID: "faq-1", Question: "Internet down?", Relevance: 0.9}},
	}}
}

func newTestEnv(t *testing.T, suggester core.Suggester, opts ...testOption) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(testSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	disabledLogger := zerolog.New(nil)
	hub := core.NewHub(core.WithSuggester(suggester), core.WithLogger(&disabledLogger))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxMessageBytes:   1 << 20,
		ClientBuffer:      32,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	server := NewServer(hub, authService, st, suggester, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, auth: authService, hub: hub, jwt: jwtConfig}
}

// register creates a staff account and returns its token.
func (e *testEnv) register(t *testing.T, email, name string, role store.Role) string {
	t.Helper()

	_, token, err := e.auth.Register(context.Background(), email, "password123", name, role)
	if err != nil {
		t.Fatalf("failed to register %s: %v", email, err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()

	if resp.StatusCode != want {
		var body bytes.Buffer
		_, _ = body.ReadFrom(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s",
			resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body.String())
	}
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

func (e *testEnv) dial(ctx context.Context, t *testing.T, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func (e *testEnv) waitForMembers(t *testing.T, room string, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.hub.Registry().Count(room) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %q: expected %d members, have %d", room, n, e.hub.Registry().Count(room))
}

// wireEvent is an outbound envelope with the payload left raw.
type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()

	var ev wireEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func readMessage(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.ChatMessage {
	t.Helper()

	ev := readEvent(ctx, t, conn)
	if ev.Event != proto.OutboundNewMessage {
		t.Fatalf("expected %s, got %s (error=%+v)", proto.OutboundNewMessage, ev.Event, ev.Error)
	}
	var msg proto.ChatMessage
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

func readError(ctx context.Context, t *testing.T, conn *websocket.Conn) *proto.Error {
	t.Helper()

	ev := readEvent(ctx, t, conn)
	if ev.Event != proto.OutboundError || ev.Error == nil {
		t.Fatalf("expected error event, got %s", ev.Event)
	}
	return ev.Error
}
