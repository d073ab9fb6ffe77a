package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

func TestAISuggest(t *testing.T) {
	env := newTestEnv(t, okSuggester())
	token := env.register(t, "agent@example.com", "Agent", store.RoleAgent)

	resp := env.do(t, http.MethodPost, "/api/ai/suggest", token, SuggestRequest{
		ConversationID: "conv-1",
		Messages: []SuggestMessage{
			{Sender: "customer", Content: "hi", Timestamp: "2024-01-01T10:00:00Z"},
			{Sender: "customer", Content: "my internet is down"},
		},
	})
	expectStatus(t, resp, http.StatusOK)

	var out SuggestResponse
	decodeBody(t, resp, &out)
	if out.Suggestion != "Try restarting the router." || out.Confidence != 0.8 {
		t.Fatalf("unexpected suggestion: %+v", out)
	}

	resp = env.do(t, http.MethodPost, "/api/ai/suggest", token, map[string]any{"messages": []any{}})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestAISuggestUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, stubSuggester{err: errors.New("upstream down")})
	token := env.register(t, "agent@example.com", "Agent", store.RoleAgent)

	resp := env.do(t, http.MethodPost, "/api/ai/suggest", token, SuggestRequest{ConversationID: "conv-1"})
	expectStatus(t, resp, http.StatusBadGateway)
}
