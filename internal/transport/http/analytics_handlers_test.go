package http

import (
	"net/http"
	"testing"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

func TestAnalytics(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "manager@example.com", "Manager", store.RoleManager)

	resp := env.do(t, http.MethodGet, "/api/analytics/dashboard", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var empty DashboardResponse
	decodeBody(t, resp, &empty)
	if empty.TotalConversations != 0 || empty.ResolutionRate != 0 {
		t.Fatalf("expected zeroed dashboard, got %+v", empty)
	}

	customer := createCustomer(t, env, token, "Neo", "neo@example.com")
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, createConversation(t, env, token, customer.ID).ID)
	}
	resp = env.do(t, http.MethodPatch, "/api/conversations/"+ids[0]+"/status", token, UpdateStatusRequest{Status: "resolved"})
	expectStatus(t, resp, http.StatusOK)
	resp = env.do(t, http.MethodPatch, "/api/conversations/"+ids[1]+"/status", token, UpdateStatusRequest{Status: "escalated"})
	expectStatus(t, resp, http.StatusOK)

	resp = env.do(t, http.MethodPost, "/api/faq/upload", token, []FAQRequest{
		{Question: "a", Answer: "a", Category: "billing"},
		{Question: "b", Answer: "b", Category: "billing"},
		{Question: "c", Answer: "c", Category: "shipping"},
	})
	expectStatus(t, resp, http.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/analytics/dashboard", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var dash DashboardResponse
	decodeBody(t, resp, &dash)
	if dash.TotalConversations != 4 || dash.ActiveConversations != 2 || dash.ResolvedConversations != 1 || dash.EscalatedConversations != 1 {
		t.Fatalf("unexpected dashboard: %+v", dash)
	}
	if dash.ResolutionRate != 25 {
		t.Fatalf("expected resolution rate 25, got %v", dash.ResolutionRate)
	}

	resp = env.do(t, http.MethodGet, "/api/analytics/detailed", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var detailed DetailedResponse
	decodeBody(t, resp, &detailed)
	if detailed.SentimentDistribution.Neutral != 4 {
		t.Fatalf("unexpected sentiment distribution: %+v", detailed.SentimentDistribution)
	}
	if detailed.ConversationsByStatus["active"] != 2 || detailed.ConversationsByStatus["escalated"] != 1 {
		t.Fatalf("unexpected status breakdown: %+v", detailed.ConversationsByStatus)
	}
	if len(detailed.TopCategories) != 2 || detailed.TopCategories[0].Category != "billing" || detailed.TopCategories[0].Count != 2 {
		t.Fatalf("unexpected categories: %+v", detailed.TopCategories)
	}
}

func TestPercent(t *testing.T) {
	if got := percent(1, 3); got != 33.3 {
		t.Fatalf("expected 33.3, got %v", got)
	}
	if got := percent(5, 0); got != 0 {
		t.Fatalf("expected 0 for empty total, got %v", got)
	}
}
