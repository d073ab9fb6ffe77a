package http

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/vovakirdan/supportchat-server/internal/proto"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

func createCustomer(t *testing.T, env *testEnv, token, name, email string) CustomerResponse {
	t.Helper()

	resp := env.do(t, http.MethodPost, "/api/customers", token, CreateCustomerRequest{Name: name, Email: email})
	expectStatus(t, resp, http.StatusCreated)
	var customer CustomerResponse
	decodeBody(t, resp, &customer)
	return customer
}

func createConversation(t *testing.T, env *testEnv, token, customerID string) ConversationResponse {
	t.Helper()

	resp := env.do(t, http.MethodPost, "/api/conversations", token, CreateConversationRequest{CustomerID: customerID})
	expectStatus(t, resp, http.StatusCreated)
	var conv ConversationResponse
	decodeBody(t, resp, &conv)
	return conv
}

func TestConversationLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "agent@example.com", "Agent Smith", store.RoleAgent)

	customer := createCustomer(t, env, token, "Neo", "neo@example.com")
	conv := createConversation(t, env, token, customer.ID)

	if conv.Status != "active" || conv.Sentiment != "neutral" {
		t.Fatalf("unexpected defaults: %+v", conv)
	}
	if conv.CustomerName != "Neo" || conv.AgentName == nil || *conv.AgentName != "Agent Smith" {
		t.Fatalf("names not resolved: %+v", conv)
	}

	path := fmt.Sprintf("/api/conversations/%s/messages", conv.ID)
	for i, content := range []string{"first", "second"} {
		resp := env.do(t, http.MethodPost, path, token, CreateMessageRequest{Content: content})
		expectStatus(t, resp, http.StatusCreated)
		var msg MessageResponse
		decodeBody(t, resp, &msg)
		if msg.Sender != "agent" || msg.AgentID == nil {
			t.Fatalf("message %d: expected agent sender, got %+v", i, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
	resp := env.do(t, http.MethodPost, path, token, CreateMessageRequest{Content: "from customer", Sender: "customer"})
	expectStatus(t, resp, http.StatusCreated)

	resp = env.do(t, http.MethodGet, path, token, nil)
	expectStatus(t, resp, http.StatusOK)
	var messages []MessageResponse
	decodeBody(t, resp, &messages)
	if len(messages) != 3 || messages[0].Content != "first" || messages[2].Sender != "customer" {
		t.Fatalf("unexpected messages: %+v", messages)
	}

	resp = env.do(t, http.MethodGet, "/api/conversations/"+conv.ID, token, nil)
	expectStatus(t, resp, http.StatusOK)
	var detail ConversationDetailResponse
	decodeBody(t, resp, &detail)
	if detail.ID != conv.ID || len(detail.Messages) != 3 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	resp = env.do(t, http.MethodGet, "/api/conversations", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var list []ConversationResponse
	decodeBody(t, resp, &list)
	if len(list) != 1 || list[0].LastMessage == nil || list[0].LastMessage.Content != "from customer" {
		t.Fatalf("unexpected list: %+v", list)
	}

	resp = env.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/status", token, UpdateStatusRequest{Status: "resolved"})
	expectStatus(t, resp, http.StatusOK)
	var updated ConversationResponse
	decodeBody(t, resp, &updated)
	if updated.Status != "resolved" || updated.ResolvedAt == nil {
		t.Fatalf("expected resolved with resolvedAt, got %+v", updated)
	}

	resp = env.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/status", token, UpdateStatusRequest{Status: "active"})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &updated)
	if updated.ResolvedAt != nil {
		t.Fatalf("reopening must clear resolvedAt, got %v", *updated.ResolvedAt)
	}
}

func TestConversationErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "agent@example.com", "Agent Smith", store.RoleAgent)

	resp := env.do(t, http.MethodGet, "/api/conversations/missing", token, nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = env.do(t, http.MethodPost, "/api/conversations", token, CreateConversationRequest{CustomerID: "missing"})
	expectStatus(t, resp, http.StatusNotFound)

	resp = env.do(t, http.MethodPost, "/api/conversations/missing/messages", token, CreateMessageRequest{Content: "hi"})
	expectStatus(t, resp, http.StatusNotFound)

	customer := createCustomer(t, env, token, "Neo", "neo@example.com")
	conv := createConversation(t, env, token, customer.ID)

	resp = env.do(t, http.MethodPatch, "/api/conversations/"+conv.ID+"/status", token, UpdateStatusRequest{Status: "archived"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", token, CreateMessageRequest{Content: "hi", Sender: "robot"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/api/customers", token, CreateCustomerRequest{Name: "Other Neo", Email: "neo@example.com"})
	expectStatus(t, resp, http.StatusConflict)
}

func TestCreateMessageRelaysToRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "agent@example.com", "Agent Smith", store.RoleAgent)
	customer := createCustomer(t, env, token, "Neo", "neo@example.com")
	conv := createConversation(t, env, token, customer.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(ctx, t, token)
	send(ctx, t, conn, proto.InboundJoinConversation, proto.ConversationData{ConversationID: conv.ID})
	env.waitForMembers(t, conv.ID, 1)

	resp := env.do(t, http.MethodGet, "/api/conversations/"+conv.ID+"/presence", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var presence PresenceResponse
	decodeBody(t, resp, &presence)
	if presence.Members != 1 || presence.ConversationID != conv.ID {
		t.Fatalf("unexpected presence: %+v", presence)
	}

	resp = env.do(t, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", token, CreateMessageRequest{Content: "posted over rest"})
	expectStatus(t, resp, http.StatusCreated)
	var created MessageResponse
	decodeBody(t, resp, &created)

	msg := readMessage(ctx, t, conn)
	if msg.ID != created.ID || msg.Content != "posted over rest" || msg.ConversationID != conv.ID {
		t.Fatalf("relayed %+v, created %+v", msg, created)
	}
}
