package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/supportchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	api := flag.String("api", "http://localhost:3000", "REST base URL used to log in")
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	token := flag.String("token", "", "bearer token (skips login)")
	email := flag.String("email", "agent@example.com", "login email")
	password := flag.String("password", "password123", "login password")
	conversation := flag.String("conversation", "conv-smoke", "conversation id to join")
	text := flag.String("text", "hello from smoke test", "message content to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *token == "" {
		t, err := login(ctx, *api, *email, *password)
		if err != nil {
			return err
		}
		*token = t
	}

	conn, _, err := websocket.Dial(ctx, *addr, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + *token}},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(event string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", event, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", event, err)
		}
		return nil
	}

	if err := send(proto.InboundJoinConversation, proto.ConversationData{ConversationID: *conversation}); err != nil {
		return err
	}
	if err := send(proto.InboundSendMessage, proto.SendMessageData{ConversationID: *conversation, Content: *text}); err != nil {
		return err
	}
	if err := send(proto.InboundRequestSuggestion, proto.SuggestionRequestData{ConversationID: *conversation, UserMessage: *text}); err != nil {
		return err
	}

	gotMessage, gotSuggestion := false, false
	for !gotMessage || !gotSuggestion {
		var outbound struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch outbound.Event {
		case proto.OutboundNewMessage:
			var msg proto.ChatMessage
			if err := json.Unmarshal(outbound.Data, &msg); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("new_message: conversation=%s sender=%s content=%q ts=%s\n", msg.ConversationID, msg.Sender, msg.Content, msg.Timestamp)
			gotMessage = true
		case proto.OutboundSuggestion:
			var evt proto.SuggestionEvent
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal suggestion: %w", err)
			}
			fmt.Printf("ai_suggestion: %q (confidence %.2f, %d sources)\n", evt.Suggestion.Message, evt.Suggestion.Confidence, len(evt.Suggestion.Sources))
			gotSuggestion = true
		case proto.OutboundError:
			if outbound.Error != nil {
				return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
			}
		default:
			fmt.Printf("event=%s data=%s\n", outbound.Event, outbound.Data)
		}
	}
	return nil
}

func login(ctx context.Context, api, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return out.Token, nil
}
