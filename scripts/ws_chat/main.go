package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/supportchat-server/internal/proto"
)

// ws_chat is an interactive agent console: plain lines are sent as messages,
// "/suggest <text>" asks for a suggestion, "/typing" toggles the typing flag.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	token := flag.String("token", os.Getenv("SUPPORTCHAT_TOKEN"), "bearer token")
	conversation := flag.String("conversation", "", "conversation id to join")
	flag.Parse()

	if *token == "" || *conversation == "" {
		return errors.New("both -token and -conversation are required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + *token}},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundJoinConversation, proto.ConversationData{ConversationID: *conversation}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s in conversation %s\n", *addr, *conversation)
	fmt.Println("Type messages and press Enter to send. /suggest <text>, /typing. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *conversation)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch outbound.Event {
		case proto.OutboundNewMessage:
			var msg proto.ChatMessage
			if err := json.Unmarshal(outbound.Data, &msg); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", msg.ConversationID, msg.Sender, msg.Content)
		case proto.OutboundTyping:
			var evt proto.TypingEvent
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal typing: %v", err)
				continue
			}
			if evt.IsTyping {
				fmt.Printf("[%s] %s is typing...\n", evt.ConversationID, evt.User)
			}
		case proto.OutboundSuggestion:
			var evt proto.SuggestionEvent
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal suggestion: %v", err)
				continue
			}
			fmt.Printf("[suggestion %.0f%%] %s\n", evt.Suggestion.Confidence*100, evt.Suggestion.Message)
		case proto.OutboundError:
			if outbound.Error != nil {
				fmt.Printf("error %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			}
		default:
			fmt.Printf("event=%s data=%s\n", outbound.Event, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, conversation string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	typing := false
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			switch {
			case text == "/typing":
				typing = !typing
				err = send(ctx, conn, proto.InboundTyping, proto.TypingData{ConversationID: conversation, IsTyping: typing})
			case strings.HasPrefix(text, "/suggest "):
				err = send(ctx, conn, proto.InboundRequestSuggestion, proto.SuggestionRequestData{
					ConversationID: conversation,
					UserMessage:    strings.TrimSpace(strings.TrimPrefix(text, "/suggest ")),
				})
			default:
				err = send(ctx, conn, proto.InboundSendMessage, proto.SendMessageData{ConversationID: conversation, Content: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
