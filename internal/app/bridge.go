package app

import (
	"context"
	"fmt"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// relayStore adapts the message store to the relay's persistence and
// suggestion-history hooks.
type relayStore struct {
	messages      store.MessageStore
	conversations store.ConversationStore
}

func newRelayStore(st store.Store) *relayStore {
	return &relayStore{messages: st, conversations: st}
}

// PersistMessage implements core.Persister.
func (r *relayStore) PersistMessage(ctx context.Context, msg core.Message) error {
	record := &store.Message{
		ID:             msg.ID,
		ConversationID: msg.Room,
		Content:        msg.Content,
		Sender:         store.Sender(msg.Sender),
		Timestamp:      msg.CreatedAt,
	}
	if msg.Sender == core.SenderAgent && msg.SenderID != "" {
		agentID := msg.SenderID
		record.AgentID = &agentID
	}
	if err := r.messages.SaveMessage(ctx, record); err != nil {
		return fmt.Errorf("save relayed message: %w", err)
	}
	return r.conversations.TouchConversation(ctx, msg.Room, msg.CreatedAt)
}

// RecentHistory implements suggest.HistorySource.
func (r *relayStore) RecentHistory(ctx context.Context, conversationID string, limit int) ([]core.HistoryEntry, error) {
	messages, err := r.messages.RecentMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	history := make([]core.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		history = append(history, core.HistoryEntry{
			Sender:    string(m.Sender),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return history, nil
}
