package core

import (
	"context"
	"time"
)

// Suggestion is an AI-generated reply proposal for an agent.
type Suggestion struct {
	ID         string
	Message    string
	Confidence float64
	Sources    []SuggestionSource
}

// SuggestionSource cites a FAQ entry the suggestion was built from.
type SuggestionSource struct {
	FAQID     string
	Question  string
	Answer    string
	Relevance float64
}

// HistoryEntry is one prior message of a conversation handed to the suggester.
type HistoryEntry struct {
	Sender    string
	Content   string
	Timestamp time.Time
}

// SuggestionRequest describes what the suggester should answer.
type SuggestionRequest struct {
	ConversationID string
	UserMessage    string
	History        []HistoryEntry
	Requester      Identity
}

// Suggester produces reply suggestions, either canned or from an upstream service.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestionRequest) (*Suggestion, error)
}

// Persister stores relayed messages. The hub never waits on it.
type Persister interface {
	PersistMessage(ctx context.Context, msg Message) error
}

// ClampConfidence keeps a confidence score within [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
