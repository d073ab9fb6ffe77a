package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client to server events.
const (
	InboundJoinConversation  = "join_conversation"
	InboundLeaveConversation = "leave_conversation"
	InboundSendMessage       = "send_message"
	InboundRequestSuggestion = "request_ai_suggestion"
	InboundApproveSuggestion = "approve_ai_suggestion"
	InboundRejectSuggestion  = "reject_ai_suggestion"
	InboundTyping            = "typing"
)

// Server to client events.
const (
	OutboundNewMessage = "new_message"
	OutboundSuggestion = "ai_suggestion"
	OutboundTyping     = "typing"
	OutboundError      = "error"
)

// ConversationData targets a conversation room (join/leave).
type ConversationData struct {
	ConversationID string `json:"conversationId"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// SuggestionRequestData asks for an AI reply suggestion.
type SuggestionRequestData struct {
	ConversationID string `json:"conversationId"`
	UserMessage    string `json:"userMessage"`
}

// SuggestionDecisionData approves or rejects a suggestion.
type SuggestionDecisionData struct {
	ConversationID string `json:"conversationId"`
	SuggestionID   string `json:"suggestionId"`
}

// TypingData toggles the typing indicator.
type TypingData struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ChatMessage is a relayed message as seen by clients.
type ChatMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Sender         string `json:"sender"`
	Timestamp      string `json:"timestamp"`
}

// SuggestionEvent carries a suggestion to the requester.
type SuggestionEvent struct {
	ConversationID string     `json:"conversationId"`
	Suggestion     Suggestion `json:"suggestion"`
}

// Suggestion is an AI reply proposal.
type Suggestion struct {
	ID         string             `json:"id"`
	Message    string             `json:"message"`
	Confidence float64            `json:"confidence"`
	Sources    []SuggestionSource `json:"sources"`
}

// SuggestionSource cites a FAQ entry.
type SuggestionSource struct {
	FAQID     string  `json:"faqId"`
	Question  string  `json:"question"`
	Relevance float64 `json:"relevance"`
}

// TypingEvent notifies room peers about typing state.
type TypingEvent struct {
	ConversationID string `json:"conversationId,omitempty"`
	User           string `json:"user"`
	IsTyping       bool   `json:"isTyping"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code           string `json:"code"`
	Msg            string `json:"msg"`
	ConversationID string `json:"conversationId,omitempty"`
}
