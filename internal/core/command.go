package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a conversation room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from a conversation room.
	CommandLeaveRoom
	// CommandSendMessage delivers a chat message to room members.
	CommandSendMessage
	// CommandTyping relays a typing indicator to the other room members.
	CommandTyping
	// CommandRequestSuggestion asks for an AI reply suggestion.
	CommandRequestSuggestion
	// CommandApproveSuggestion records that an agent accepted a suggestion.
	CommandApproveSuggestion
	// CommandRejectSuggestion records that an agent discarded a suggestion.
	CommandRejectSuggestion
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join"
	case CommandLeaveRoom:
		return "leave"
	case CommandSendMessage:
		return "send_message"
	case CommandTyping:
		return "typing"
	case CommandRequestSuggestion:
		return "request_suggestion"
	case CommandApproveSuggestion:
		return "approve_suggestion"
	case CommandRejectSuggestion:
		return "reject_suggestion"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind         CommandKind
	Room         string
	Content      string // message text, or the customer message for suggestions
	IsTyping     bool
	SuggestionID string
}
