package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventNewMessage notifies room members about a chat message.
	EventNewMessage EventKind = iota
	// EventTyping notifies room peers that someone started or stopped typing.
	EventTyping
	// EventSuggestion delivers an AI suggestion to the requester.
	EventSuggestion
	// EventError notifies a client about a failed command.
	EventError
)

// Event is sent to clients to describe what happened in the system.
// Broadcast events are shared between recipients and must not be mutated.
type Event struct {
	Kind       EventKind
	Room       string
	User       string
	IsTyping   bool
	Message    Message
	Suggestion *Suggestion
	Error      *CoreError
}
