package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("already exists")
)

// Role is a staff member's permission level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent:
		return true
	}
	return false
}

// User is a support staff account.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// Customer is the person on the other side of a conversation.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusResolved  ConversationStatus = "resolved"
	StatusEscalated ConversationStatus = "escalated"
)

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusResolved, StatusEscalated:
		return true
	}
	return false
}

// Sentiment is the detected mood of a conversation.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Conversation is a support thread between a customer and an agent.
type Conversation struct {
	ID            string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	AgentID       *string
	AgentName     *string
	Status        ConversationStatus
	Sentiment     Sentiment
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

// Sender identifies who wrote a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
	SenderAI       Sender = "ai"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	switch s {
	case SenderCustomer, SenderAgent, SenderAI:
		return true
	}
	return false
}

// Message is a persisted chat message.
type Message struct {
	ID             string
	ConversationID string
	Content        string
	Sender         Sender
	AgentID        *string
	AISuggestion   *string
	AIConfidence   *float64
	Edited         bool
	Timestamp      time.Time
}

// FAQ is a knowledge-base entry used to ground suggestions.
type FAQ struct {
	ID        string
	Question  string
	Answer    string
	Category  string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationStats aggregates conversation counts for dashboards.
type ConversationStats struct {
	Total       int
	ByStatus    map[ConversationStatus]int
	BySentiment map[Sentiment]int
}

// UserStore handles staff account persistence.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrConflict for a taken email.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// CustomerStore handles customer persistence.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *Customer) error
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
}

// ConversationStore handles conversation persistence.
type ConversationStore interface {
	// CreateConversation inserts a conversation for an existing customer.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// GetConversation retrieves a conversation with customer and agent names.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// ListConversations returns all conversations, most recently updated first.
	ListConversations(ctx context.Context) ([]*Conversation, error)

	// UpdateConversationStatus changes the status; resolved sets ResolvedAt.
	UpdateConversationStatus(ctx context.Context, id string, status ConversationStatus) (*Conversation, error)

	// TouchConversation bumps UpdatedAt.
	TouchConversation(ctx context.Context, id string, at time.Time) error

	// ConversationStats counts conversations by status and sentiment.
	ConversationStats(ctx context.Context) (*ConversationStats, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message to storage.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns a conversation's messages in chronological order.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// RecentMessages returns up to limit latest messages, oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
}

// FAQStore handles knowledge-base persistence.
type FAQStore interface {
	CreateFAQ(ctx context.Context, faq *FAQ) error
	UpdateFAQ(ctx context.Context, faq *FAQ) error
	DeleteFAQ(ctx context.Context, id string) error
	GetFAQ(ctx context.Context, id string) (*FAQ, error)
	ListFAQs(ctx context.Context) ([]*FAQ, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	CustomerStore
	ConversationStore
	MessageStore
	FAQStore

	// Close closes the underlying database connection.
	Close() error
}
