package core

import "time"

// SenderRole tells who authored a chat message.
type SenderRole string

const (
	SenderCustomer SenderRole = "customer"
	SenderAgent    SenderRole = "agent"
	SenderAI       SenderRole = "ai"
)

// SenderFor maps an identity role onto the message sender role.
// Staff roles (admin, manager, agent) all speak as the agent.
func SenderFor(identity Identity) SenderRole {
	switch identity.Role {
	case string(SenderCustomer):
		return SenderCustomer
	case string(SenderAI):
		return SenderAI
	default:
		return SenderAgent
	}
}

// Message is the domain model for a relayed chat message.
type Message struct {
	ID        string
	Room      string
	Content   string
	Sender    SenderRole
	SenderID  string
	CreatedAt time.Time
}
