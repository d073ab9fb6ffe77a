package core

import "sync"

// Identity is the authenticated principal attached to a connection.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Role    string
}

// DisplayName returns the name shown to room peers.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	if i.Email != "" {
		return i.Email
	}
	return i.Subject
}

// Client is one live connection as seen by the core layer.
type Client struct {
	ID       string
	Identity Identity
	Commands chan *Command
	Events   chan *Event

	gone     chan struct{}
	goneOnce sync.Once
}

// NewClient constructs a client with initialized channels.
// buffer bounds the number of undelivered events kept for a slow reader.
func NewClient(id string, identity Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	if identity.Subject == "" {
		identity.Subject = id
	}
	return &Client{
		ID:       id,
		Identity: identity,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		gone:     make(chan struct{}),
	}
}

// Gone is closed once the hub has dropped the client.
func (c *Client) Gone() <-chan struct{} {
	return c.gone
}

// close marks the client dropped and closes its event stream.
// Only the hub goroutine writes to Events, so closing here is safe.
func (c *Client) close() {
	c.goneOnce.Do(func() {
		close(c.gone)
		close(c.Events)
	})
}
