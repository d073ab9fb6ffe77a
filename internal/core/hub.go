package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultSuggestionTimeout = 15 * time.Second
	defaultPersistTimeout    = 5 * time.Second
)

// Hub relays conversation events between connected clients.
// All commands are handled on the goroutine running Run, in the order each
// client submitted them.
type Hub struct {
	registry  *Registry
	suggester Suggester
	persister Persister
	log       *zerolog.Logger
	now       func() time.Time

	suggestionTimeout time.Duration
	persistTimeout    time.Duration

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	inbox      chan inboundCommand
	replies    chan suggestionReply
	publish    chan Message
	done       chan struct{}
}

type inboundCommand struct {
	client *Client
	cmd    *Command
}

type suggestionReply struct {
	client     *Client
	room       string
	suggestion *Suggestion
	err        error
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) { h.log = logger }
}

// WithSuggester sets the suggestion backend.
func WithSuggester(s Suggester) Option {
	return func(h *Hub) { h.suggester = s }
}

// WithPersister sets the collaborator that stores relayed messages.
func WithPersister(p Persister) Option {
	return func(h *Hub) { h.persister = p }
}

// WithRegistry makes the hub use an existing registry.
func WithRegistry(r *Registry) Option {
	return func(h *Hub) { h.registry = r }
}

// WithSuggestionTimeout bounds how long a suggestion request may take.
func WithSuggestionTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.suggestionTimeout = d
		}
	}
}

// WithPersistTimeout bounds how long storing a single message may take.
func WithPersistTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.persistTimeout = d
		}
	}
}

// NewHub creates a new relay hub.
func NewHub(opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		log:               &nop,
		now:               time.Now,
		suggestionTimeout: defaultSuggestionTimeout,
		persistTimeout:    defaultPersistTimeout,
		clients:           make(map[*Client]struct{}),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		inbox:             make(chan inboundCommand, 64),
		replies:           make(chan suggestionReply, 16),
		publish:           make(chan Message, 16),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.registry == nil {
		h.registry = NewRegistry()
	}
	return h
}

// Registry exposes room membership for read-only lookups.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run processes client commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(c)
			h.log.Debug().Str("client_id", c.ID).Str("user", c.Identity.Subject).Msg("client registered")
		case c := <-h.unregister:
			h.drop(c)
		case in := <-h.inbox:
			if _, ok := h.clients[in.client]; !ok {
				continue
			}
			h.handle(ctx, in.client, in.cmd)
		case reply := <-h.replies:
			h.deliverSuggestion(reply)
		case msg := <-h.publish:
			h.broadcast(msg.Room, &Event{Kind: EventNewMessage, Room: msg.Room, Message: msg}, nil)
		}
	}
}

// RegisterClient attaches an authenticated client to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

// UnregisterClient removes a client and revokes all of its memberships.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish broadcasts a message created outside the relay (e.g. over REST)
// to the members of its room.
func (h *Hub) Publish(ctx context.Context, msg Message) error {
	select {
	case h.publish <- msg:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pump forwards a client's commands to the hub, preserving their order.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- inboundCommand{client: c, cmd: cmd}:
			case <-c.gone:
				return
			case <-h.done:
				return
			}
		case <-c.gone:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinRoom:
		if h.registry.Join(c, cmd.Room) {
			h.log.Info().Str("user", c.Identity.Email).Str("conversation_id", cmd.Room).Msg("joined conversation")
		}
	case CommandLeaveRoom:
		if h.registry.Leave(c, cmd.Room) {
			h.log.Info().Str("user", c.Identity.Email).Str("conversation_id", cmd.Room).Msg("left conversation")
		}
	case CommandSendMessage:
		h.sendMessage(ctx, c, cmd)
	case CommandTyping:
		if !h.registry.IsMember(c, cmd.Room) {
			h.log.Debug().Str("client_id", c.ID).Str("conversation_id", cmd.Room).Msg("typing from non-member dropped")
			return
		}
		h.broadcast(cmd.Room, &Event{
			Kind:     EventTyping,
			Room:     cmd.Room,
			User:     c.Identity.DisplayName(),
			IsTyping: cmd.IsTyping,
		}, c)
	case CommandRequestSuggestion:
		h.log.Info().Str("conversation_id", cmd.Room).Str("client_id", c.ID).Msg("ai suggestion requested")
		go h.requestSuggestion(ctx, c, cmd.Room, cmd.Content)
	case CommandApproveSuggestion:
		h.log.Info().Str("conversation_id", cmd.Room).Str("suggestion_id", cmd.SuggestionID).
			Str("user", c.Identity.Email).Msg("ai suggestion approved")
	case CommandRejectSuggestion:
		h.log.Info().Str("conversation_id", cmd.Room).Str("suggestion_id", cmd.SuggestionID).
			Str("user", c.Identity.Email).Msg("ai suggestion rejected")
	default:
		h.send(c, &Event{Kind: EventError, Room: cmd.Room, Error: coreError(ErrCodeUnknownEvent, "unknown command")})
	}
}

func (h *Hub) sendMessage(ctx context.Context, c *Client, cmd *Command) {
	// Non-members are dropped without telling the sender.
	if !h.registry.IsMember(c, cmd.Room) {
		h.log.Debug().Str("client_id", c.ID).Str("conversation_id", cmd.Room).Msg("message from non-member dropped")
		return
	}

	msg := Message{
		ID:        uuid.NewString(),
		Room:      cmd.Room,
		Content:   cmd.Content,
		Sender:    SenderFor(c.Identity),
		SenderID:  c.Identity.Subject,
		CreatedAt: h.now().UTC(),
	}

	if h.persister != nil {
		go h.persist(ctx, msg)
	}

	delivered := h.broadcast(cmd.Room, &Event{Kind: EventNewMessage, Room: cmd.Room, Message: msg}, nil)
	h.log.Info().Str("conversation_id", cmd.Room).Str("message_id", msg.ID).Int("recipients", delivered).Msg("message sent")
}

func (h *Hub) persist(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, h.persistTimeout)
	defer cancel()

	if err := h.persister.PersistMessage(ctx, msg); err != nil {
		h.log.Warn().Err(err).Str("conversation_id", msg.Room).Str("message_id", msg.ID).Msg("failed to persist message")
	}
}

func (h *Hub) requestSuggestion(ctx context.Context, c *Client, room, userMessage string) {
	reply := suggestionReply{client: c, room: room}

	if h.suggester == nil {
		reply.err = ErrNoSuggester
	} else {
		sctx, cancel := context.WithTimeout(ctx, h.suggestionTimeout)
		reply.suggestion, reply.err = h.suggester.Suggest(sctx, SuggestionRequest{
			ConversationID: room,
			UserMessage:    userMessage,
			Requester:      c.Identity,
		})
		cancel()
	}

	select {
	case h.replies <- reply:
	case <-h.done:
	}
}

func (h *Hub) deliverSuggestion(reply suggestionReply) {
	if _, ok := h.clients[reply.client]; !ok {
		h.log.Debug().Str("client_id", reply.client.ID).Msg("suggestion for disconnected client discarded")
		return
	}

	if reply.err != nil || reply.suggestion == nil {
		h.log.Warn().Err(reply.err).Str("conversation_id", reply.room).Msg("ai suggestion failed")
		h.send(reply.client, &Event{
			Kind:  EventError,
			Room:  reply.room,
			Error: coreError(ErrCodeUpstreamFailure, "failed to get ai suggestion"),
		})
		return
	}

	h.send(reply.client, &Event{Kind: EventSuggestion, Room: reply.room, Suggestion: reply.suggestion})
}

// broadcast delivers ev to every member of room except skip and returns how
// many members accepted it.
func (h *Hub) broadcast(room string, ev *Event, skip *Client) int {
	delivered := 0
	for _, member := range h.registry.MembersOf(room) {
		if member == skip {
			continue
		}
		if h.send(member, ev) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) send(c *Client, ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		h.log.Debug().Str("client_id", c.ID).Msg("event dropped for slow client")
		return false
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	rooms := h.registry.RemoveClient(c)
	c.close()
	h.log.Info().Str("client_id", c.ID).Str("user", c.Identity.Email).Strs("rooms", rooms).Msg("client disconnected")
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		h.registry.RemoveClient(c)
		c.close()
		delete(h.clients, c)
	}
}
