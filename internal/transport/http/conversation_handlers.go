package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// ConversationHandlers provides HTTP handlers for conversation endpoints.
type ConversationHandlers struct {
	store store.Store
	hub   *core.Hub
	log   *zerolog.Logger
}

// NewConversationHandlers creates a new conversation handlers instance.
func NewConversationHandlers(st store.Store, hub *core.Hub, logger *zerolog.Logger) *ConversationHandlers {
	return &ConversationHandlers{
		store: st,
		hub:   hub,
		log:   logger,
	}
}

// CreateConversationRequest represents the create conversation request body.
type CreateConversationRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
}

// CreateMessageRequest represents the create message request body.
type CreateMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Sender  string `json:"sender"`
}

// UpdateStatusRequest represents the status change request body.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ID            string           `json:"id"`
	CustomerID    string           `json:"customerId"`
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
	AgentID       *string          `json:"agentId,omitempty"`
	AgentName     *string          `json:"agentName,omitempty"`
	Status        string           `json:"status"`
	Sentiment     string           `json:"sentiment"`
	CreatedAt     string           `json:"createdAt"`
	UpdatedAt     string           `json:"updatedAt"`
	ResolvedAt    *string          `json:"resolvedAt,omitempty"`
	LastMessage   *MessageResponse `json:"lastMessage,omitempty"`
}

// ConversationDetailResponse is a conversation together with its messages.
type ConversationDetailResponse struct {
	ConversationResponse
	Messages []MessageResponse `json:"messages"`
}

// MessageResponse represents a stored message in API responses.
type MessageResponse struct {
	ID             string   `json:"id"`
	ConversationID string   `json:"conversationId"`
	Content        string   `json:"content"`
	Sender         string   `json:"sender"`
	AgentID        *string  `json:"agentId,omitempty"`
	AISuggestion   *string  `json:"aiSuggestion,omitempty"`
	AIConfidence   *float64 `json:"aiConfidence,omitempty"`
	Edited         bool     `json:"edited"`
	Timestamp      string   `json:"timestamp"`
}

// PresenceResponse reports how many live connections watch a conversation.
type PresenceResponse struct {
	ConversationID string `json:"conversationId"`
	Members        int    `json:"members"`
}

// ListConversations handles listing conversations with their latest message.
// GET /api/conversations
func (h *ConversationHandlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	conversations, err := h.store.ListConversations(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		item := conversationResponse(conv)
		latest, err := h.store.RecentMessages(ctx, conv.ID, 1)
		if err != nil {
			h.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("failed to load latest message")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		if len(latest) > 0 {
			last := messageResponse(latest[0])
			item.LastMessage = &last
		}
		response = append(response, item)
	}

	h.log.Debug().Int("count", len(response)).Msg("conversations listed")
	c.JSON(http.StatusOK, response)
}

// GetConversation returns a conversation with all of its messages.
// GET /api/conversations/:id
func (h *ConversationHandlers) GetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	conv, ok := h.loadConversation(c, id)
	if !ok {
		return
	}

	messages, err := h.store.ListMessages(ctx, id)
	if err != nil {
		h.log.Error().Err(err).Str("conversation_id", id).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ConversationDetailResponse{
		ConversationResponse: conversationResponse(conv),
		Messages:             messageResponses(messages),
	})
}

// CreateConversation opens a conversation for a customer, assigned to the caller.
// POST /api/conversations
func (h *ConversationHandlers) CreateConversation(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create conversation request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	agentID := claims.Identity().Subject
	conv := &store.Conversation{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		AgentID:    &agentID,
		Status:     store.StatusActive,
		Sentiment:  store.SentimentNeutral,
	}
	if err := h.store.CreateConversation(c.Request.Context(), conv); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "customer not found"})
			return
		}
		h.log.Error().Err(err).Str("customer_id", req.CustomerID).Msg("failed to create conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	created, ok := h.loadConversation(c, conv.ID)
	if !ok {
		return
	}

	h.log.Info().Str("conversation_id", conv.ID).Str("agent_id", agentID).Msg("conversation created")
	c.JSON(http.StatusCreated, conversationResponse(created))
}

// ListMessages returns a conversation's messages in chronological order.
// GET /api/conversations/:id/messages
func (h *ConversationHandlers) ListMessages(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.loadConversation(c, id); !ok {
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("conversation_id", id).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, messageResponses(messages))
}

// CreateMessage stores a message and relays it to the live conversation room.
// POST /api/conversations/:id/messages
func (h *ConversationHandlers) CreateMessage(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		h.log.Debug().Err(err).Msg("invalid create message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	identity := claims.Identity()
	sender := store.Sender(core.SenderFor(identity))
	if req.Sender != "" {
		sender = store.Sender(req.Sender)
	}
	if !sender.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid sender"})
		return
	}

	id := c.Param("id")
	if _, ok := h.loadConversation(c, id); !ok {
		return
	}

	ctx := c.Request.Context()
	msg := &store.Message{
		ID:             uuid.NewString(),
		ConversationID: id,
		Content:        req.Content,
		Sender:         sender,
		Timestamp:      time.Now().UTC(),
	}
	if sender == store.SenderAgent {
		msg.AgentID = &identity.Subject
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("conversation_id", id).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := h.store.TouchConversation(ctx, id, msg.Timestamp); err != nil {
		h.log.Warn().Err(err).Str("conversation_id", id).Msg("failed to bump conversation")
	}

	if err := h.hub.Publish(ctx, core.Message{
		ID:        msg.ID,
		Room:      id,
		Content:   msg.Content,
		Sender:    core.SenderRole(msg.Sender),
		SenderID:  identity.Subject,
		CreatedAt: msg.Timestamp,
	}); err != nil {
		h.log.Warn().Err(err).Str("conversation_id", id).Msg("failed to relay message")
	}

	h.log.Info().Str("conversation_id", id).Str("message_id", msg.ID).Str("sender", string(sender)).Msg("message created")
	c.JSON(http.StatusCreated, messageResponse(msg))
}

// UpdateStatus changes a conversation's lifecycle state.
// PATCH /api/conversations/:id/status
func (h *ConversationHandlers) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update status request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	status := store.ConversationStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
		return
	}

	id := c.Param("id")
	conv, err := h.store.UpdateConversationStatus(c.Request.Context(), id, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
			return
		}
		h.log.Error().Err(err).Str("conversation_id", id).Msg("failed to update status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("conversation_id", id).Str("status", req.Status).Msg("conversation status updated")
	c.JSON(http.StatusOK, conversationResponse(conv))
}

// Presence reports the number of live connections joined to a conversation.
// GET /api/conversations/:id/presence
func (h *ConversationHandlers) Presence(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, PresenceResponse{
		ConversationID: id,
		Members:        h.hub.Registry().Count(id),
	})
}

func (h *ConversationHandlers) loadConversation(c *gin.Context, id string) (*store.Conversation, bool) {
	conv, err := h.store.GetConversation(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
			return nil, false
		}
		h.log.Error().Err(err).Str("conversation_id", id).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	return conv, true
}

func conversationResponse(conv *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:            conv.ID,
		CustomerID:    conv.CustomerID,
		CustomerName:  conv.CustomerName,
		CustomerEmail: conv.CustomerEmail,
		AgentID:       conv.AgentID,
		AgentName:     conv.AgentName,
		Status:        string(conv.Status),
		Sentiment:     string(conv.Sentiment),
		CreatedAt:     formatTime(conv.CreatedAt),
		UpdatedAt:     formatTime(conv.UpdatedAt),
		ResolvedAt:    formatTimePtr(conv.ResolvedAt),
	}
}

func messageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		Sender:         string(msg.Sender),
		AgentID:        msg.AgentID,
		AISuggestion:   msg.AISuggestion,
		AIConfidence:   msg.AIConfidence,
		Edited:         msg.Edited,
		Timestamp:      formatTime(msg.Timestamp),
	}
}

func messageResponses(messages []*store.Message) []MessageResponse {
	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, messageResponse(msg))
	}
	return response
}
