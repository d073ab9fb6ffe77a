package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/core"
)

// AIHandlers exposes the suggestion backend over REST.
type AIHandlers struct {
	suggester core.Suggester
	log       *zerolog.Logger
}

// NewAIHandlers creates a new AI handlers instance.
func NewAIHandlers(suggester core.Suggester, logger *zerolog.Logger) *AIHandlers {
	return &AIHandlers{
		suggester: suggester,
		log:       logger,
	}
}

// SuggestMessage is one turn of the conversation sent by the dashboard.
type SuggestMessage struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SuggestRequest represents the suggestion request body.
type SuggestRequest struct {
	ConversationID string           `json:"conversationId" binding:"required"`
	Messages       []SuggestMessage `json:"messages"`
}

// SuggestResponse represents the suggestion response body.
type SuggestResponse struct {
	ID         string  `json:"id"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Suggest asks the suggestion backend for a reply to the latest message.
// POST /api/ai/suggest
func (h *AIHandlers) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid suggest request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if h.suggester == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "suggestions are not configured"})
		return
	}

	sreq := core.SuggestionRequest{ConversationID: req.ConversationID}
	if claims, ok := claimsFrom(c); ok {
		sreq.Requester = claims.Identity()
	}
	if n := len(req.Messages); n > 0 {
		sreq.UserMessage = req.Messages[n-1].Content
		for _, m := range req.Messages[:n-1] {
			entry := core.HistoryEntry{Sender: m.Sender, Content: m.Content}
			if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
				entry.Timestamp = ts
			}
			sreq.History = append(sreq.History, entry)
		}
	}

	suggestion, err := h.suggester.Suggest(c.Request.Context(), sreq)
	if err != nil || suggestion == nil {
		h.log.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("ai suggestion failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "failed to get ai suggestion"})
		return
	}

	c.JSON(http.StatusOK, SuggestResponse{
		ID:         suggestion.ID,
		Suggestion: suggestion.Message,
		Confidence: suggestion.Confidence,
	})
}
