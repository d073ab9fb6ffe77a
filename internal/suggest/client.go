package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/core"
)

// ErrUpstream is returned when the AI service answers with a non-2xx status
// or an unusable body.
var ErrUpstream = errors.New("ai service error")

const (
	suggestPath         = "/api/ai/suggest"
	defaultHistoryLimit = 20
	maxErrorBody        = 1 << 10
)

// HistorySource loads recent conversation messages to give the AI context.
type HistorySource interface {
	RecentHistory(ctx context.Context, conversationID string, limit int) ([]core.HistoryEntry, error)
}

// Client forwards suggestion requests to the external AI service.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	history      HistorySource
	historyLimit int
	log          *zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHistory makes the client attach recent messages when the request has none.
func WithHistory(src HistorySource, limit int) ClientOption {
	return func(c *Client) {
		c.history = src
		if limit > 0 {
			c.historyLimit = limit
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = logger }
}

// NewClient builds a client for the AI service at baseURL.
// timeout bounds each upstream round trip.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	nop := zerolog.Nop()
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		historyLimit: defaultHistoryLimit,
		log:          &nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type upstreamRequest struct {
	ConversationID      string            `json:"conversation_id"`
	UserMessage         string            `json:"user_message"`
	ConversationHistory []upstreamHistory `json:"conversation_history"`
}

type upstreamHistory struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

type upstreamResponse struct {
	Message    string           `json:"message"`
	Confidence float64          `json:"confidence"`
	Sources    []upstreamSource `json:"sources"`
	Reasoning  string           `json:"reasoning,omitempty"`
}

type upstreamSource struct {
	FAQID     string  `json:"faq_id"`
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	Relevance float64 `json:"relevance"`
}

// Suggest implements core.Suggester.
func (c *Client) Suggest(ctx context.Context, req core.SuggestionRequest) (*core.Suggestion, error) {
	history := req.History
	if len(history) == 0 && c.history != nil {
		loaded, err := c.history.RecentHistory(ctx, req.ConversationID, c.historyLimit)
		if err != nil {
			// History is context only; ask without it.
			c.log.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("failed to load conversation history")
		} else {
			history = loaded
		}
	}

	body := upstreamRequest{
		ConversationID:      req.ConversationID,
		UserMessage:         req.UserMessage,
		ConversationHistory: make([]upstreamHistory, 0, len(history)),
	}
	for _, h := range history {
		entry := upstreamHistory{Sender: h.Sender, Content: h.Content}
		if !h.Timestamp.IsZero() {
			entry.Timestamp = h.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		body.ConversationHistory = append(body.ConversationHistory, entry)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal suggestion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+suggestPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build suggestion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call ai service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}
	if out.Message == "" {
		return nil, fmt.Errorf("%w: empty suggestion", ErrUpstream)
	}

	c.log.Debug().
		Str("conversation_id", req.ConversationID).
		Dur("elapsed", time.Since(start)).
		Int("sources", len(out.Sources)).
		Msg("ai suggestion received")

	suggestion := &core.Suggestion{
		ID:         uuid.NewString(),
		Message:    out.Message,
		Confidence: core.ClampConfidence(out.Confidence),
		Sources:    make([]core.SuggestionSource, 0, len(out.Sources)),
	}
	for _, src := range out.Sources {
		suggestion.Sources = append(suggestion.Sources, core.SuggestionSource{
			FAQID:     src.FAQID,
			Question:  src.Question,
			Answer:    src.Answer,
			Relevance: src.Relevance,
		})
	}
	return suggestion, nil
}
