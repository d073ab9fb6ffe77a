package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/core"
)

const cacheKeyPrefix = "supportchat:suggestion:"

// Cached memoizes suggestions in Redis keyed by conversation and message.
// Redis failures never fail a request; they fall through to the wrapped suggester.
type Cached struct {
	next core.Suggester
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *zerolog.Logger
}

// NewCached wraps next with a Redis-backed cache.
func NewCached(next core.Suggester, rdb redis.Cmdable, ttl time.Duration, logger *zerolog.Logger) *Cached {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, log: logger}
}

type cachedSuggestion struct {
	Message    string                  `json:"message"`
	Confidence float64                 `json:"confidence"`
	Sources    []core.SuggestionSource `json:"sources"`
}

// Suggest implements core.Suggester.
func (c *Cached) Suggest(ctx context.Context, req core.SuggestionRequest) (*core.Suggestion, error) {
	key := cacheKey(req.ConversationID, req.UserMessage)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var hit cachedSuggestion
		if jsonErr := json.Unmarshal(raw, &hit); jsonErr == nil {
			c.log.Debug().Str("conversation_id", req.ConversationID).Msg("suggestion cache hit")
			// Every delivered suggestion gets its own id for approve/reject.
			return &core.Suggestion{
				ID:         uuid.NewString(),
				Message:    hit.Message,
				Confidence: hit.Confidence,
				Sources:    hit.Sources,
			}, nil
		}
		c.log.Warn().Str("key", key).Msg("discarding undecodable cached suggestion")
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn().Err(err).Msg("suggestion cache read failed")
	}

	suggestion, err := c.next.Suggest(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cachedSuggestion{
		Message:    suggestion.Message,
		Confidence: suggestion.Confidence,
		Sources:    suggestion.Sources,
	})
	if err == nil {
		if setErr := c.rdb.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.log.Warn().Err(setErr).Msg("suggestion cache write failed")
		}
	}
	return suggestion, nil
}

func cacheKey(conversationID, userMessage string) string {
	sum := sha256.Sum256([]byte(userMessage))
	return cacheKeyPrefix + conversationID + ":" + hex.EncodeToString(sum[:])
}
