package http

import (
	"math"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

// AnalyticsHandlers provides HTTP handlers for dashboard figures.
type AnalyticsHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewAnalyticsHandlers creates a new analytics handlers instance.
func NewAnalyticsHandlers(st store.Store, logger *zerolog.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		store: st,
		log:   logger,
	}
}

// DashboardResponse summarizes conversation volume.
type DashboardResponse struct {
	TotalConversations     int     `json:"totalConversations"`
	ActiveConversations    int     `json:"activeConversations"`
	ResolvedConversations  int     `json:"resolvedConversations"`
	EscalatedConversations int     `json:"escalatedConversations"`
	ResolutionRate         float64 `json:"resolutionRate"`
}

// SentimentDistribution counts conversations per sentiment.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// CategoryCount is the number of FAQ entries in a category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DetailedResponse breaks conversations down by sentiment and status.
type DetailedResponse struct {
	SentimentDistribution SentimentDistribution `json:"sentimentDistribution"`
	ConversationsByStatus map[string]int        `json:"conversationsByStatus"`
	TopCategories         []CategoryCount       `json:"topCategories"`
}

// Dashboard returns headline conversation figures.
// GET /api/analytics/dashboard
func (h *AnalyticsHandlers) Dashboard(c *gin.Context) {
	stats, err := h.store.ConversationStats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load conversation stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resolved := stats.ByStatus[store.StatusResolved]
	c.JSON(http.StatusOK, DashboardResponse{
		TotalConversations:     stats.Total,
		ActiveConversations:    stats.ByStatus[store.StatusActive],
		ResolvedConversations:  resolved,
		EscalatedConversations: stats.ByStatus[store.StatusEscalated],
		ResolutionRate:         percent(resolved, stats.Total),
	})
}

// Detailed returns sentiment and status distributions plus the busiest FAQ categories.
// GET /api/analytics/detailed
func (h *AnalyticsHandlers) Detailed(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.store.ConversationStats(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load conversation stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	faqs, err := h.store.ListFAQs(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list faqs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	byStatus := map[string]int{
		string(store.StatusActive):    0,
		string(store.StatusResolved):  0,
		string(store.StatusEscalated): 0,
	}
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}

	c.JSON(http.StatusOK, DetailedResponse{
		SentimentDistribution: SentimentDistribution{
			Positive: stats.BySentiment[store.SentimentPositive],
			Neutral:  stats.BySentiment[store.SentimentNeutral],
			Negative: stats.BySentiment[store.SentimentNegative],
		},
		ConversationsByStatus: byStatus,
		TopCategories:         topCategories(faqs, 5),
	})
}

func topCategories(faqs []*store.FAQ, limit int) []CategoryCount {
	counts := make(map[string]int)
	for _, faq := range faqs {
		counts[faq.Category]++
	}
	result := make([]CategoryCount, 0, len(counts))
	for category, n := range counts {
		result = append(result, CategoryCount{Category: category, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// percent returns part/total as a percentage rounded to one decimal.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
