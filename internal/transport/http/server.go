package http

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// NewServer builds an HTTP server with the REST API and the WebSocket relay.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, suggester core.Suggester, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	router.GET("/health", healthHandler)

	wsHandler := NewWSHandler(hub, authService, WSOptions{
		OriginPatterns:     cfg.CORSOrigins,
		MaxMessageBytes:    cfg.MaxMessageBytes,
		MaxEventsPerMinute: cfg.MaxEventsPerMinute,
		ClientBuffer:       cfg.ClientBuffer,
	}, logger)
	router.GET("/ws", wsHandler.Handle)

	authHandlers := NewAuthHandlers(authService, st, logger)
	conversationHandlers := NewConversationHandlers(st, hub, logger)
	customerHandlers := NewCustomerHandlers(st, logger)
	faqHandlers := NewFAQHandlers(st, logger)
	analyticsHandlers := NewAnalyticsHandlers(st, logger)
	aiHandlers := NewAIHandlers(suggester, logger)

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandlers.Register)
		api.POST("/auth/login", authHandlers.Login)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(authService, logger))
	{
		protected.GET("/auth/verify", authHandlers.Verify)

		protected.GET("/conversations", conversationHandlers.ListConversations)
		protected.POST("/conversations", conversationHandlers.CreateConversation)
		protected.GET("/conversations/:id", conversationHandlers.GetConversation)
		protected.GET("/conversations/:id/messages", conversationHandlers.ListMessages)
		protected.POST("/conversations/:id/messages", conversationHandlers.CreateMessage)
		protected.PATCH("/conversations/:id/status", conversationHandlers.UpdateStatus)
		protected.GET("/conversations/:id/presence", conversationHandlers.Presence)

		protected.GET("/customers", customerHandlers.ListCustomers)
		protected.POST("/customers", customerHandlers.CreateCustomer)

		protected.GET("/faq", faqHandlers.ListFAQs)
		protected.POST("/faq", faqHandlers.CreateFAQ)
		protected.POST("/faq/upload", faqHandlers.UploadFAQs)
		protected.PUT("/faq/:id", faqHandlers.UpdateFAQ)
		protected.DELETE("/faq/:id", faqHandlers.DeleteFAQ)

		protected.GET("/analytics/dashboard", analyticsHandlers.Dashboard)
		protected.GET("/analytics/detailed", analyticsHandlers.Detailed)

		protected.POST("/ai/suggest", aiHandlers.Suggest)
	}

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
