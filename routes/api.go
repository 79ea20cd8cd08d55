package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/handlers"
	"github.com/onurcolak/crm-whatsapp-service/internal/middlewares"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Config  *handlers.ConfigHandler
	Message *handlers.MessageHandler
	Webhook *handlers.WebhookHandler
	Stream  *handlers.StreamHandler
}

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(e *echo.Echo, h Handlers, cfg *environments.Config) {
	e.GET("/health", h.Health.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Provider callbacks authenticate with the verification token and the
	// payload signature, not the API key.
	webhook := e.Group("/webhook", middleware.BodyLimit("1M"))
	webhook.GET("", h.Webhook.Verify)
	webhook.POST("", h.Webhook.Receive)

	auth := middlewares.APIKeyAuth(cfg.Auth.APIKey)

	e.GET("/api/messages/stream", h.Stream.Stream, auth)

	// API v1 base group
	v1 := e.Group("/api/v1", auth)

	whatsapp := v1.Group("/whatsapp")
	whatsapp.GET("/config", h.Config.GetConfig)
	whatsapp.PUT("/config", h.Config.SaveConfig)
	whatsapp.POST("/webhook/register", h.Config.RegisterWebhook)
	whatsapp.POST("/messages", h.Message.SendMessage)
	whatsapp.POST("/test", h.Message.TestConnection)

	v1.GET("/conversations/:id/messages", h.Message.GetConversationMessages)
}
