package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/handlers"
	"github.com/onurcolak/crm-whatsapp-service/internal/credentials"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/internal/middlewares"
	"github.com/onurcolak/crm-whatsapp-service/internal/repository"
	"github.com/onurcolak/crm-whatsapp-service/internal/service"
	"github.com/onurcolak/crm-whatsapp-service/internal/stream"
	"github.com/onurcolak/crm-whatsapp-service/pkg/database"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
	"github.com/onurcolak/crm-whatsapp-service/pkg/redis"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
	"github.com/onurcolak/crm-whatsapp-service/pkg/whatsapp"
	"github.com/onurcolak/crm-whatsapp-service/routes"

	_ "github.com/onurcolak/crm-whatsapp-service/docs" // swagger docs
)

// messageFeed is satisfied by both feed backends.
type messageFeed interface {
	Append(ctx context.Context, msg domain.NormalizedMessage) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.DeliveryStatus) (*domain.NormalizedMessage, error)
	ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.NormalizedMessage, int64, error)
}

type recordBackend interface {
	GetRecord(ctx context.Context, name string) ([]byte, error)
	PutRecord(ctx context.Context, name string, data []byte) error
}

// @title CRM WhatsApp Service API
// @version 1.0
// @description WhatsApp messaging integration for the legal CRM: provider configuration, outbound messages, webhook intake and a live message stream

// @contact.name API Support
// @contact.email onur.colak@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	// Load config
	cfg := environments.Load()
	logger.Init(cfg.Log.Level)

	// Hard-fail if required secrets are missing
	if cfg.Auth.APIKey == "" {
		logger.Fatalf("API_KEY is required but not set")
	}
	if cfg.WhatsApp.AppSecret == "" {
		logger.Warnf("WHATSAPP_APP_SECRET is not set, webhook signatures will not be checked")
	}

	logger.Infof("Starting CRM WhatsApp Service...")

	// Credential backend
	var (
		records     recordBackend
		redisClient *redis.Client
	)
	switch cfg.Credentials.Backend {
	case environments.CredentialsBackendValkey:
		client, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis for credential storage: %v", err)
		}
		redisClient = client
		records = client
		logger.Infof("Credentials stored in Valkey")
	case environments.CredentialsBackendFile:
		records = credentials.NewFileStore(cfg.Credentials.Dir)
		logger.Infof("Credentials stored in %s", cfg.Credentials.Dir)
	default:
		logger.Fatalf("Unknown CREDENTIALS_BACKEND %q", cfg.Credentials.Backend)
	}

	credentialStore := credentials.NewStore(records, cfg.WhatsApp)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 5*time.Second)
	saved, err := credentialStore.Load(loadCtx)
	loadCancel()
	if err != nil {
		logger.Errorf("Failed to load saved credentials: %v", err)
	} else if saved == nil {
		logger.Infof("WhatsApp provider is not configured yet")
	} else {
		logger.Infof("WhatsApp provider configured for endpoint %s", saved.EndpointID)
	}

	// Message feed
	var (
		feed messageFeed
		db   *sqlx.DB
	)
	switch cfg.Feed.Backend {
	case environments.FeedBackendMySQL:
		db, err = database.NewMySQLDB(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}

		if err := database.RunMigrations(db); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}

		if environments.GetEnvAsBool("SEED_DATA", false) {
			if err := database.SeedTestData(db); err != nil {
				logger.Warnf("Failed to seed test data: %v", err)
			}
		}

		feed = repository.NewMessageRepository(db)
	case environments.FeedBackendMemory:
		feed = repository.NewMemoryMessageRepository()
		logger.Infof("Using in-memory message feed")
	default:
		logger.Fatalf("Unknown FEED_BACKEND %q", cfg.Feed.Backend)
	}

	hub := stream.NewHub(cfg.Stream.ClientBuffer)
	dispatcher := whatsapp.NewClient(cfg.WhatsApp, credentialStore)
	messagingService := service.NewMessagingService(dispatcher, credentialStore, feed, hub)

	// Cancelled before shutdown so open streams return.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, routes.Handlers{
		Health:  handlers.NewHealthHandler(db, redisClient, hub),
		Config:  handlers.NewConfigHandler(messagingService),
		Message: handlers.NewMessageHandler(messagingService),
		Webhook: handlers.NewWebhookHandler(messagingService, cfg.WhatsApp.AppSecret),
		Stream:  handlers.NewStreamHandler(hub, cfg.Stream.KeepAlive),
	}, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to end open streams
	cancel()

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	if db != nil {
		logger.Infof("Closing database connection...")
		if err := db.Close(); err != nil {
			logger.Errorf("Error closing database: %v", err)
		}
	}

	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
