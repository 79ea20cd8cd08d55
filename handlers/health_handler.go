package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/internal/stream"
	"github.com/onurcolak/crm-whatsapp-service/pkg/redis"
)

// HealthHandler handles health checks. The database and redis are optional
// backends; a nil one is reported as disabled.
type HealthHandler struct {
	db           *sqlx.DB
	redis        *redis.Client
	hub          *stream.Hub
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client, hub *stream.Hub) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        redisClient,
		hub:          hub,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and the status of each configured backend.
// @Summary Health check
// @Description Returns overall status with MySQL and Valkey connectivity results and the number of stream clients
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "disabled"
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			dbStatus = "down"
			overallStatus = "down"
		} else {
			dbStatus = "up"
		}
	}

	redisStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "down"
			overallStatus = "down"
		} else {
			redisStatus = "up"
		}
	}

	streamClients := 0
	if h.hub != nil {
		streamClients = h.hub.ClientCount()
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"redis": map[string]any{
				"status": redisStatus,
			},
			"stream": map[string]any{
				"clients": streamClients,
			},
		},
	})
}
