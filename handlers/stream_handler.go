package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/internal/stream"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

type StreamHandler struct {
	hub       *stream.Hub
	keepAlive time.Duration
}

func NewStreamHandler(hub *stream.Hub, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &StreamHandler{hub: hub, keepAlive: keepAlive}
}

// Stream godoc
// @Summary Live message stream
// @Description Server-Sent Events stream with one "message" event per new or updated message
// @Tags stream
// @Produce text/event-stream
// @Param X-API-Key header string false "API key (or api_key query parameter)"
// @Param api_key query string false "API key for EventSource clients"
// @Success 200 {string} string "event stream"
// @Router /api/messages/stream [get]
func (h *StreamHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()

	id, messages, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, sse.ContentType)
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	// An initial comment lets the client observe the open state before any message.
	if _, err := fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			err := sse.Encode(res, sse.Event{
				Event: "message",
				Id:    msg.ID,
				Data:  msg,
			})
			if err != nil {
				logger.Warnf("Stream client %s write failed: %v", id, err)
				return nil
			}
			res.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
