package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/internal/service"
	"github.com/onurcolak/crm-whatsapp-service/pkg/response"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
)

type MessageHandler struct {
	service *service.MessagingService
}

func NewMessageHandler(service *service.MessagingService) *MessageHandler {
	return &MessageHandler{service: service}
}

type SendMessageRequest = domain.OutboundMessageRequest

// SendMessage godoc
// @Summary Send a WhatsApp message
// @Description Sends a text message and records it in the conversation feed
// @Tags messages
// @Accept json
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param message body SendMessageRequest true "Recipient in international format and text body"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/whatsapp/messages [post]
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	msg, err := h.service.SendMessage(c.Request().Context(), req.To, req.Body)
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.Created(c, "Message sent", msg)
}

// TestConnection godoc
// @Summary Send a test message
// @Description Sends a message with the saved credentials without recording it
// @Tags messages
// @Accept json
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param message body SendMessageRequest true "Recipient in international format and text body"
// @Success 200 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/whatsapp/test [post]
func (h *MessageHandler) TestConnection(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	id, err := h.service.TestConnection(c.Request().Context(), req.To, req.Body)
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.OkWithMessage(c, "Test message accepted by provider", map[string]any{
		"messageId": id,
	})
}

// GetConversationMessages godoc
// @Summary Get conversation messages
// @Description Retrieves a paginated list of a conversation's messages in arrival order
// @Tags messages
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param id path string true "Conversation id (counterpart phone number)"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/conversations/{id}/messages [get]
func (h *MessageHandler) GetConversationMessages(c echo.Context) error {
	conversationID := c.Param("id")
	if domain.ConversationIDFor(conversationID) == "" {
		return response.BadRequest(c, fmt.Errorf("invalid conversation id"))
	}

	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	messages, totalCount, err := h.service.ConversationMessages(c.Request().Context(), conversationID, page, pageSize)
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// parsePaginationParams reads page and pageSize query params with sane defaults.
func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	page := defaultPage
	pageSize := defaultPageSize

	if pageStr := c.QueryParam("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}

		page = p
	}

	if pageSizeStr := c.QueryParam("pageSize"); pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
