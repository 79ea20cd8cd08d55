package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/internal/service"
	"github.com/onurcolak/crm-whatsapp-service/pkg/response"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
)

type ConfigHandler struct {
	service *service.MessagingService
}

func NewConfigHandler(service *service.MessagingService) *ConfigHandler {
	return &ConfigHandler{service: service}
}

// SaveConfigRequest is validated by the service because an empty apiToken
// means "keep the stored token".
type SaveConfigRequest struct {
	EndpointID        string `json:"endpointId"`
	APIToken          string `json:"apiToken"`
	WebhookURL        string `json:"webhookUrl"`
	VerificationToken string `json:"verificationToken"`
}

type RegisterWebhookRequest struct {
	URL    string                `json:"url" validate:"required,url"`
	Fields []domain.WebhookField `json:"fields" validate:"dive,oneof=messages message_status"`
}

// GetConfig godoc
// @Summary Get WhatsApp configuration
// @Description Returns the saved provider settings with the API token masked
// @Tags whatsapp
// @Produce json
// @Param X-API-Key header string true "API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/whatsapp/config [get]
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	view, err := h.service.CurrentConfig(c.Request().Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.Ok(c, view)
}

// SaveConfig godoc
// @Summary Save WhatsApp configuration
// @Description Persists the provider settings and registers the webhook when webhookUrl is set
// @Tags whatsapp
// @Accept json
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param config body SaveConfigRequest true "Provider settings"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/whatsapp/config [put]
func (h *ConfigHandler) SaveConfig(c echo.Context) error {
	var req SaveConfigRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	result, err := h.service.SaveConfig(c.Request().Context(), domain.ProviderCredentials{
		EndpointID:        req.EndpointID,
		APIToken:          domain.Secret(req.APIToken),
		WebhookURL:        req.WebhookURL,
		VerificationToken: req.VerificationToken,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.OkWithMessage(c, "Configuration saved", result)
}

// RegisterWebhook godoc
// @Summary Register webhook
// @Description Subscribes a callback URL to provider events
// @Tags whatsapp
// @Accept json
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param registration body RegisterWebhookRequest true "Callback URL and fields (default: messages, message_status)"
// @Success 200 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/whatsapp/webhook/register [post]
func (h *ConfigHandler) RegisterWebhook(c echo.Context) error {
	var req RegisterWebhookRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	ctx := c.Request().Context()

	reg := domain.WebhookRegistration{CallbackURL: req.URL, SubscribedFields: req.Fields}
	if err := h.service.RegisterWebhook(ctx, reg); err != nil {
		return handleServiceError(c, err)
	}

	view, err := h.service.CurrentConfig(ctx)
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.OkWithMessage(c, "Webhook registered", view.Webhook)
}
