package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/internal/service"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
	"github.com/onurcolak/crm-whatsapp-service/pkg/response"
)

const (
	SignatureHeader = "X-Hub-Signature-256"

	maxWebhookBody = 1 << 20
)

type WebhookHandler struct {
	service   *service.MessagingService
	appSecret string
}

// NewWebhookHandler builds the provider callback handler. With an empty
// appSecret payload signatures are not checked.
func NewWebhookHandler(service *service.MessagingService, appSecret string) *WebhookHandler {
	return &WebhookHandler{service: service, appSecret: appSecret}
}

// Verify godoc
// @Summary Webhook verification handshake
// @Description Echoes hub.challenge when hub.verify_token matches the saved verification token
// @Tags webhook
// @Produce plain
// @Param hub.mode query string true "Must be subscribe"
// @Param hub.verify_token query string true "Verification token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string
// @Failure 403 {object} response.ErrorResponse
// @Router /webhook [get]
func (h *WebhookHandler) Verify(c echo.Context) error {
	challenge, err := h.service.VerifyWebhook(
		c.Request().Context(),
		c.QueryParam("hub.mode"),
		c.QueryParam("hub.verify_token"),
		c.QueryParam("hub.challenge"),
	)
	if err != nil {
		logger.Warnf("Webhook verification rejected from %s", c.RealIP())
		return handleServiceError(c, err)
	}

	return c.String(http.StatusOK, challenge)
}

// Receive godoc
// @Summary Receive provider events
// @Description Normalizes inbound messages and delivery status updates
// @Tags webhook
// @Accept json
// @Produce plain
// @Param X-Hub-Signature-256 header string false "sha256=<hex HMAC of the body>, required when an app secret is configured"
// @Success 200 {string} string "EVENT_RECEIVED"
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /webhook [post]
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return response.BadRequest(c, err)
	}
	if len(body) > maxWebhookBody {
		return response.BadRequest(c, errors.New("payload too large"))
	}

	if h.appSecret != "" {
		if ok, reason := validSignature(h.appSecret, c.Request().Header.Get(SignatureHeader), body); !ok {
			logger.Warnf("Rejected webhook from %s: %s", c.RealIP(), reason)
			return response.Forbidden(c, "invalid webhook signature")
		}
	}

	if _, err := h.service.IngestWebhook(c.Request().Context(), body); err != nil {
		return handleServiceError(c, err)
	}

	return c.String(http.StatusOK, "EVENT_RECEIVED")
}

// validSignature checks a "sha256=<hex>" header against the HMAC-SHA256 of body.
func validSignature(secret, header string, body []byte) (bool, string) {
	if header == "" {
		return false, "missing signature"
	}

	sig, found := strings.CutPrefix(header, "sha256=")
	if !found {
		return false, "unsupported signature format"
	}

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return false, "invalid signature hex"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)

	if !hmac.Equal(provided, mac.Sum(nil)) {
		return false, "signature mismatch"
	}

	return true, ""
}
