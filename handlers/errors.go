package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/internal/credentials"
	"github.com/onurcolak/crm-whatsapp-service/internal/inbound"
	"github.com/onurcolak/crm-whatsapp-service/internal/service"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
	"github.com/onurcolak/crm-whatsapp-service/pkg/response"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
	"github.com/onurcolak/crm-whatsapp-service/pkg/whatsapp"
)

const (
	CodeNotConfigured       = "not_configured"
	CodeProviderRejected    = "provider_rejected"
	CodeProviderUnreachable = "provider_unreachable"
	CodeStorage             = "storage_error"
	CodeInvalidEnvelope     = "invalid_envelope"
	CodeVerification        = "verification_failed"
)

// handleServiceError maps messaging errors onto HTTP responses so the CRM can
// tell "not set up yet" apart from "provider said no" and "provider is down".
func handleServiceError(c echo.Context, err error) error {
	var (
		validationErr  *validator.ValidationError
		rejectedErr    *whatsapp.ProviderRejectedError
		unreachableErr *whatsapp.UnreachableError
		storageErr     *credentials.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		return validator.HandleValidationError(c, err)
	case errors.Is(err, whatsapp.ErrNotConfigured):
		return response.Fail(c, http.StatusConflict, CodeNotConfigured, err)
	case errors.Is(err, inbound.ErrInvalidEnvelope):
		return response.Fail(c, http.StatusBadRequest, CodeInvalidEnvelope, err)
	case errors.Is(err, service.ErrWebhookVerification):
		return response.Fail(c, http.StatusForbidden, CodeVerification, err)
	case errors.As(err, &rejectedErr):
		return response.Fail(c, http.StatusBadGateway, CodeProviderRejected, err)
	case errors.As(err, &unreachableErr):
		return response.Fail(c, http.StatusServiceUnavailable, CodeProviderUnreachable, err)
	case errors.As(err, &storageErr):
		logger.Errorf("Storage failure: %v", err)
		return response.Fail(c, http.StatusInternalServerError, CodeStorage, err)
	}

	logger.Errorf("Unhandled error on %s %s: %v", c.Request().Method, c.Path(), err)
	return response.InternalServerError(c, err)
}
