package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/internal/credentials"
	"github.com/onurcolak/crm-whatsapp-service/internal/inbound"
	"github.com/onurcolak/crm-whatsapp-service/internal/service"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
	"github.com/onurcolak/crm-whatsapp-service/pkg/whatsapp"
)

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not configured", whatsapp.ErrNotConfigured, http.StatusConflict, CodeNotConfigured},
		{"validation", fmt.Errorf("%w: %w", whatsapp.ErrInvalidRequest, &validator.ValidationError{Errors: map[string]string{"to": "to is required"}}), http.StatusUnprocessableEntity, ""},
		{"rejected", &whatsapp.ProviderRejectedError{Op: "send", StatusCode: 400, Message: "bad"}, http.StatusBadGateway, CodeProviderRejected},
		{"wrapped rejected", fmt.Errorf("configuration saved but webhook registration failed: %w", &whatsapp.ProviderRejectedError{Op: "register webhook", StatusCode: 403}), http.StatusBadGateway, CodeProviderRejected},
		{"unreachable", &whatsapp.UnreachableError{Op: "send", Err: errors.New("connection refused")}, http.StatusServiceUnavailable, CodeProviderUnreachable},
		{"storage", &credentials.StorageError{Op: "save", Err: errors.New("disk full")}, http.StatusInternalServerError, CodeStorage},
		{"invalid envelope", fmt.Errorf("%w: entry is not a list", inbound.ErrInvalidEnvelope), http.StatusBadRequest, CodeInvalidEnvelope},
		{"verification", service.ErrWebhookVerification, http.StatusForbidden, CodeVerification},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/test", nil), rec)

			if err := handleServiceError(c, tt.err); err != nil {
				t.Fatalf("handleServiceError returned error: %v", err)
			}

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			if tt.wantStatus == http.StatusUnprocessableEntity {
				return
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}
