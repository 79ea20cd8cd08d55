package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	validatorpkg "github.com/onurcolak/crm-whatsapp-service/pkg/validator"
)

func TestGetConfig_NotConfigured(t *testing.T) {
	app := newTestApp(t, http.StatusOK, `{"success":true}`)
	handler := NewConfigHandler(app.service)

	c, rec := app.newContext(http.MethodGet, "/api/v1/whatsapp/config", "")

	if err := handler.GetConfig(c); err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"configured":false`) {
		t.Errorf("expected configured=false, got %s", rec.Body.String())
	}
}

func TestSaveConfig_ThenGetMasksToken(t *testing.T) {
	app := newTestApp(t, http.StatusOK, `{"success":true}`)
	handler := NewConfigHandler(app.service)

	c, rec := app.newContext(http.MethodPut, "/api/v1/whatsapp/config",
		`{"endpointId": " 123 ", "apiToken": "EAAG-secret-token-wxyz", "verificationToken": "verify-me"}`)

	if err := handler.SaveConfig(c); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if n := len(app.calls.all()); n != 0 {
		t.Errorf("expected no registration without webhookUrl, got %d provider calls", n)
	}

	c, rec = app.newContext(http.MethodGet, "/api/v1/whatsapp/config", "")
	if err := handler.GetConfig(c); err != nil {
		t.Fatalf("GetConfig returned error: %v", err)
	}

	body := rec.Body.String()
	if strings.Contains(body, "EAAG-secret-token-wxyz") {
		t.Fatalf("response leaked the API token: %s", body)
	}

	var resp struct {
		Data struct {
			Configured           bool   `json:"configured"`
			EndpointID           string `json:"endpointId"`
			APIToken             string `json:"apiToken"`
			VerificationTokenSet bool   `json:"verificationTokenSet"`
			BaseURL              string `json:"baseUrl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if !resp.Data.Configured || resp.Data.EndpointID != "123" {
		t.Errorf("unexpected config view %+v", resp.Data)
	}
	if resp.Data.APIToken != "****wxyz" {
		t.Errorf("expected masked token, got %q", resp.Data.APIToken)
	}
	if !resp.Data.VerificationTokenSet {
		t.Errorf("expected verificationTokenSet=true")
	}
	if resp.Data.BaseURL != app.provider.URL+"/v17.0/123" {
		t.Errorf("unexpected base url %q", resp.Data.BaseURL)
	}
}

func TestSaveConfig_EmptyTokenKeepsStoredToken(t *testing.T) {
	app := newTestApp(t, http.StatusOK, `{"success":true}`)
	app.configure(t)
	handler := NewConfigHandler(app.service)

	c, rec := app.newContext(http.MethodPut, "/api/v1/whatsapp/config", `{"endpointId": "456", "apiToken": ""}`)

	if err := handler.SaveConfig(c); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	creds, err := app.store.Load(context.Background())
	if err != nil || creds == nil {
		t.Fatalf("Load returned %v, %v", creds, err)
	}
	if creds.EndpointID != "456" || creds.APIToken.Reveal() != "test-token-abcdef" {
		t.Errorf("unexpected stored credentials: endpoint %q", creds.EndpointID)
	}
}

func TestSaveConfig_Validation(t *testing.T) {
	app := newTestApp(t, http.StatusOK, `{"success":true}`)
	handler := NewConfigHandler(app.service)

	c, rec := app.newContext(http.MethodPut, "/api/v1/whatsapp/config", `{"endpointId": "", "apiToken": "", "webhookUrl": "not a url"}`)

	if err := handler.SaveConfig(c); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var resp validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	for _, field := range []string{"endpointId", "apiToken", "webhookUrl"} {
		if _, ok := resp.Details[field]; !ok {
			t.Errorf("expected a validation error for %s, got %v", field, resp.Details)
		}
	}

	if creds, _ := app.store.Load(context.Background()); creds != nil {
		t.Errorf("expected nothing saved, got endpoint %q", creds.EndpointID)
	}
}

func TestSaveConfig_RegistersWebhook(t *testing.T) {
	app := newTestApp(t, http.StatusOK, `{"success":true}`)
	handler := NewConfigHandler(app.service)

	c, rec := app.newContext(http.MethodPut, "/api/v1/whatsapp/config",
		`{"endpointId": "123", "apiToken": "test-token-abcdef", "webhookUrl": "https://crm.example.com/webhook"}`)

	if err := handler.SaveConfig(c); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"webhookRegistered":true`) {
		t.Errorf("expected webhookRegistered=true, got %s", rec.Body.String())
	}

	calls := app.calls.all()
	if len(calls) != 1 || calls[0].Path != "/v17.0/123/webhook" {
		t.Fatalf("expected one registration call, got %+v", calls)
	}
	if !strings.Contains(calls[0].Body, "https://crm.example.com/webhook") {
		t.Errorf("registration body missing callback url: %s", calls[0].Body)
	}
}

func TestSaveConfig_RegistrationFailureKeepsConfig(t *testing.T) {
	app := newTestApp(t, http.StatusForbidden, `{"error":{"message":"Permission denied"}}`)
	handler := NewConfigHandler(app.service)

	c, rec := app.newContext(http.MethodPut, "/api/v1/whatsapp/config",
		`{"endpointId": "123", "apiToken": "test-token-abcdef", "webhookUrl": "https://crm.example.com/webhook"}`)

	if err := handler.SaveConfig(c); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); !strings.Contains(resp.Error, "Permission denied") {
		t.Errorf("expected provider message in error, got %q", resp.Error)
	}

	if creds, _ := app.store.Load(context.Background()); creds == nil || creds.EndpointID != "123" {
		t.Errorf("expected configuration to be saved despite registration failure")
	}
}

func TestRegisterWebhook_DefaultsFields(t *testing.T) {
	app := newTestApp(t, http.StatusOK, `{"success":true}`)
	app.configure(t)
	handler := NewConfigHandler(app.service)

	c, rec := app.newContext(http.MethodPost, "/api/v1/whatsapp/webhook/register", `{"url": "https://crm.example.com/webhook"}`)

	if err := handler.RegisterWebhook(c); err != nil {
		t.Fatalf("RegisterWebhook returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data domain.WebhookRegistration `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	want := domain.DefaultWebhookFields()
	if resp.Data.CallbackURL != "https://crm.example.com/webhook" || len(resp.Data.SubscribedFields) != len(want) {
		t.Fatalf("unexpected registration %+v", resp.Data)
	}
	for i, f := range want {
		if resp.Data.SubscribedFields[i] != f {
			t.Errorf("field %d: expected %q, got %q", i, f, resp.Data.SubscribedFields[i])
		}
	}
}

func TestRegisterWebhook_Errors(t *testing.T) {
	tests := []struct {
		name       string
		configure  bool
		body       string
		wantStatus int
	}{
		{"invalid url", true, `{"url": "nope"}`, http.StatusUnprocessableEntity},
		{"unknown field", true, `{"url": "https://crm.example.com/webhook", "fields": ["calls"]}`, http.StatusUnprocessableEntity},
		{"not configured", false, `{"url": "https://crm.example.com/webhook"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, http.StatusOK, `{"success":true}`)
			if tt.configure {
				app.configure(t)
			}
			handler := NewConfigHandler(app.service)

			c, rec := app.newContext(http.MethodPost, "/api/v1/whatsapp/webhook/register", tt.body)

			if err := handler.RegisterWebhook(c); err != nil {
				t.Fatalf("RegisterWebhook returned error: %v", err)
			}

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if n := len(app.calls.all()); n != 0 {
				t.Errorf("expected no provider calls, got %d", n)
			}
		})
	}
}
