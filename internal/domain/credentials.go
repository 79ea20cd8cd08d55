package domain

import (
	"encoding/json"
	"strings"
)

// Secret holds a credential that must never be printed in plaintext.
// Every fmt verb and JSON encoding renders a mask; use Reveal for the raw value.
type Secret string

func (s Secret) Reveal() string {
	return string(s)
}

func (s Secret) IsZero() bool {
	return s == ""
}

func (s Secret) String() string {
	return maskSecret(string(s))
}

func (s Secret) GoString() string {
	return `domain.Secret("` + maskSecret(string(s)) + `")`
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(maskSecret(string(s)))
}

func maskSecret(raw string) string {
	if raw == "" {
		return ""
	}
	if len(raw) <= 8 {
		return "****"
	}
	return "****" + raw[len(raw)-4:]
}

// ProviderCredentials are the WhatsApp Business connection settings.
type ProviderCredentials struct {
	EndpointID        string `json:"endpointId" validate:"required"`
	APIToken          Secret `json:"apiToken" validate:"required"`
	WebhookURL        string `json:"webhookUrl" validate:"omitempty,url"`
	VerificationToken string `json:"verificationToken"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c ProviderCredentials) Trimmed() ProviderCredentials {
	return ProviderCredentials{
		EndpointID:        strings.TrimSpace(c.EndpointID),
		APIToken:          Secret(strings.TrimSpace(c.APIToken.Reveal())),
		WebhookURL:        strings.TrimSpace(c.WebhookURL),
		VerificationToken: strings.TrimSpace(c.VerificationToken),
	}
}

type WebhookField string

const (
	FieldMessages      WebhookField = "messages"
	FieldMessageStatus WebhookField = "message_status"
)

func DefaultWebhookFields() []WebhookField {
	return []WebhookField{FieldMessages, FieldMessageStatus}
}

type WebhookRegistration struct {
	CallbackURL      string         `json:"url" validate:"required,url"`
	SubscribedFields []WebhookField `json:"fields" validate:"dive,oneof=messages message_status"`
}
