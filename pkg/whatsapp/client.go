package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/internal/credentials"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
)

type credentialSource interface {
	Snapshot(ctx context.Context) (*credentials.Snapshot, error)
}

// Client talks to the WhatsApp Cloud API. It sends outbound text messages and
// registers the webhook callback. Requests are never retried.
type Client struct {
	httpClient  *resty.Client
	credentials credentialSource
	validator   *validator.CustomValidator

	mu               sync.RWMutex
	lastRegistration *domain.WebhookRegistration
}

func NewClient(cfg environments.WhatsAppConfig, creds credentialSource) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:  client,
		credentials: creds,
		validator:   validator.New(),
	}
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type graphErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send dispatches a text message and returns the provider message id.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	req := domain.OutboundMessageRequest{
		To:   strings.TrimSpace(to),
		Body: strings.TrimSpace(body),
	}
	if err := c.validator.Validate(&req); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	snap, err := c.snapshot(ctx)
	if err != nil {
		return "", err
	}

	payload := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               req.To,
		Type:             "text",
		Text:             textBody{Body: req.Body},
	}

	resp, err := c.post(ctx, "send", snap, "/messages", payload)
	if err != nil {
		return "", err
	}

	var out sendResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil || len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", &ProviderRejectedError{
			Op:         "send",
			StatusCode: resp.StatusCode(),
			Message:    "response missing message id",
		}
	}

	return out.Messages[0].ID, nil
}

type registerRequest struct {
	URL    string                `json:"url"`
	Fields []domain.WebhookField `json:"fields"`
}

// Register points the provider at the given callback URL. An empty field set
// subscribes to the default fields.
func (c *Client) Register(ctx context.Context, reg domain.WebhookRegistration) error {
	reg = normalizeRegistration(reg)
	if err := c.validator.Validate(&reg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	snap, err := c.snapshot(ctx)
	if err != nil {
		return err
	}

	payload := registerRequest{
		URL:    reg.CallbackURL,
		Fields: reg.SubscribedFields,
	}

	if _, err := c.post(ctx, "register webhook", snap, "/webhook", payload); err != nil {
		return err
	}

	c.mu.Lock()
	c.lastRegistration = &reg
	c.mu.Unlock()

	logger.Infof("Webhook registered: %s (fields: %v)", reg.CallbackURL, reg.SubscribedFields)

	return nil
}

// LastRegistration returns the last registration the provider accepted.
func (c *Client) LastRegistration() (domain.WebhookRegistration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastRegistration == nil {
		return domain.WebhookRegistration{}, false
	}

	reg := *c.lastRegistration
	reg.SubscribedFields = append([]domain.WebhookField(nil), reg.SubscribedFields...)
	return reg, true
}

func (c *Client) snapshot(ctx context.Context) (*credentials.Snapshot, error) {
	snap, err := c.credentials.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Credentials.EndpointID == "" || snap.Credentials.APIToken.IsZero() {
		return nil, ErrNotConfigured
	}
	return snap, nil
}

func (c *Client) post(ctx context.Context, op string, snap *credentials.Snapshot, path string, payload any) (*resty.Response, error) {
	url := snap.BaseURL + path
	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(snap.Credentials.APIToken.Reveal()).
		SetBody(payload).
		Post(url)

	if err != nil {
		return nil, &UnreachableError{Op: op, Err: err}
	}

	logger.Infof("WhatsApp %s request to %s completed in %v (status: %d)", op, url, time.Since(startTime), resp.StatusCode())

	if !resp.IsSuccess() {
		return nil, &ProviderRejectedError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Message:    rejectionMessage(resp),
		}
	}

	return resp, nil
}

func rejectionMessage(resp *resty.Response) string {
	var graphErr graphErrorResponse
	if err := json.Unmarshal(resp.Body(), &graphErr); err == nil && graphErr.Error.Message != "" {
		return graphErr.Error.Message
	}

	if body := strings.TrimSpace(resp.String()); body != "" {
		return body
	}

	return http.StatusText(resp.StatusCode())
}

func normalizeRegistration(reg domain.WebhookRegistration) domain.WebhookRegistration {
	reg.CallbackURL = strings.TrimSpace(reg.CallbackURL)

	if len(reg.SubscribedFields) == 0 {
		reg.SubscribedFields = domain.DefaultWebhookFields()
		return reg
	}

	seen := make(map[domain.WebhookField]bool, len(reg.SubscribedFields))
	fields := make([]domain.WebhookField, 0, len(reg.SubscribedFields))
	for _, f := range reg.SubscribedFields {
		f = domain.WebhookField(strings.TrimSpace(string(f)))
		if seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	reg.SubscribedFields = fields

	return reg
}
