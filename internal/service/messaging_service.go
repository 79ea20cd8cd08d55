package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onurcolak/crm-whatsapp-service/internal/credentials"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/internal/inbound"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
	"github.com/onurcolak/crm-whatsapp-service/pkg/whatsapp"
)

// ErrWebhookVerification is returned when a provider verification handshake
// does not match the saved verification token.
var ErrWebhookVerification = errors.New("webhook verification failed")

// Small internal interfaces so we can test without touching the provider, disk or DB.
type dispatcher interface {
	Send(ctx context.Context, to, body string) (string, error)
	Register(ctx context.Context, reg domain.WebhookRegistration) error
	LastRegistration() (domain.WebhookRegistration, bool)
}

type credentialStore interface {
	Save(ctx context.Context, creds domain.ProviderCredentials) error
	Snapshot(ctx context.Context) (*credentials.Snapshot, error)
}

type messageRepository interface {
	Append(ctx context.Context, msg domain.NormalizedMessage) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.DeliveryStatus) (*domain.NormalizedMessage, error)
	ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.NormalizedMessage, int64, error)
}

type publisher interface {
	Publish(msg domain.NormalizedMessage)
}

// MessagingService is the entry point the CRM uses for everything WhatsApp:
// configuration, sending, webhook intake and the conversation feed.
type MessagingService struct {
	dispatcher  dispatcher
	credentials credentialStore
	repo        messageRepository
	publisher   publisher
	normalizer  *inbound.Normalizer
	validator   *validator.CustomValidator
	now         func() time.Time
}

func NewMessagingService(
	dispatcher dispatcher,
	store credentialStore,
	repo messageRepository,
	publisher publisher,
) *MessagingService {
	return &MessagingService{
		dispatcher:  dispatcher,
		credentials: store,
		repo:        repo,
		publisher:   publisher,
		normalizer:  inbound.NewNormalizer(),
		validator:   validator.New(),
		now:         time.Now,
	}
}

type SaveConfigResult struct {
	WebhookRegistered bool `json:"webhookRegistered"`
}

// SaveConfig validates and persists the provider settings, then registers the
// webhook when a callback URL is present. A registration failure is returned
// after the settings have already been saved. An empty API token keeps the
// token that is currently stored.
func (s *MessagingService) SaveConfig(ctx context.Context, creds domain.ProviderCredentials) (SaveConfigResult, error) {
	creds = creds.Trimmed()

	if creds.APIToken.IsZero() {
		snap, err := s.credentials.Snapshot(ctx)
		if err != nil {
			return SaveConfigResult{}, err
		}
		if snap != nil {
			creds.APIToken = snap.Credentials.APIToken
		}
	}

	if err := s.validator.Validate(&creds); err != nil {
		return SaveConfigResult{}, fmt.Errorf("%w: %w", whatsapp.ErrInvalidRequest, err)
	}

	if err := s.credentials.Save(ctx, creds); err != nil {
		return SaveConfigResult{}, err
	}

	if creds.WebhookURL == "" {
		return SaveConfigResult{}, nil
	}

	reg := domain.WebhookRegistration{CallbackURL: creds.WebhookURL}
	if err := s.dispatcher.Register(ctx, reg); err != nil {
		logger.Warnf("Configuration saved but webhook registration failed: %v", err)
		return SaveConfigResult{}, fmt.Errorf("configuration saved but webhook registration failed: %w", err)
	}

	return SaveConfigResult{WebhookRegistered: true}, nil
}

// SendMessage dispatches a text message and records it in the conversation
// feed with status sent. Later provider status events advance it.
func (s *MessagingService) SendMessage(ctx context.Context, to, body string) (*domain.NormalizedMessage, error) {
	providerID, err := s.dispatcher.Send(ctx, to, body)
	if err != nil {
		return nil, err
	}

	msg := domain.NormalizedMessage{
		ID:             providerID,
		ConversationID: domain.ConversationIDFor(to),
		Content:        strings.TrimSpace(body),
		Timestamp:      s.now().UTC(),
		Channel:        domain.ChannelWhatsApp,
		Direction:      domain.DirectionOutbound,
		DeliveryStatus: domain.StatusSent,
	}

	// The provider already accepted the message, so a feed failure is not
	// reported as a send failure.
	inserted, err := s.repo.Append(ctx, msg)
	if err != nil {
		logger.Errorf("Failed to record outbound message %s: %v", providerID, err)
		return &msg, nil
	}
	if inserted {
		s.publisher.Publish(msg)
	}

	logger.Infof("Message %s sent to conversation %s", providerID, msg.ConversationID)

	return &msg, nil
}

// TestConnection sends a message without recording it anywhere.
func (s *MessagingService) TestConnection(ctx context.Context, to, body string) (string, error) {
	return s.dispatcher.Send(ctx, to, body)
}

func (s *MessagingService) RegisterWebhook(ctx context.Context, reg domain.WebhookRegistration) error {
	return s.dispatcher.Register(ctx, reg)
}

type IngestResult struct {
	NewMessages   int                 `json:"newMessages"`
	StatusUpdates int                 `json:"statusUpdates"`
	Ignored       int                 `json:"ignored"`
	Warnings      []inbound.Malformed `json:"warnings,omitempty"`
}

// IngestWebhook normalizes a provider payload, stores new messages, applies
// status updates and publishes every message that changed. Storage errors
// stop processing so the provider redelivers; replays are deduplicated.
func (s *MessagingService) IngestWebhook(ctx context.Context, raw []byte) (IngestResult, error) {
	res, err := s.normalizer.Normalize(raw)
	if err != nil {
		return IngestResult{}, err
	}

	out := IngestResult{Warnings: res.Warnings}
	for _, w := range res.Warnings {
		logger.Warnf("Skipped malformed webhook item at %s: %s", w.Path, w.Reason)
	}

	for _, ev := range res.Events {
		switch e := ev.(type) {
		case inbound.NewMessage:
			inserted, err := s.repo.Append(ctx, e.Message)
			if err != nil {
				return out, fmt.Errorf("failed to store message %s: %w", e.Message.ID, err)
			}
			if !inserted {
				out.Ignored++
				continue
			}
			out.NewMessages++
			s.publisher.Publish(e.Message)

		case inbound.StatusUpdate:
			updated, err := s.repo.UpdateStatus(ctx, e.MessageID, e.Status)
			if err != nil {
				return out, fmt.Errorf("failed to update status of message %s: %w", e.MessageID, err)
			}
			if updated == nil {
				logger.Debugf("Ignored status %s for message %s", e.Status, e.MessageID)
				out.Ignored++
				continue
			}
			out.StatusUpdates++
			s.publisher.Publish(*updated)
		}
	}

	logger.Infof("Webhook processed: %d new messages, %d status updates, %d ignored, %d warnings",
		out.NewMessages, out.StatusUpdates, out.Ignored, len(out.Warnings))

	return out, nil
}

// ConversationMessages returns a page of a conversation. The id may be given
// in any phone number format.
func (s *MessagingService) ConversationMessages(ctx context.Context, conversationID string, page, pageSize int) ([]domain.NormalizedMessage, int64, error) {
	return s.repo.ListByConversation(ctx, domain.ConversationIDFor(conversationID), page, pageSize)
}

// ConfigView is the safe-to-display form of the saved configuration.
type ConfigView struct {
	Configured           bool                        `json:"configured"`
	EndpointID           string                      `json:"endpointId,omitempty"`
	APIToken             domain.Secret               `json:"apiToken,omitempty"`
	WebhookURL           string                      `json:"webhookUrl,omitempty"`
	VerificationTokenSet bool                        `json:"verificationTokenSet"`
	BaseURL              string                      `json:"baseUrl,omitempty"`
	Webhook              *domain.WebhookRegistration `json:"webhook,omitempty"`
}

func (s *MessagingService) CurrentConfig(ctx context.Context) (ConfigView, error) {
	snap, err := s.credentials.Snapshot(ctx)
	if err != nil {
		return ConfigView{}, err
	}
	if snap == nil {
		return ConfigView{Configured: false}, nil
	}

	view := ConfigView{
		Configured:           true,
		EndpointID:           snap.Credentials.EndpointID,
		APIToken:             snap.Credentials.APIToken,
		WebhookURL:           snap.Credentials.WebhookURL,
		VerificationTokenSet: snap.Credentials.VerificationToken != "",
		BaseURL:              snap.BaseURL,
	}
	if reg, ok := s.dispatcher.LastRegistration(); ok {
		view.Webhook = &reg
	}

	return view, nil
}

// VerifyWebhook answers the provider's subscription handshake. It returns the
// challenge to echo back when mode and token match.
func (s *MessagingService) VerifyWebhook(ctx context.Context, mode, token, challenge string) (string, error) {
	if mode != "subscribe" {
		return "", ErrWebhookVerification
	}

	snap, err := s.credentials.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	if snap == nil || snap.Credentials.VerificationToken == "" {
		return "", ErrWebhookVerification
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(snap.Credentials.VerificationToken)) != 1 {
		return "", ErrWebhookVerification
	}

	return challenge, nil
}
