package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

// RecordName is the fixed key the provider settings are persisted under.
const RecordName = "whatsappConfig"

// recordStore is the durable backend for named records. GetRecord returns
// nil data and a nil error when the record does not exist.
type recordStore interface {
	GetRecord(ctx context.Context, name string) ([]byte, error)
	PutRecord(ctx context.Context, name string, data []byte) error
}

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("credential storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Snapshot is the last loaded or saved credential set together with the
// values derived from it. Snapshots are immutable once published.
type Snapshot struct {
	Credentials domain.ProviderCredentials
	BaseURL     string
}

type Store struct {
	records    recordStore
	apiURL     string
	apiVersion string

	mu      sync.Mutex
	loaded  atomic.Bool
	current atomic.Pointer[Snapshot]
}

func NewStore(records recordStore, cfg environments.WhatsAppConfig) *Store {
	return &Store{
		records:    records,
		apiURL:     cfg.APIURL,
		apiVersion: cfg.APIVersion,
	}
}

// record is the persisted shape. It is separate from ProviderCredentials
// because the domain type masks the token when encoded.
type record struct {
	EndpointID        string `json:"endpointId"`
	APIToken          string `json:"apiToken"`
	WebhookURL        string `json:"webhookUrl"`
	VerificationToken string `json:"verificationToken"`
}

func (s *Store) Save(ctx context.Context, creds domain.ProviderCredentials) error {
	data, err := json.Marshal(record{
		EndpointID:        creds.EndpointID,
		APIToken:          creds.APIToken.Reveal(),
		WebhookURL:        creds.WebhookURL,
		VerificationToken: creds.VerificationToken,
	})
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.records.PutRecord(ctx, RecordName, data); err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	s.refresh(&creds)
	logger.Infof("WhatsApp credentials saved (endpointId=%s, apiToken=%s)", creds.EndpointID, creds.APIToken)

	return nil
}

// Load reads the persisted credentials and refreshes the snapshot.
// It returns nil, nil when nothing was ever saved.
func (s *Store) Load(ctx context.Context) (*domain.ProviderCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) (*domain.ProviderCredentials, error) {
	data, err := s.records.GetRecord(ctx, RecordName)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	if data == nil {
		s.refresh(nil)
		return nil, nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &StorageError{Op: "decode", Err: err}
	}

	creds := domain.ProviderCredentials{
		EndpointID:        rec.EndpointID,
		APIToken:          domain.Secret(rec.APIToken),
		WebhookURL:        rec.WebhookURL,
		VerificationToken: rec.VerificationToken,
	}
	s.refresh(&creds)

	return &creds, nil
}

// Snapshot returns the cached credentials, loading them from the backend on
// first use. A nil snapshot means the provider is not configured.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.loaded.Load() {
		return s.current.Load(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded.Load() {
		if _, err := s.loadLocked(ctx); err != nil {
			return nil, err
		}
	}

	return s.current.Load(), nil
}

func (s *Store) refresh(creds *domain.ProviderCredentials) {
	if creds == nil {
		s.current.Store(nil)
	} else {
		s.current.Store(&Snapshot{
			Credentials: *creds,
			BaseURL:     BaseURL(s.apiURL, s.apiVersion, creds.EndpointID),
		})
	}
	s.loaded.Store(true)
}

// BaseURL builds the provider endpoint root, e.g.
// https://graph.facebook.com/v17.0/{endpointId}.
func BaseURL(apiURL, apiVersion, endpointID string) string {
	parts := []string{strings.TrimRight(apiURL, "/")}
	if v := strings.Trim(apiVersion, "/"); v != "" {
		parts = append(parts, v)
	}
	parts = append(parts, url.PathEscape(endpointID))
	return strings.Join(parts, "/")
}
