package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/internal/credentials"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
)

type fakeCredentials struct {
	snap *credentials.Snapshot
	err  error
}

func (f *fakeCredentials) Snapshot(ctx context.Context) (*credentials.Snapshot, error) {
	return f.snap, f.err
}

func configuredFor(baseURL string) *fakeCredentials {
	return &fakeCredentials{snap: &credentials.Snapshot{
		Credentials: domain.ProviderCredentials{
			EndpointID: "123",
			APIToken:   domain.Secret("secret-token"),
		},
		BaseURL: baseURL,
	}}
}

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

type providerRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (p *providerRecorder) all() []recordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedRequest(nil), p.requests...)
}

func newProvider(t *testing.T, status int, body string) (*httptest.Server, *providerRecorder) {
	t.Helper()

	rec := &providerRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(raw, &decoded)

		rec.mu.Lock()
		rec.requests = append(rec.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   decoded,
		})
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, rec
}

func TestSend_Success(t *testing.T) {
	srv, requests := newProvider(t, http.StatusOK, `{"messaging_product":"whatsapp","messages":[{"id":"wamid.ABC"}]}`)
	client := NewClient(environments.WhatsAppConfig{}, configuredFor(srv.URL+"/v17.0/123"))

	id, err := client.Send(context.Background(), "+15551234567", "hi")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if id != "wamid.ABC" {
		t.Fatalf("expected provider id wamid.ABC, got %q", id)
	}

	if len(requests.all()) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(requests.all()))
	}
	req := requests.all()[0]

	if req.Method != http.MethodPost || req.Path != "/v17.0/123/messages" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret-token" {
		t.Fatalf("unexpected Authorization header %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected Content-Type %q", got)
	}

	if req.Body["messaging_product"] != "whatsapp" ||
		req.Body["recipient_type"] != "individual" ||
		req.Body["to"] != "+15551234567" ||
		req.Body["type"] != "text" {
		t.Fatalf("unexpected envelope %+v", req.Body)
	}
	text, ok := req.Body["text"].(map[string]any)
	if !ok || text["body"] != "hi" {
		t.Fatalf("unexpected text body %+v", req.Body["text"])
	}
}

func TestSend_NotConfiguredMakesNoCalls(t *testing.T) {
	srv, requests := newProvider(t, http.StatusOK, `{}`)
	_ = srv

	client := NewClient(environments.WhatsAppConfig{}, &fakeCredentials{})

	_, err := client.Send(context.Background(), "+15551234567", "hi")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if len(requests.all()) != 0 {
		t.Fatalf("expected zero requests, got %d", len(requests.all()))
	}
}

func TestSend_InvalidRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := NewClient(environments.WhatsAppConfig{}, configuredFor(srv.URL))

	cases := []struct {
		name, to, body, field string
	}{
		{"empty recipient", "", "hi", "to"},
		{"not a phone number", "call me", "hi", "to"},
		{"blank body", "+15551234567", "   ", "body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Send(context.Background(), tc.to, tc.body)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}

			var ve *validator.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *validator.ValidationError in chain, got %v", err)
			}
			if _, ok := ve.Errors[tc.field]; !ok {
				t.Fatalf("expected error for field %q, got %+v", tc.field, ve.Errors)
			}
		})
	}

	if calls.Load() != 0 {
		t.Fatalf("expected no provider calls, got %d", calls.Load())
	}
}

func TestSend_ProviderRejected(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "graph error",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`,
			message: "Invalid OAuth access token.",
		},
		{
			name:    "plain body",
			status:  http.StatusBadGateway,
			body:    `upstream failure`,
			message: "upstream failure",
		},
		{
			name:    "empty body",
			status:  http.StatusTooManyRequests,
			body:    ``,
			message: http.StatusText(http.StatusTooManyRequests),
		},
		{
			name:    "success without id",
			status:  http.StatusOK,
			body:    `{"messages":[]}`,
			message: "response missing message id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newProvider(t, tc.status, tc.body)
			client := NewClient(environments.WhatsAppConfig{}, configuredFor(srv.URL))

			_, err := client.Send(context.Background(), "15551234567", "hi")

			var pr *ProviderRejectedError
			if !errors.As(err, &pr) {
				t.Fatalf("expected *ProviderRejectedError, got %v", err)
			}
			if pr.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, pr.StatusCode)
			}
			if pr.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, pr.Message)
			}
		})
	}
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(environments.WhatsAppConfig{}, configuredFor(baseURL))

	_, err := client.Send(context.Background(), "15551234567", "hi")

	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnreachableError, got %v", err)
	}
}

func TestSend_StorageErrorPassesThrough(t *testing.T) {
	storageErr := &credentials.StorageError{Op: "load", Err: errors.New("boom")}
	client := NewClient(environments.WhatsAppConfig{}, &fakeCredentials{err: storageErr})

	_, err := client.Send(context.Background(), "15551234567", "hi")

	var se *credentials.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *credentials.StorageError, got %v", err)
	}
}

func TestRegister_Success(t *testing.T) {
	srv, requests := newProvider(t, http.StatusOK, `{"success":true}`)
	client := NewClient(environments.WhatsAppConfig{}, configuredFor(srv.URL+"/v17.0/123"))

	if _, ok := client.LastRegistration(); ok {
		t.Fatalf("expected no registration before Register")
	}

	reg := domain.WebhookRegistration{CallbackURL: "https://x/cb"}
	if err := client.Register(context.Background(), reg); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if len(requests.all()) != 1 {
		t.Fatalf("expected one request, got %d", len(requests.all()))
	}
	req := requests.all()[0]
	if req.Path != "/v17.0/123/webhook" {
		t.Fatalf("unexpected path %q", req.Path)
	}
	if req.Body["url"] != "https://x/cb" {
		t.Fatalf("unexpected url %v", req.Body["url"])
	}
	fields, _ := req.Body["fields"].([]any)
	if len(fields) != 2 || fields[0] != "messages" || fields[1] != "message_status" {
		t.Fatalf("expected default fields, got %v", req.Body["fields"])
	}

	last, ok := client.LastRegistration()
	if !ok || last.CallbackURL != "https://x/cb" || len(last.SubscribedFields) != 2 {
		t.Fatalf("unexpected last registration %+v", last)
	}
}

func TestRegister_IsIdempotent(t *testing.T) {
	srv, requests := newProvider(t, http.StatusOK, `{"success":true}`)
	client := NewClient(environments.WhatsAppConfig{}, configuredFor(srv.URL))

	reg := domain.WebhookRegistration{
		CallbackURL:      "https://x/cb",
		SubscribedFields: []domain.WebhookField{domain.FieldMessages, domain.FieldMessages},
	}
	for i := 0; i < 2; i++ {
		if err := client.Register(context.Background(), reg); err != nil {
			t.Fatalf("Register #%d returned error: %v", i+1, err)
		}
	}

	for _, req := range requests.all() {
		fields, _ := req.Body["fields"].([]any)
		if len(fields) != 1 || fields[0] != "messages" {
			t.Fatalf("expected deduplicated fields, got %v", req.Body["fields"])
		}
	}
}

func TestRegister_Validation(t *testing.T) {
	srv, requests := newProvider(t, http.StatusOK, `{}`)
	client := NewClient(environments.WhatsAppConfig{}, configuredFor(srv.URL))

	cases := []domain.WebhookRegistration{
		{CallbackURL: ""},
		{CallbackURL: "not a url"},
		{CallbackURL: "https://x/cb", SubscribedFields: []domain.WebhookField{"messages", "calls"}},
	}

	for _, reg := range cases {
		if err := client.Register(context.Background(), reg); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", reg, err)
		}
	}
	if len(requests.all()) != 0 {
		t.Fatalf("expected no provider calls, got %d", len(requests.all()))
	}
}

func TestRegister_RejectedKeepsPreviousRegistration(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":{"message":"bad callback"}}`))
	}))
	defer srv.Close()

	client := NewClient(environments.WhatsAppConfig{}, configuredFor(srv.URL))

	if err := client.Register(context.Background(), domain.WebhookRegistration{CallbackURL: "https://x/one"}); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	status.Store(http.StatusBadRequest)
	err := client.Register(context.Background(), domain.WebhookRegistration{CallbackURL: "https://x/two"})

	var pr *ProviderRejectedError
	if !errors.As(err, &pr) || pr.StatusCode != http.StatusBadRequest || pr.Message != "bad callback" {
		t.Fatalf("expected 400 ProviderRejectedError, got %v", err)
	}

	last, _ := client.LastRegistration()
	if last.CallbackURL != "https://x/one" {
		t.Fatalf("expected the accepted registration to be kept, got %q", last.CallbackURL)
	}
}

func TestRegister_NotConfigured(t *testing.T) {
	client := NewClient(environments.WhatsAppConfig{}, &fakeCredentials{})

	err := client.Register(context.Background(), domain.WebhookRegistration{CallbackURL: "https://x/cb"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
