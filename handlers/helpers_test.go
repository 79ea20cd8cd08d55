package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/internal/credentials"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/internal/repository"
	"github.com/onurcolak/crm-whatsapp-service/internal/service"
	"github.com/onurcolak/crm-whatsapp-service/internal/stream"
	"github.com/onurcolak/crm-whatsapp-service/pkg/response"
	validatorpkg "github.com/onurcolak/crm-whatsapp-service/pkg/validator"
	"github.com/onurcolak/crm-whatsapp-service/pkg/whatsapp"
)

const testVerificationToken = "verify-me"

type providerCall struct {
	Path string
	Auth string
	Body string
}

type providerLog struct {
	mu    sync.Mutex
	calls []providerCall
}

func (p *providerLog) all() []providerCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]providerCall(nil), p.calls...)
}

// testApp wires the real service stack against a fake provider.
type testApp struct {
	echo     *echo.Echo
	service  *service.MessagingService
	store    *credentials.Store
	repo     *repository.MemoryMessageRepository
	hub      *stream.Hub
	provider *httptest.Server
	calls    *providerLog
}

func newTestApp(t *testing.T, status int, body string) *testApp {
	t.Helper()

	calls := &providerLog{}
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		calls.mu.Lock()
		calls.calls = append(calls.calls, providerCall{
			Path: r.URL.Path,
			Auth: r.Header.Get("Authorization"),
			Body: string(raw),
		})
		calls.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(provider.Close)

	cfg := environments.WhatsAppConfig{APIURL: provider.URL, APIVersion: "v17.0"}
	store := credentials.NewStore(credentials.NewFileStore(t.TempDir()), cfg)
	repo := repository.NewMemoryMessageRepository()
	hub := stream.NewHub(8)

	svc := service.NewMessagingService(whatsapp.NewClient(cfg, store), store, repo, hub)

	e := echo.New()
	e.Validator = validatorpkg.New()

	return &testApp{
		echo:     e,
		service:  svc,
		store:    store,
		repo:     repo,
		hub:      hub,
		provider: provider,
		calls:    calls,
	}
}

func (a *testApp) configure(t *testing.T) {
	t.Helper()

	err := a.store.Save(context.Background(), domain.ProviderCredentials{
		EndpointID:        "123",
		APIToken:          domain.Secret("test-token-abcdef"),
		VerificationToken: testVerificationToken,
	})
	if err != nil {
		t.Fatalf("failed to save credentials: %v", err)
	}
}

func (a *testApp) newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	return a.echo.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()

	var resp response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body %q: %v", rec.Body.String(), err)
	}
	if resp.Success {
		t.Fatalf("expected Success=false, got true")
	}
	return resp
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
