package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateError      State = "error"
)

type ConnectionStatus struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Consumer connects to a live message stream. Each Subscribe call owns its
// own connection.
type Consumer struct {
	url            string
	httpClient     *http.Client
	header         http.Header
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type Option func(*Consumer)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Consumer) {
		c.httpClient = client
	}
}

// WithHeader adds a header to every connection request.
func WithHeader(key, value string) Option {
	return func(c *Consumer) {
		c.header.Add(key, value)
	}
}

// WithBackoff sets the reconnect delay bounds. The delay doubles after each
// failed attempt and resets once a connection opens.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Consumer) {
		c.initialBackoff = initial
		c.maxBackoff = maxDelay
	}
}

func NewConsumer(url string, opts ...Option) *Consumer {
	c := &Consumer{
		url:            url,
		httpClient:     &http.Client{},
		header:         make(http.Header),
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type (
	MessageHandler func(domain.NormalizedMessage)
	StatusHandler  func(ConnectionStatus)
)

// Subscription is a running connection loop. Callbacks run on the
// subscription's own goroutine, one at a time.
type Subscription struct {
	ID string

	consumer  *Consumer
	onMessage MessageHandler
	onStatus  StatusHandler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	status atomic.Pointer[ConnectionStatus]
}

// Subscribe starts connecting in the background and returns immediately.
// Either handler may be nil.
func (c *Consumer) Subscribe(ctx context.Context, onMessage MessageHandler, onStatus StatusHandler) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	s := &Subscription{
		ID:        uuid.NewString(),
		consumer:  c,
		onMessage: onMessage,
		onStatus:  onStatus,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.status.Store(&ConnectionStatus{State: StateIdle})

	go s.run()

	return s
}

// Cancel closes the connection and waits for the loop to exit. No callback
// runs after Cancel returns. It must not be called from inside a callback;
// cancel the context passed to Subscribe instead.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once the loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Status() ConnectionStatus {
	return *s.status.Load()
}

func (s *Subscription) run() {
	defer close(s.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.consumer.initialBackoff
	b.MaxInterval = s.consumer.maxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		opened, err := s.connect()
		if s.ctx.Err() != nil {
			return
		}

		if opened {
			b.Reset()
			s.setStatus(ConnectionStatus{State: StateClosed, Reason: reason(err)})
		} else {
			s.setStatus(ConnectionStatus{State: StateError, Reason: reason(err)})
		}

		wait := b.NextBackOff()
		logger.Debugf("Stream subscription %s reconnecting in %v", s.ID, wait)

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect opens one connection and reads it until it ends. opened reports
// whether the stream reached the open state.
func (s *Subscription) connect() (opened bool, err error) {
	s.setStatus(ConnectionStatus{State: StateConnecting})

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.consumer.url, nil)
	if err != nil {
		return false, err
	}
	for key, values := range s.consumer.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.consumer.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/event-stream" {
		return false, fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	s.setStatus(ConnectionStatus{State: StateOpen})

	reader := newEventReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return true, nil
			}
			return true, err
		}

		s.handleEvent(ev)
	}
}

func (s *Subscription) handleEvent(ev Event) {
	if ev.Event != "" && ev.Event != "message" {
		return
	}

	var msg domain.NormalizedMessage
	if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
		s.warn(fmt.Sprintf("undecodable message: %v", err))
		return
	}
	if msg.ID == "" {
		s.warn("message without id")
		return
	}

	if s.ctx.Err() != nil || s.onMessage == nil {
		return
	}
	s.onMessage(msg)
}

// warn reports a dropped event without changing the connection state.
func (s *Subscription) warn(detail string) {
	logger.Warnf("Stream subscription %s dropped event: %s", s.ID, detail)

	if s.ctx.Err() != nil || s.onStatus == nil {
		return
	}
	s.onStatus(ConnectionStatus{State: StateError, Reason: detail})
}

func (s *Subscription) setStatus(status ConnectionStatus) {
	if s.ctx.Err() != nil {
		return
	}

	s.status.Store(&status)
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

func reason(err error) string {
	if err == nil {
		return "stream ended"
	}
	return err.Error()
}
