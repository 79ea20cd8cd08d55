package inbound

import (
	"errors"
	"time"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
)

// ErrInvalidEnvelope means the payload is not a provider webhook at all.
// Problems below the top level are reported as warnings instead.
var ErrInvalidEnvelope = errors.New("invalid webhook envelope")

// Event is one instruction extracted from a webhook payload: either a
// NewMessage or a StatusUpdate.
type Event interface {
	isEvent()
}

type NewMessage struct {
	Message domain.NormalizedMessage
}

type StatusUpdate struct {
	MessageID      string
	ConversationID string
	Status         domain.DeliveryStatus
	Timestamp      time.Time
}

func (NewMessage) isEvent()   {}
func (StatusUpdate) isEvent() {}

// Malformed records a part of the payload that was skipped.
type Malformed struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (m Malformed) String() string {
	return m.Path + ": " + m.Reason
}

type Result struct {
	Events   []Event
	Warnings []Malformed
}

// Messages returns the NewMessage events in payload order.
func (r Result) Messages() []domain.NormalizedMessage {
	var out []domain.NormalizedMessage
	for _, ev := range r.Events {
		if m, ok := ev.(NewMessage); ok {
			out = append(out, m.Message)
		}
	}
	return out
}

// StatusUpdates returns the StatusUpdate events in payload order.
func (r Result) StatusUpdates() []StatusUpdate {
	var out []StatusUpdate
	for _, ev := range r.Events {
		if s, ok := ev.(StatusUpdate); ok {
			out = append(out, s)
		}
	}
	return out
}
