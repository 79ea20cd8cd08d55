package domain

import (
	"strings"
	"time"
	"unicode"
)

type Channel string

const ChannelWhatsApp Channel = "whatsapp"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

// ParseDeliveryStatus maps a provider status string onto a DeliveryStatus.
func ParseDeliveryStatus(raw string) (DeliveryStatus, bool) {
	switch DeliveryStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusSent:
		return StatusSent, true
	case StatusDelivered:
		return StatusDelivered, true
	case StatusRead:
		return StatusRead, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

func (s DeliveryStatus) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// CanTransitionTo reports whether a message in status s may move to next.
// Statuses only move forward (sent -> delivered -> read); failed is reachable
// from sent or delivered. Read and failed are terminal.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s == StatusRead || s == StatusFailed {
		return false
	}
	if next == StatusFailed {
		return s == StatusSent || s == StatusDelivered
	}
	return next.rank() > s.rank()
}

// NormalizedMessage is the provider-independent message record fed to the UI.
type NormalizedMessage struct {
	ID             string         `db:"id" json:"id"`
	ConversationID string         `db:"conversation_id" json:"conversationId"`
	Content        string         `db:"content" json:"content"`
	Timestamp      time.Time      `db:"message_timestamp" json:"timestamp"`
	Channel        Channel        `db:"channel" json:"channel"`
	Direction      Direction      `db:"direction" json:"direction"`
	DeliveryStatus DeliveryStatus `db:"delivery_status" json:"deliveryStatus"`
}

type OutboundMessageRequest struct {
	To   string `json:"to" validate:"required,intlphone"`
	Body string `json:"body" validate:"required"`
}

// ConversationIDFor derives the conversation key from a phone number so that
// inbound and outbound messages for the same counterpart share one thread.
func ConversationIDFor(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}
