package inbound

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/pkg/validator"
)

// Normalizer flattens provider webhook payloads (entry -> changes -> value)
// into NormalizedMessage and status events. It performs no I/O.
type Normalizer struct {
	validator *validator.CustomValidator
	now       func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		validator: validator.New(),
		now:       time.Now,
	}
}

var defaultNormalizer = NewNormalizer()

// Normalize parses raw with the package default Normalizer.
func Normalize(raw []byte) (Result, error) {
	return defaultNormalizer.Normalize(raw)
}

type rawEntry struct {
	ID      string          `json:"id"`
	Changes json.RawMessage `json:"changes"`
}

type rawChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type rawValue struct {
	MessagingProduct string          `json:"messaging_product"`
	Messages         json.RawMessage `json:"messages"`
	Statuses         json.RawMessage `json:"statuses"`
}

type rawMessage struct {
	ID          string          `json:"id" validate:"required"`
	From        string          `json:"from" validate:"required"`
	Timestamp   unixTimestamp   `json:"timestamp"`
	Type        string          `json:"type" validate:"required"`
	Text        *rawText        `json:"text"`
	Image       *rawMedia       `json:"image"`
	Video       *rawMedia       `json:"video"`
	Audio       *rawMedia       `json:"audio"`
	Document    *rawMedia       `json:"document"`
	Sticker     *rawMedia       `json:"sticker"`
	Interactive *rawInteractive `json:"interactive"`
	Button      *rawButton      `json:"button"`
}

type rawText struct {
	Body string `json:"body"`
}

type rawMedia struct {
	ID       string `json:"id"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

type rawInteractive struct {
	Type        string     `json:"type"`
	ButtonReply *rawChoice `json:"button_reply"`
	ListReply   *rawChoice `json:"list_reply"`
}

type rawChoice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type rawButton struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

type rawStatus struct {
	ID          string        `json:"id" validate:"required"`
	Status      string        `json:"status" validate:"required"`
	Timestamp   unixTimestamp `json:"timestamp"`
	RecipientID string        `json:"recipient_id"`
}

// unixTimestamp accepts the provider's unix seconds as a string or a number.
type unixTimestamp int64

func (t *unixTimestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*t = 0
		return nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q is not unix seconds", s)
	}

	*t = unixTimestamp(v)
	return nil
}

func (n *Normalizer) Normalize(raw []byte) (Result, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if envelope == nil {
		return Result{}, fmt.Errorf("%w: payload is null", ErrInvalidEnvelope)
	}

	entryRaw, ok := envelope["entry"]
	if !ok || isNull(entryRaw) {
		return Result{}, fmt.Errorf("%w: missing entry list", ErrInvalidEnvelope)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(entryRaw, &entries); err != nil {
		return Result{}, fmt.Errorf("%w: entry is not a list", ErrInvalidEnvelope)
	}

	p := &parse{normalizer: n, receivedAt: n.now().UTC()}
	for i, e := range entries {
		p.entry(fmt.Sprintf("entry[%d]", i), e)
	}

	return p.result, nil
}

// parse carries the state of one Normalize call.
type parse struct {
	normalizer *Normalizer
	receivedAt time.Time
	result     Result
}

func (p *parse) warn(path, format string, args ...any) {
	p.result.Warnings = append(p.result.Warnings, Malformed{
		Path:   path,
		Reason: fmt.Sprintf(format, args...),
	})
}

func (p *parse) entry(path string, raw json.RawMessage) {
	var e rawEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		p.warn(path, "entry is not an object")
		return
	}

	changes, ok := p.list(path+".changes", e.Changes)
	if !ok {
		return
	}

	for j, c := range changes {
		p.change(fmt.Sprintf("%s.changes[%d]", path, j), c)
	}
}

func (p *parse) change(path string, raw json.RawMessage) {
	var c rawChange
	if err := json.Unmarshal(raw, &c); err != nil {
		p.warn(path, "change is not an object")
		return
	}
	if isNull(c.Value) {
		p.warn(path, "change has no value")
		return
	}

	var v rawValue
	if err := json.Unmarshal(c.Value, &v); err != nil {
		p.warn(path+".value", "value is not an object")
		return
	}
	if isNull(v.Messages) && isNull(v.Statuses) {
		p.warn(path+".value", "value carries neither messages nor statuses")
		return
	}

	if !isNull(v.Messages) {
		if messages, ok := p.list(path+".value.messages", v.Messages); ok {
			for k, m := range messages {
				p.message(fmt.Sprintf("%s.value.messages[%d]", path, k), m)
			}
		}
	}

	if !isNull(v.Statuses) {
		if statuses, ok := p.list(path+".value.statuses", v.Statuses); ok {
			for k, s := range statuses {
				p.status(fmt.Sprintf("%s.value.statuses[%d]", path, k), s)
			}
		}
	}
}

func (p *parse) message(path string, raw json.RawMessage) {
	var m rawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		p.warn(path, "undecodable message: %v", err)
		return
	}
	if err := p.normalizer.validator.Validate(&m); err != nil {
		p.warn(path, "%v", err)
		return
	}

	conversationID := domain.ConversationIDFor(m.From)
	if conversationID == "" {
		p.warn(path, "sender %q is not a phone number", m.From)
		return
	}

	content, ok := messageContent(m)
	if !ok {
		p.warn(path, "text message without body")
		return
	}

	p.result.Events = append(p.result.Events, NewMessage{Message: domain.NormalizedMessage{
		ID:             m.ID,
		ConversationID: conversationID,
		Content:        content,
		Timestamp:      p.timestamp(m.Timestamp),
		Channel:        domain.ChannelWhatsApp,
		Direction:      domain.DirectionInbound,
		DeliveryStatus: domain.StatusSent,
	}})
}

func (p *parse) status(path string, raw json.RawMessage) {
	var s rawStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		p.warn(path, "undecodable status: %v", err)
		return
	}
	if err := p.normalizer.validator.Validate(&s); err != nil {
		p.warn(path, "%v", err)
		return
	}

	status, ok := domain.ParseDeliveryStatus(s.Status)
	if !ok {
		p.warn(path, "unknown status %q", s.Status)
		return
	}

	p.result.Events = append(p.result.Events, StatusUpdate{
		MessageID:      s.ID,
		ConversationID: domain.ConversationIDFor(s.RecipientID),
		Status:         status,
		Timestamp:      p.timestamp(s.Timestamp),
	})
}

// list decodes a JSON array, warning when the value is absent or not a list.
func (p *parse) list(path string, raw json.RawMessage) ([]json.RawMessage, bool) {
	if isNull(raw) {
		p.warn(path, "missing list")
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.warn(path, "not a list")
		return nil, false
	}

	return items, true
}

func (p *parse) timestamp(ts unixTimestamp) time.Time {
	if ts <= 0 {
		return p.receivedAt
	}
	return time.Unix(int64(ts), 0).UTC()
}

func messageContent(m rawMessage) (string, bool) {
	switch m.Type {
	case "text":
		if m.Text == nil || strings.TrimSpace(m.Text.Body) == "" {
			return "", false
		}
		return m.Text.Body, true
	case "image", "video", "audio", "document", "sticker":
		if media := m.media(); media != nil {
			if media.Caption != "" {
				return media.Caption, true
			}
			if media.Filename != "" {
				return media.Filename, true
			}
		}
	case "interactive":
		if m.Interactive != nil {
			if r := m.Interactive.ButtonReply; r != nil && r.Title != "" {
				return r.Title, true
			}
			if r := m.Interactive.ListReply; r != nil && r.Title != "" {
				return r.Title, true
			}
		}
	case "button":
		if m.Button != nil && m.Button.Text != "" {
			return m.Button.Text, true
		}
	}

	return "[" + m.Type + "]", true
}

func (m rawMessage) media() *rawMedia {
	switch m.Type {
	case "image":
		return m.Image
	case "video":
		return m.Video
	case "audio":
		return m.Audio
	case "document":
		return m.Document
	case "sticker":
		return m.Sticker
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
