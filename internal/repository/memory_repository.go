package repository

import (
	"context"
	"sync"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
)

// MemoryMessageRepository keeps the message feed in process memory. It is the
// default backend when no database is configured.
type MemoryMessageRepository struct {
	mu             sync.RWMutex
	messages       []domain.NormalizedMessage
	byID           map[string]int
	byConversation map[string][]int
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		byID:           make(map[string]int),
		byConversation: make(map[string][]int),
	}
}

func (r *MemoryMessageRepository) Append(ctx context.Context, msg domain.NormalizedMessage) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[msg.ID]; exists {
		return false, nil
	}

	idx := len(r.messages)
	r.messages = append(r.messages, msg)
	r.byID[msg.ID] = idx
	r.byConversation[msg.ConversationID] = append(r.byConversation[msg.ConversationID], idx)

	return true, nil
}

func (r *MemoryMessageRepository) UpdateStatus(ctx context.Context, id string, status domain.DeliveryStatus) (*domain.NormalizedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, nil
	}

	current := &r.messages[idx]
	if !current.DeliveryStatus.CanTransitionTo(status) {
		return nil, nil
	}

	current.DeliveryStatus = status
	updated := *current

	return &updated, nil
}

func (r *MemoryMessageRepository) ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.NormalizedMessage, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes := r.byConversation[conversationID]
	total := int64(len(indexes))

	start := (page - 1) * pageSize
	if start >= len(indexes) {
		return []domain.NormalizedMessage{}, total, nil
	}
	end := start + pageSize
	if end > len(indexes) {
		end = len(indexes)
	}

	out := make([]domain.NormalizedMessage, 0, end-start)
	for _, idx := range indexes[start:end] {
		out = append(out, r.messages[idx])
	}

	return out, total, nil
}

func (r *MemoryMessageRepository) Get(ctx context.Context, id string) (*domain.NormalizedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, nil
	}

	msg := r.messages[idx]
	return &msg, nil
}
