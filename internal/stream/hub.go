package stream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

const defaultClientBuffer = 64

// Hub fans messages out to connected stream clients. Publish never blocks:
// a client whose buffer is full misses the message.
type Hub struct {
	buffer int

	mu      sync.RWMutex
	clients map[string]chan domain.NormalizedMessage
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Hub{
		buffer:  buffer,
		clients: make(map[string]chan domain.NormalizedMessage),
	}
}

// Subscribe registers a client. The returned unsubscribe func closes the
// channel and is safe to call more than once.
func (h *Hub) Subscribe() (string, <-chan domain.NormalizedMessage, func()) {
	id := uuid.NewString()
	ch := make(chan domain.NormalizedMessage, h.buffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()

	logger.Debugf("Stream client %s connected", id)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, id)
			close(ch)
			h.mu.Unlock()

			logger.Debugf("Stream client %s disconnected", id)
		})
	}

	return id, ch, unsubscribe
}

func (h *Hub) Publish(msg domain.NormalizedMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			logger.Warnf("Stream client %s is too slow, dropped message %s", id, msg.ID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
