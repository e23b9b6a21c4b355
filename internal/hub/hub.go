package hub

import (
	"sync"
	"time"

	"github.com/jorikfon/JollyKite-sub001/internal/metrics"
	"github.com/jorikfon/JollyKite-sub001/internal/models"
)

const subscriberBuffer = 16

// Event is one wind update pushed to connected stream clients.
type Event struct {
	Type      string              `json:"type"`
	Data      models.WindSample   `json:"data"`
	Trend     *models.TrendWindow `json:"trend,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Hub fans measurements out to stream subscribers. A slow subscriber never
// blocks a broadcast; once its buffer is full, events for it are dropped.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]chan Event
	nextID int64
}

func New() *Hub {
	return &Hub{subs: make(map[int64]chan Event)}
}

// Subscribe registers a new listener. The caller must call Unsubscribe with
// the returned id when the client disconnects.
func (h *Hub) Subscribe() (int64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	metrics.StreamSubscribers.Set(float64(len(h.subs)))
	return id, ch
}

func (h *Hub) Unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
	metrics.StreamSubscribers.Set(float64(len(h.subs)))
}

// Broadcast delivers the event to every subscriber that has buffer room.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	metrics.BroadcastEventsTotal.Inc()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
