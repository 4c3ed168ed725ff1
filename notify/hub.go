package notify

import "sync"

// streamBuffer is how many events a stream may fall behind before it is dropped
const streamBuffer = 16

// Hub fans events out to the server-sent-event streams of each user
type Hub struct {
	mu      sync.Mutex
	clients map[uint]map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[chan string]struct{})}
}

// Register adds a stream for userID
func (h *Hub) Register(userID uint) chan string {
	ch := make(chan string, streamBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[chan string]struct{})
	}
	h.clients[userID][ch] = struct{}{}
	return ch
}

// Unregister removes and closes a stream, safe to call twice
func (h *Hub) Unregister(userID uint, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(userID, ch)
}

func (h *Hub) remove(userID uint, ch chan string) {
	streams := h.clients[userID]
	if _, ok := streams[ch]; !ok {
		return
	}
	delete(streams, ch)
	close(ch)
	if len(streams) == 0 {
		delete(h.clients, userID)
	}
}

// Send delivers message to every stream of userID without blocking. A
// stream whose buffer is full is dropped, its client reconnects.
func (h *Hub) Send(userID uint, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients[userID] {
		select {
		case ch <- message:
		default:
			h.remove(userID, ch)
		}
	}
}

// Subscribers counts open streams of userID
func (h *Hub) Subscribers(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}
