// Package realtime provides a lightweight in-process publish/subscribe hub
// used to push session events to listeners such as WebSocket connections.
//
// Delivery is best effort and never blocks the publisher. Each listener has
// its own buffered channel; when that buffer is full the oldest queued event
// is discarded to make room, so a slow listener always ends up with the most
// recent state. There is no persistence or replay.
package realtime

import (
	"sync"
	"time"

	"github.com/rubiojr/bookexplorer/pkg/metrics"
)

// Event kinds.
const (
	TypeView   = "view"
	TypeDetail = "detail"
	TypeCommit = "commit"
)

// Event is the envelope sent to listeners. Data holds the kind-specific
// payload (a session view, a detail record or the committed query).
type Event struct {
	Type    string    `json:"type"`
	Session string    `json:"session"`
	At      time.Time `json:"at"`
	Data    any       `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(kind, session string, data any) Event {
	return Event{Type: kind, Session: session, At: time.Now().UTC(), Data: data}
}

// Hub is a concurrency-safe fan-out dispatcher.
type Hub struct {
	mu        sync.Mutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
	closed    bool
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a new listener and returns its id and receive channel.
// Callers must later Unregister(id). Registering on a closed hub returns a
// closed channel.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Publish delivers ev to every listener without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
			continue
		default:
		}
		// full: drop the oldest queued event
		select {
		case <-ch:
			metrics.EventsDroppedTotal.Inc()
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Size returns the number of registered listeners.
func (h *Hub) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Close unregisters every listener.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.listeners {
		delete(h.listeners, id)
		close(ch)
	}
	h.closed = true
}
