package sse

import (
	"sync"
)

// Event names published on the punch feed.
const (
	EventPunchRecorded     = "punch.recorded"
	EventPunchDeleted      = "punch.deleted"
	EventPunchesNormalized = "punches.normalized"
)

// Event is one message on a company's feed.
type Event struct {
	CompanyID string
	Event     string
	Data      interface{}
}

// Hub fans events out to subscribers grouped by company. A nil *Hub
// accepts publishes and drops them.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

// NewHub creates a Hub whose subscriber channels hold up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 10
	}
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber for a company and returns the event
// channel and a cleanup function that closes it.
func (h *Hub) Subscribe(companyID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)

	if h.subscribers[companyID] == nil {
		h.subscribers[companyID] = make(map[chan Event]struct{})
	}
	h.subscribers[companyID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[companyID], ch)
			close(ch)
			if len(h.subscribers[companyID]) == 0 {
				delete(h.subscribers, companyID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends event to every subscriber of companyID. Slow subscribers
// whose buffer is full miss the event.
func (h *Hub) Publish(companyID string, event Event) {
	if h == nil {
		return
	}
	event.CompanyID = companyID

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[companyID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers for a company
func (h *Hub) SubscriberCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[companyID])
}

// TotalSubscribers returns the number of active subscribers across all companies
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
