package realtime

import "sync"

// Event names match the wire contract consumed by the frontend chat client.
const (
	EventNewTeamMessage     = "newTeamMessage"
	EventNewPersonalMessage = "newPersonalMessage"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	ch chan Event
}

// Hub fans chat events out to subscribers of a project topic. Delivery is
// at-most-once: a subscriber whose buffer is full misses the event and
// recovers by re-fetching over REST.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber // project id hex -> subscribers
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]*subscriber),
	}
}

// Subscribe joins a project topic. The returned cancel func must be called
// when the client disconnects; it closes the channel.
func (h *Hub) Subscribe(projectID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, 64)}
	h.subscribers[projectID] = append(h.subscribers[projectID], sub)

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[projectID]
		for i, s := range subs {
			if s == sub {
				h.subscribers[projectID] = append(subs[:i], subs[i+1:]...)
				close(sub.ch)
				break
			}
		}
		if len(h.subscribers[projectID]) == 0 {
			delete(h.subscribers, projectID)
		}
	}
	return sub.ch, unsub
}

// Broadcast delivers the event to every current subscriber of the project.
func (h *Hub) Broadcast(projectID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[projectID] {
		select {
		case sub.ch <- event:
		default:
			// drop if full
		}
	}
}
