// Package realtime delivers per-table change events to subscribers. It
// replaces the hosted provider's table subscriptions with an in-process hub;
// handlers publish after each committed mutation and the SSE endpoint fans
// events out to connected clients.
package realtime

import (
	"encoding/json"
	"sync"
)

// Action is the kind of change that happened to a row.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one change notification. Record is the JSON encoding of the row
// after the change (for deletes, the row before it was removed).
type Event struct {
	Table          string          `json:"table"`
	Action         Action          `json:"action"`
	RecordID       string          `json:"record_id"`
	OrganizationID string          `json:"organization_id,omitempty"`
	Record         json.RawMessage `json:"record,omitempty"`
}

// Filter restricts a subscription. Empty fields match everything.
type Filter struct {
	Table          string
	OrganizationID string
}

func (f Filter) matches(ev Event) bool {
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if f.OrganizationID != "" && f.OrganizationID != ev.OrganizationID {
		return false
	}
	return true
}

type subscriber struct {
	filter Filter
	ch     chan Event
}

// Hub fans change events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event rather than stalling the
// mutation path.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
	buffer int
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 16
	}
	return &Hub{subs: make(map[int]*subscriber), buffer: buffer}
}

// Subscribe registers a filtered subscription. The returned cancel func must
// be called when the consumer goes away; it closes the channel.
func (h *Hub) Subscribe(filter Filter) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	sub := &subscriber{filter: filter, ch: make(chan Event, h.buffer)}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers ev to every matching subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Slow consumer; drop rather than block the mutation path.
		}
	}
}

// Close drops every subscription and closes its channel. Used on shutdown;
// the hub accepts no new events usefully after this.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// SubscriberCount reports the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// MergeByID applies an incoming record to a locally held list, de-duplicating
// by record id. There is no ordering guarantee between a mutation's own
// response and its event echo, so an insert for an id already present is
// treated as an update.
func MergeByID[T any](list []T, rec T, id func(T) string, deleted bool) []T {
	target := id(rec)
	for i := range list {
		if id(list[i]) != target {
			continue
		}
		if deleted {
			return append(list[:i:i], list[i+1:]...)
		}
		out := make([]T, len(list))
		copy(out, list)
		out[i] = rec
		return out
	}
	if deleted {
		return list
	}
	return append(list[:len(list):len(list)], rec)
}
