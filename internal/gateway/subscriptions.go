package gateway

import (
	"sync"

	"github.com/google/uuid"

	"messenger/pkg/interfaces"
	"messenger/pkg/types"
)

// subscription pairs a handler with the id handed back to the subscriber.
type subscription struct {
	id string
	fn interfaces.EventHandler
}

// SubscriptionRegistry tracks push-event handlers by event name.
// Subscribe/Unsubscribe are paired by callers on mount/teardown; an
// unmatched handler would receive duplicate deliveries, so removal is
// idempotent and safe to call from deferred teardown paths.
type SubscriptionRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
}

// NewSubscriptionRegistry creates an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		handlers: make(map[string][]subscription),
	}
}

// Subscribe registers a handler for an event name and returns its id.
func (r *SubscriptionRegistry) Subscribe(event string, fn interfaces.EventHandler) string {
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes the handler registered under id. Unknown event names
// or ids are ignored.
func (r *SubscriptionRegistry) Unsubscribe(event, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, exists := r.handlers[event]
	if !exists {
		return
	}
	for i, sub := range subs {
		if sub.id == id {
			r.handlers[event] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(r.handlers[event]) == 0 {
		delete(r.handlers, event)
	}
}

// Count returns the number of handlers registered for an event.
func (r *SubscriptionRegistry) Count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// dispatch invokes every handler registered for the event's name. The
// handler slice is snapshotted under the read lock so a handler may
// unsubscribe itself without deadlocking.
func (r *SubscriptionRegistry) dispatch(evt types.Event) {
	r.mu.RLock()
	subs := make([]subscription, len(r.handlers[evt.Name]))
	copy(subs, r.handlers[evt.Name])
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(evt)
	}
}
