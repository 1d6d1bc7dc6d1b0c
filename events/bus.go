// Package events carries synthesis session events to observers such as
// metrics and recorders.
package events

import (
	"slices"
	"sync"

	"github.com/AltairaLabs/speechkit/logger"
)

// Listener handles one event.
type Listener func(*Event)

type subscription struct {
	id    uint64
	types []EventType // nil matches every type
	fn    Listener
}

func (s *subscription) wants(t EventType) bool {
	return s.types == nil || slices.Contains(s.types, t)
}

// EventBus fans events out to subscribers.
//
// Publish delivers synchronously on the caller's goroutine, in subscription
// order, so audio chunks reach every listener in the order the session
// received them.
type EventBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*subscription
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers fn for the given event types, or for every type when
// none are given. The returned function removes the subscription.
func (eb *EventBus) Subscribe(fn Listener, types ...EventType) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	sub := &subscription{id: eb.nextID, fn: fn}
	if len(types) > 0 {
		sub.types = slices.Clone(types)
	}
	eb.subs = append(eb.subs, sub)

	id := sub.id
	return func() { eb.remove(id) }
}

// SubscribeAll registers fn for every event type.
func (eb *EventBus) SubscribeAll(fn Listener) (unsubscribe func()) {
	return eb.Subscribe(fn)
}

func (eb *EventBus) remove(id uint64) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subs = slices.DeleteFunc(eb.subs, func(s *subscription) bool { return s.id == id })
}

// Publish delivers event to every matching subscriber. A panicking listener
// is logged and skipped.
func (eb *EventBus) Publish(event *Event) {
	eb.mu.RLock()
	subs := slices.Clone(eb.subs)
	eb.mu.RUnlock()

	for _, s := range subs {
		if s.wants(event.Type) {
			deliver(s.fn, event)
		}
	}
}

// Len returns the number of subscriptions.
func (eb *EventBus) Len() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subs)
}

func deliver(fn Listener, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event listener panicked",
				"event", string(event.Type), "session_id", event.SessionID, "panic", r)
		}
	}()
	fn(event)
}
