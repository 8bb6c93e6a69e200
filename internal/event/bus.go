// internal/event/bus.go
// Package event provides a small pub-sub registry keyed by event name.
// Subscriptions are removed by handle identity, so registering the same
// handler twice yields two independent handles.
package event

import (
	"log"
	"runtime/debug"
	"sync"
)

// Handler handles a published event.
type Handler func(Event)

// Subscription is the handle returned by Subscribe. Compare handles by
// pointer; two subscriptions with the same handler are still distinct.
type Subscription struct {
	name    string
	handler Handler
}

// Name returns the event name this subscription listens to.
func (s *Subscription) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Bus is a synchronous pub-sub event bus. It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription // name -> subscriptions in registration order
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]*Subscription),
	}
}

// Subscribe registers a handler for a single event name.
func (b *Bus) Subscribe(name string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{name: name, handler: handler}
	b.subs[name] = append(b.subs[name], sub)
	return sub
}

// SubscribeAll registers a handler called for every published event.
func (b *Bus) SubscribeAll(handler Handler) *Subscription {
	return b.Subscribe(Wildcard, handler)
}

// Unsubscribe removes the given handle. Returns false if it was not registered.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.name]
	for i, s := range subs {
		if s == sub {
			next := make([]*Subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, sub.name)
			} else {
				b.subs[sub.name] = next
			}
			return true
		}
	}
	return false
}

// Publish dispatches ev to the handlers registered for its name, then to
// wildcard handlers. A panicking handler is logged and skipped.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	specific := append([]*Subscription(nil), b.subs[ev.EventName()]...)
	wildcard := append([]*Subscription(nil), b.subs[Wildcard]...)
	b.mu.RUnlock()

	for _, sub := range specific {
		safeCall(sub.handler, ev)
	}
	for _, sub := range wildcard {
		safeCall(sub.handler, ev)
	}
}

func safeCall(handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for %s: %v\n%s", ev.EventName(), r, debug.Stack())
		}
	}()
	handler(ev)
}

// Count returns the number of active subscriptions.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]*Subscription)
}
