// Package alert is the payload-less broadcast that wakes patrolling agents.
package alert

import "sync"

// Handler is called once per Raise for every current subscriber.
type Handler func()

// Subscription identifies one registered handler. Zero is never issued.
type Subscription uint64

// Bus is an in-process synchronous fan-out channel with no payload.
// Raise delivers on the caller's goroutine; nothing is queued or persisted.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Subscription]Handler
	order  []Subscription
	nextID Subscription
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Subscription]Handler)}
}

// Subscribe registers h and returns the handle used to unsubscribe.
func (b *Bus) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = h
	b.order = append(b.order, id)
	return id
}

// Unsubscribe removes a handler. Unknown or already-removed handles are ignored.
func (b *Bus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; !ok {
		return
	}
	delete(b.subs, id)
	for i, s := range b.order {
		if s == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Raise notifies every handler subscribed at the moment of the call.
// Handlers may subscribe or unsubscribe while being notified.
func (b *Bus) Raise() {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h()
	}
}

// Len returns the number of current subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
