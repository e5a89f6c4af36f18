package board

import "sync"

// EventKind identifies a board notification.
type EventKind string

const (
	// EventCollectionLoaded fires when LoadAll replaces the whole collection.
	EventCollectionLoaded EventKind = "collection_loaded"
	// EventCollectionChanged fires after any mutation plus normalization.
	EventCollectionChanged EventKind = "collection_changed"
	// EventAuthenticationChanged fires on login and logout.
	EventAuthenticationChanged EventKind = "authentication_changed"
)

// Event is delivered synchronously to every subscriber. UserID is set for
// authentication events only; an empty value means "logged out".
type Event struct {
	Kind   EventKind
	UserID string
}

// Subscriber receives board events.
type Subscriber func(Event)

// Bus is a synchronous in-process publish/subscribe registry. Collaborators
// subscribe instead of polling the collection reference for identity changes.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]Subscriber
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Subscriber)}
}

// Subscribe registers a subscriber and returns its cancel function.
func (b *Bus) Subscribe(fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to all current subscribers on the calling
// goroutine, in no particular order.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(evt)
	}
}
