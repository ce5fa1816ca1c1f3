/*
Package notify is the observable-state primitive used by the fee cache and the
location provider.

Subscribers register a Listener and get back an unsubscribe function.
Publishers call Notify synchronously after each state mutation. Batching
(one notification for many changes) is the publisher's decision: it simply
calls Notify once.
*/
package notify

import "sync"

// Kind identifies what changed.
type Kind string

const (
	FeeUpdated         Kind = "fee_updated"
	FeeFailed          Kind = "fee_failed"
	Invalidated        Kind = "invalidated"
	Cleared            Kind = "cleared"
	Expired            Kind = "expired"
	BatchCompleted     Kind = "batch_completed"
	RecalculateAdvised Kind = "recalculate_advised"
	LocationChanged    Kind = "location_changed"
)

// Event is delivered to every listener. RestaurantID is empty for events that
// are not about a single restaurant.
type Event struct {
	Kind         Kind
	RestaurantID string
}

// Listener receives events. It runs on the publisher's goroutine and must not
// block.
type Listener func(Event)

// Notifier fans events out to listeners.
type Notifier struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]Listener
}

func New() *Notifier {
	return &Notifier{listeners: make(map[uint64]Listener)}
}

// Subscribe registers l. The returned function removes it and is safe to call
// more than once.
func (n *Notifier) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	n.listeners[id] = l
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Notify delivers ev to all current listeners. Listeners are snapshotted
// first so a listener may unsubscribe itself.
func (n *Notifier) Notify(ev Event) {
	n.mu.RLock()
	ls := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		ls = append(ls, l)
	}
	n.mu.RUnlock()

	for _, l := range ls {
		l(ev)
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
