package contenttree

import "sync"

// EventKind classifies a content lifecycle event.
type EventKind int

const (
	EventPublish EventKind = iota
	EventUnpublish
	EventDelete
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventPublish:
		return "publish"
	case EventUnpublish:
		return "unpublish"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event describes one publish/unpublish/delete occurrence. The projection
// side consumes events only to invalidate cached documents for the affected
// content type.
type Event struct {
	Kind             EventKind
	NodeID           int
	ContentTypeAlias string
}

// Notifier is a minimal in-process fan-out for content events. Subscribers
// are invoked synchronously on the publishing goroutine.
type Notifier struct {
	mu   sync.RWMutex
	subs []func(Event)
}

// Subscribe registers a handler for all future events.
func (n *Notifier) Subscribe(fn func(Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

// Notify delivers the event to every subscriber.
func (n *Notifier) Notify(e Event) {
	n.mu.RLock()
	subs := make([]func(Event), len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}
