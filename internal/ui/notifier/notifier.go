// Package notifier tells long-lived SSE streams that the template catalogue
// was re-imported.
package notifier

import (
	"context"
	"sync"
)

// Event describes one catalogue import.
type Event struct {
	Seq       uint64
	Templates int
	Documents int
}

// Notifier fans catalogue events out to subscribers.
// Each subscriber holds at most one pending event; a newer event replaces it.
type Notifier struct {
	mu   sync.Mutex
	seq  uint64
	subs map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		subs: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel receiving catalogue events.
// The channel is closed once ctx is done.
func (n *Notifier) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 1)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	context.AfterFunc(ctx, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
	})
	return ch
}

// Publish records an import and notifies every subscriber without blocking.
func (n *Notifier) Publish(templates, documents int) Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	ev := Event{Seq: n.seq, Templates: templates, Documents: documents}
	for ch := range n.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Seq returns the sequence number of the last published event.
func (n *Notifier) Seq() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq
}

// Subscribers returns the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
