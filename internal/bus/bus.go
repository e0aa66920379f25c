// Package bus implements the in-process broadcast bus that fans persisted
// mutations out to live WebSocket connections. The bus is recipient-agnostic:
// every subscriber sees every event and filters on its own user id, keeping
// Publish O(subscribers) with no per-recipient bookkeeping.
package bus

import (
	"sync"

	"github.com/tantalumq/taco/internal/domain"
)

// DefaultCapacity is the per-subscriber buffer of pending events.
const DefaultCapacity = 100

// Bus is an injected, explicitly-owned broadcast hub. Each subscriber has
// its own buffered channel, so a slow consumer never blocks publishers or
// other subscribers; it only loses its own oldest pending events once it
// falls more than the buffer size behind, and its Lagged channel reports
// the loss.
type Bus struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextID   uint64
	capacity int
}

// Subscription is one consumer's cursor into the bus.
type Subscription struct {
	bus    *Bus
	id     uint64
	ch     chan domain.RecipientEvent
	lagged chan struct{}
	lost   bool // guarded by bus.mu
}

// New creates a bus whose subscribers buffer up to capacity pending events.
// A capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		subs:     make(map[uint64]*Subscription),
		capacity: capacity,
	}
}

// Publish delivers the event to every current subscriber without blocking.
// A subscriber with a full buffer has its oldest unread event dropped to
// make room; other subscribers are unaffected. Events from a single caller
// are delivered in publish order.
func (b *Bus) Publish(event domain.RecipientEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			// Lagging subscriber: drop its oldest pending event and
			// signal the gap so the consumer can resynchronize. The
			// second send can only fail if the consumer drained the
			// channel concurrently, in which case there is room again.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
			if !sub.lost {
				sub.lost = true
				close(sub.lagged)
			}
		}
	}
}

// Subscribe registers a new consumer. The caller must Close the
// subscription when done; events published before Subscribe are not seen.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		bus:    b,
		id:     b.nextID,
		ch:     make(chan domain.RecipientEvent, b.capacity),
		lagged: make(chan struct{}),
	}
	b.subs[sub.id] = sub
	return sub
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// C is the stream of events for this subscriber.
func (s *Subscription) C() <-chan domain.RecipientEvent {
	return s.ch
}

// Lagged is closed once the subscriber has lost at least one event.
// The stream has a gap from that point on; the consumer must
// resynchronize out of band instead of trusting C alone.
func (s *Subscription) Lagged() <-chan struct{} {
	return s.lagged
}

// Close detaches the subscription from the bus. It is safe to call more
// than once; pending events are left for the garbage collector.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}
