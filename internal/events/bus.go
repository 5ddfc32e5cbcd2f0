// Package events is a process-local broadcast of payload-less "schedule
// changed" signals. Whoever mutates server state publishes; listeners
// refetch.
package events

import "sync"

type Signal string

const (
	ScheduleAdded   Signal = "scheduleAdded"
	ScheduleUpdated Signal = "scheduleUpdated"
	ScheduleDeleted Signal = "scheduleDeleted"
)

// Bus fans signals out to subscribers in subscription order.
type Bus struct {
	mu   sync.Mutex
	subs []*Subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscription receives signals on C until Close is called.
// C holds at most one pending signal: since signals carry no payload, one
// pending refetch covers any that arrive before it is drained.
type Subscription struct {
	C <-chan Signal

	c    chan Signal
	bus  *Bus
	once sync.Once
}

func (b *Bus) Subscribe() *Subscription {
	c := make(chan Signal, 1)
	sub := &Subscription{C: c, c: c, bus: b}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub
}

// Publish never blocks.
func (b *Bus) Publish(sig Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.c <- sig:
		default:
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		for i, other := range b.subs {
			if other == s {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		close(s.c)
		b.mu.Unlock()
	})
}
