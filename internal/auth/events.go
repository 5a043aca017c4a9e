package auth

import (
	"sync"
	"time"
)

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

// Event notifies listeners of a change in authentication state.
type Event struct {
	Kind         EventKind `json:"kind"`
	UserID       string    `json:"user_id"`
	SessionToken string    `json:"-"`
	At           time.Time `json:"at"`
}

const subscriberBuffer = 16

// Broadcaster fans events out to subscribers. A subscriber whose buffer is
// full misses the event; Publish never blocks.
type Broadcaster struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[int]chan Event)}
}

// Subscribe returns a channel of future events and a function that ends the
// subscription and closes the channel. The function may be called repeatedly.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
