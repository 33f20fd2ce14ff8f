package events

import (
	"sync"
	"time"
)

// Change tells subscribers that a collection changed and should be re-fetched.
type Change struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	TS     int64  `json:"ts"`
}

const refresh = "refresh"

// Bus fans committed changes out to subscribers. Slow subscribers lose
// notifications instead of blocking writers.
type Bus struct {
	Now func() time.Time

	mu     sync.Mutex
	subs   map[int]chan Change
	next   int
	closed bool
}

func NewBus() *Bus {
	return &Bus{Now: time.Now, subs: map[int]chan Change{}}
}

// Subscribe returns a channel of changes and a func that ends the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Change, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.subs == nil {
		b.subs = map[int]chan Change{}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish is a no-op on a nil bus.
func (b *Bus) Publish(entity, id, action string) {
	if b == nil {
		return
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	c := Change{Type: refresh, Entity: entity, ID: id, Action: action, TS: now().UnixMilli()}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
