// Package events is the in-process notification channel between the
// session manager and the entity stores.
package events

import (
	"context"
	"sync"
)

// Topic names an event stream
type Topic string

const (
	// SessionChanged fires on login, register, restore, logout and 401 invalidation
	SessionChanged Topic = "session.changed"
	// LedgerChanged fires after every acknowledged transaction mutation
	LedgerChanged Topic = "ledger.changed"
)

// Event is delivered to subscribers
type Event struct {
	Topic Topic
	// UserID of the session the event belongs to; empty when signed out
	UserID string
	// Payload carries topic-specific data
	Payload interface{}
}

// Handler receives events
type Handler func(ctx context.Context, evt Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription

	pending sync.WaitGroup
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers h for topic and returns a function that removes it
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subs[topic]
			for i, s := range subs {
				if s.id == id {
					b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers evt to every subscriber in its own goroutine and returns
// immediately. Deliveries outlive the caller's cancellation.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range b.handlers(evt.Topic) {
		b.pending.Add(1)
		go func(h Handler) {
			defer b.pending.Done()
			h(ctx, evt)
		}(h)
	}
}

// PublishAndWait delivers evt to every subscriber concurrently and returns
// once all of them have finished.
func (b *Bus) PublishAndWait(ctx context.Context, evt Event) {
	var wg sync.WaitGroup
	for _, h := range b.handlers(evt.Topic) {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(ctx, evt)
		}(h)
	}
	wg.Wait()
}

// Wait blocks until every asynchronous delivery has completed
func (b *Bus) Wait() {
	b.pending.Wait()
}

// Subscribers returns how many handlers are registered for topic
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Bus) handlers(topic Topic) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.subs[topic]))
	for _, s := range b.subs[topic] {
		out = append(out, s.handler)
	}
	return out
}
