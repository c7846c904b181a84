// Package events is the typed publish/subscribe channel between the sync
// core and its observers. Subscribers receive on their own buffered channel;
// delivery never blocks the publisher, and dropping a subscription needs no
// listener bookkeeping beyond Unsubscribe.
package events

import (
	"sync"
	"time"
)

// Type is the event category.
type Type string

const (
	SyncStarted      Type = "sync_started"
	SyncProgress     Type = "sync_progress"
	ConflictDetected Type = "conflict_detected"
	SyncCompleted    Type = "sync_completed"
)

// Event is one published notification.
type Event struct {
	Time       time.Time
	Type       Type
	SessionID  string
	EntityType string
	EntityID   string
	ConflictID string
	// Progress fields, populated for SyncProgress and SyncCompleted
	Total     int
	Completed int
	Failed    int
}

// Subscription delivers events of the subscribed categories.
type Subscription struct {
	C     <-chan Event
	ch    chan Event
	types map[Type]bool
}

// wants reports whether the subscription covers the event type. An empty
// type set means all categories.
func (s *Subscription) wants(t Type) bool {
	return len(s.types) == 0 || s.types[t]
}

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers for the given categories; no categories means all.
// The returned channel is buffered; events beyond the buffer are dropped
// for that subscriber rather than stalling the engine.
func (b *Bus) Subscribe(types ...Type) *Subscription {
	sub := &Subscription{
		ch:    make(chan Event, 64),
		types: make(map[Type]bool, len(types)),
	}
	sub.C = sub.ch
	for _, t := range types {
		sub.types[t] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish delivers an event to all matching subscribers without blocking.
func (b *Bus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// subscriber is not keeping up; drop rather than stall
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[*Subscription]struct{})
}
