// Package bus is the Update Bus: an in-process publish/subscribe channel
// that carries field-level edits from an editor to every view holding the
// edited record, without either side referencing the other.
package bus

import (
	"sync"

	"github.com/abelbrown/universal/internal/record"
)

// UpdateEvent is a single field edit. Events are not persisted.
type UpdateEvent struct {
	RecordID  any
	FieldName string
	Value     any
}

// Matches reports whether the event targets (recordID, fieldName).
// An empty fieldName matches every field of the record.
func (e UpdateEvent) Matches(recordID any, fieldName string) bool {
	if fieldName != "" && e.FieldName != fieldName {
		return false
	}
	return record.SameID(e.RecordID, recordID)
}

// Handler receives events. It runs on the publisher's goroutine.
type Handler func(UpdateEvent)

type subscriber struct {
	id uint64
	fn Handler
}

// Bus delivers each published event synchronously, in publish order, at
// most once to every subscriber registered when Publish was called.
// Construct one Bus per process and pass it to producers and consumers.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Publish delivers ev to the current subscribers. Handlers subscribed or
// unsubscribed during delivery do not affect this event.
func (b *Bus) Publish(ev UpdateEvent) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Subscribe registers fn for every event. The returned func removes it and
// is safe to call more than once.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// SubscribeTopic registers fn for events matching (recordID, fieldName).
func (b *Bus) SubscribeTopic(recordID any, fieldName string, fn Handler) (unsubscribe func()) {
	return b.Subscribe(func(ev UpdateEvent) {
		if ev.Matches(recordID, fieldName) {
			fn(ev)
		}
	})
}

// Chan subscribes a buffered channel. Sends never block the publisher;
// when the buffer is full the event is dropped. The channel is closed by
// the returned unsubscribe func.
func (b *Bus) Chan(size int) (<-chan UpdateEvent, func()) {
	ch := make(chan UpdateEvent, size)
	var mu sync.Mutex
	closed := false

	unsub := b.Subscribe(func(ev UpdateEvent) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- ev:
		default:
		}
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsub()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}

// Len returns the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
