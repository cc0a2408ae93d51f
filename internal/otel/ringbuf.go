package otel

import (
	"maps"
	"sync"
)

// DefaultRingSize is used when NewRingBuffer is given a non-positive size.
const DefaultRingSize = 1024

// RingBuffer keeps the most recent events for the debug overlay.
// Safe for concurrent use.
type RingBuffer struct {
	mu     sync.Mutex
	events []Event
	seq    uint64 // total pushes; events[seq%cap] is the next slot
}

// NewRingBuffer creates a buffer holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{events: make([]Event, size)}
}

// Push stores e, evicting the oldest event when full. Extra is cloned so
// the caller may keep mutating its map.
func (r *RingBuffer) Push(e Event) {
	e.Extra = maps.Clone(e.Extra)

	r.mu.Lock()
	r.events[r.seq%uint64(len(r.events))] = e
	r.seq++
	r.mu.Unlock()
}

// Snapshot returns every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	return r.Last(len(r.events))
}

// Last returns up to n of the newest events, oldest first; nil when n <= 0
// or the buffer is empty.
func (r *RingBuffer) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held := r.lenLocked(); n > held {
		n = held
	}
	if n <= 0 {
		return nil
	}

	size := uint64(len(r.events))
	out := make([]Event, 0, n)
	for s := r.seq - uint64(n); s < r.seq; s++ {
		out = append(out, r.events[s%size])
	}
	return out
}

// Len returns how many events are buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

func (r *RingBuffer) lenLocked() int {
	if r.seq < uint64(len(r.events)) {
		return int(r.seq)
	}
	return len(r.events)
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.events)
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	counts := make(map[EventKind]int)
	for _, e := range r.Snapshot() {
		counts[e.Kind]++
	}
	return counts
}

// Summary groups the buffered counts the debug overlay reports.
type Summary struct {
	PagesLoaded, PageErrors, StalePages, Exhausted int
	MirrorHits, MirrorHealed, MirrorErrors         int
	EditsCommitted, EditsRejected                  int
	Sent, SendFailures                             int
	LastError                                      *Event // newest error-level event, if any
}

// Summarize computes a Summary over the buffered events.
func (r *RingBuffer) Summarize() Summary {
	var s Summary
	for _, e := range r.Snapshot() {
		switch e.Kind {
		case KindPageComplete:
			s.PagesLoaded++
		case KindPageError:
			s.PageErrors++
		case KindPageStale:
			s.StalePages++
		case KindPageDone:
			s.Exhausted++
		case KindMirrorHit:
			s.MirrorHits++
		case KindMirrorHeal:
			s.MirrorHealed++
		case KindMirrorErr:
			s.MirrorErrors++
		case KindUpdateCommit:
			s.EditsCommitted++
		case KindUpdateError:
			s.EditsRejected++
		case KindNotifySent:
			s.Sent++
		case KindNotifyError:
			s.SendFailures++
		}
		if e.Level == LevelError || e.Err != "" {
			last := e
			s.LastError = &last
		}
	}
	return s
}
