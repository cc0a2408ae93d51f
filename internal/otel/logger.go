package otel

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize bounds how many events may wait for the writer.
const queueSize = 4096

// Logger is the asynchronous JSONL journal.
//
// Emit only stamps and enqueues; the drain goroutine owns the writer and is
// the only one that encodes. A nil *Logger discards everything, so every
// component takes an optional journal without nil checks.
type Logger struct {
	session string
	out     io.Writer
	queue   chan Event
	done    chan struct{}
	stop    sync.Once
	closed  atomic.Bool
	lost    atomic.Uint64 // full queue, emit after close, encode or write failure
	floor   atomic.Int32  // minimum Level.Rank journaled

	ringMu sync.Mutex
	ring   *RingBuffer
}

// NewLogger starts a journal writing to w. Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	var id [8]byte
	_, _ = rand.Read(id[:])

	l := &Logger{
		session: hex.EncodeToString(id[:]),
		out:     w,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger starts a journal that only feeds an attached ring buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// SetMinLevel drops events below lvl. The default keeps everything.
func (l *Logger) SetMinLevel(lvl Level) {
	if l == nil {
		return
	}
	l.floor.Store(int32(lvl.Rank()))
}

func (l *Logger) drain() {
	defer close(l.done)
	for ev := range l.queue {
		line, err := json.Marshal(ev)
		if err == nil {
			_, err = l.out.Write(append(line, '\n'))
		}
		if err != nil {
			l.lost.Add(1)
			continue
		}
		if ring := l.ringBuffer(); ring != nil {
			ring.Push(ev)
		}
	}
}

func (l *Logger) ringBuffer() *RingBuffer {
	l.ringMu.Lock()
	defer l.ringMu.Unlock()
	return l.ring
}

// Emit queues e. Time defaults to now and SessionID is always overwritten.
// It never blocks: when the queue is full or the logger closed the event
// is counted in Dropped.
func (l *Logger) Emit(e Event) {
	if l == nil || e.Level.Rank() < int(l.floor.Load()) {
		return
	}
	if l.closed.Load() {
		l.lost.Add(1)
		return
	}
	// Close may win the race after the check above
	defer func() {
		if recover() != nil {
			l.lost.Add(1)
		}
	}()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	select {
	case l.queue <- e:
	default:
		l.lost.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err journals an empty Err.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	ev := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		ev.Err = err.Error()
	}
	l.Emit(ev)
}

// SetRingBuffer mirrors every written event into buf.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	if l == nil {
		return
	}
	l.ringMu.Lock()
	l.ring = buf
	l.ringMu.Unlock()
}

// SessionID is the random hex id stamped on every event of this run.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Dropped counts events that never reached the writer.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.lost.Load()
}

// Close drains the queue and stops the writer. Safe to call twice.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.stop.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.done
		if n := l.lost.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "universal: %d journal events dropped in session %s\n", n, l.session)
		}
	})
}
