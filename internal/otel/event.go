// Package otel is the browser's machine-readable journal: one JSON object
// per line, one Event per operation worth tracing. A RingBuffer can hold the
// newest events in memory for the in-app debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level is an event's severity. Logger.SetMinLevel filters on it.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Rank orders levels from debug (0) to error (3). Empty and unknown levels
// rank as debug.
func (l Level) Rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

// EventKind names what happened as "<subsystem>.<action>".
type EventKind string

const (
	// Pagination
	KindPageFetch    EventKind = "page.fetch"
	KindPageComplete EventKind = "page.complete"
	KindPageError    EventKind = "page.error"
	KindPageStale    EventKind = "page.stale"
	KindPageDone     EventKind = "page.exhausted"

	// Mirror
	KindMirrorHit  EventKind = "mirror.hit"
	KindMirrorHeal EventKind = "mirror.heal"
	KindMirrorErr  EventKind = "mirror.error"

	// Edits
	KindUpdateCommit EventKind = "update.commit"
	KindUpdateError  EventKind = "update.error"

	// Notifications
	KindTargetsLoad EventKind = "notify.targets"
	KindNotifySend  EventKind = "notify.send"
	KindNotifySent  EventKind = "notify.sent"
	KindNotifyError EventKind = "notify.error"

	// UI
	KindKeyPress EventKind = "ui.key"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is one journal line. Only Kind is required; Logger fills Time and
// SessionID.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // emitting package
	SessionID string         `json:"session_id,omitempty"`
	Source    string         `json:"source,omitempty"`     // data source name
	Page      uint           `json:"page,omitempty"`
	Gen       uint64         `json:"gen,omitempty"` // pagination generation token
	Target    string         `json:"target,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // set from Dur when encoding
	Count     int            `json:"count,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON writes Dur as fractional milliseconds.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event // drops the method set to avoid recursion
	if e.Dur > 0 {
		e.DurMs = float64(e.Dur.Microseconds()) / 1000
	}
	return json.Marshal(plain(e))
}
