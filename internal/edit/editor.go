// Package edit implements the optimistic inline editor: a single field of a
// single record whose local value changes only after the server accepts it.
package edit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/universal/internal/bus"
	"github.com/abelbrown/universal/internal/logging"
	"github.com/abelbrown/universal/internal/otel"
	"github.com/abelbrown/universal/internal/record"
)

const comp = "edit"

// ErrBusy is returned when Commit is called while a write is in flight.
var ErrBusy = errors.New("edit already in progress")

// Updater is the server write the editor depends on.
type Updater interface {
	Update(ctx context.Context, dataSource string, id any, patch map[string]any) (record.Record, error)
}

// Target names the field being edited.
type Target struct {
	DataSource string
	RecordID   any
	Field      string
}

// Editor holds the committed value of one field.
type Editor struct {
	writer  Updater
	bus     *bus.Bus
	target  Target
	journal *otel.Logger

	mu      sync.Mutex
	value   any
	pending bool
}

// New creates an Editor showing initial. bus may be nil when nothing else
// needs to observe the edit.
func New(writer Updater, b *bus.Bus, target Target, initial any) *Editor {
	return &Editor{
		writer: writer,
		bus:    b,
		target: target,
		value:  initial,
	}
}

// WithJournal attaches an event journal and returns e.
func (e *Editor) WithJournal(j *otel.Logger) *Editor {
	e.journal = j
	return e
}

// Commit writes value to the server. Only when the write succeeds does the
// local value change and an UpdateEvent get published. On failure the
// pre-edit value is kept and the error is returned for display.
func (e *Editor) Commit(ctx context.Context, value any) error {
	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		return ErrBusy
	}
	e.pending = true
	e.mu.Unlock()

	start := time.Now()
	updated, err := e.writer.Update(ctx, e.target.DataSource, e.target.RecordID, map[string]any{e.target.Field: value})

	e.mu.Lock()
	e.pending = false
	if err != nil {
		e.mu.Unlock()
		logging.Warn("edit rejected", "source", e.target.DataSource, "id", record.Format(e.target.RecordID), "field", e.target.Field, "err", err)
		e.journal.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindUpdateError, Comp: comp, Source: e.target.DataSource, Err: err.Error(), Dur: time.Since(start)})
		return fmt.Errorf("update %s: %w", e.target.Field, err)
	}
	// the server's copy wins when it echoes the field back
	if v, ok := updated[e.target.Field]; ok {
		value = v
	}
	e.value = value
	e.mu.Unlock()

	e.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindUpdateCommit, Comp: comp, Source: e.target.DataSource, Msg: e.target.Field, Dur: time.Since(start)})
	if e.bus != nil {
		e.bus.Publish(bus.UpdateEvent{RecordID: e.target.RecordID, FieldName: e.target.Field, Value: value})
	}
	return nil
}

// Value returns the last committed value.
func (e *Editor) Value() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Pending reports whether a write is in flight.
func (e *Editor) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Target returns what the editor edits.
func (e *Editor) Target() Target {
	return e.target
}
