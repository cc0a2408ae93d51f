// Package paging is the incremental-pagination engine: it owns the page
// cursor, the in-flight gate and the exhaustion flag for one data source,
// and mirrors fetched pages into the Persistent Mirror.
package paging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abelbrown/universal/internal/logging"
	"github.com/abelbrown/universal/internal/otel"
	"github.com/abelbrown/universal/internal/record"
	"github.com/abelbrown/universal/internal/source"
	"github.com/abelbrown/universal/internal/store"
)

const comp = "paging"

// Lister is the subset of the Record Source Client the engine needs.
type Lister interface {
	List(ctx context.Context, dataSource string, page uint) ([]record.Record, error)
}

// PageState is a snapshot of the engine.
// PageNumber only increases within a generation. Once Exhausted is true no
// further fetch is issued until the source changes. Items is every fetched
// page concatenated in fetch order.
type PageState struct {
	Source     string
	Items      []record.Record
	PageNumber uint
	Fetching   bool
	Exhausted  bool
	FromCache  bool   // Items came from the mirror at mount; paging is paused
	Generation uint64 // bumped on every source change
}

// Request identifies one page fetch. Gen ties it to the state that issued it.
type Request struct {
	Source string
	Page   uint
	Gen    uint64
}

// Result is the outcome of a Request.
type Result struct {
	Request
	Records []record.Record
	Err     error
	Dur     time.Duration
	Stale   bool // set by Apply when the result was discarded
}

// Engine is the fetch state machine for the currently selected data source.
// Fetch does no bookkeeping, so it can run on any goroutine; every state
// transition happens in OnSourceChange, OnProximityReached and Apply.
type Engine struct {
	client  Lister
	mirror  store.Mirror
	journal *otel.Logger

	mu    sync.Mutex
	state PageState
}

// New creates an Engine. journal may be nil.
func New(client Lister, mirror store.Mirror, journal *otel.Logger) *Engine {
	return &Engine{
		client:  client,
		mirror:  mirror,
		journal: journal,
	}
}

// Mount selects dataSource on first display. A mirror entry for the source
// is used verbatim as the initial items and no request is returned; the
// cache has no TTL and is not revalidated. Without an entry Mount behaves
// like OnSourceChange.
func (e *Engine) Mount(dataSource string) *Request {
	cached, found, healed := store.LoadRecords(e.mirror, dataSource)
	if healed {
		logging.Warn("discarded malformed page cache", "source", dataSource)
		e.journal.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindMirrorHeal, Comp: comp, Source: dataSource})
	}
	if !found {
		return e.OnSourceChange(dataSource)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = PageState{
		Source:     dataSource,
		Items:      cached,
		FromCache:  true,
		Generation: e.state.Generation + 1,
	}
	e.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindMirrorHit, Comp: comp, Source: dataSource, Count: len(cached)})
	return nil
}

// OnSourceChange resets the state for dataSource and returns the request for
// page 1. Any response still in flight for the previous generation will be
// discarded by Apply.
func (e *Engine) OnSourceChange(dataSource string) *Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = PageState{
		Source:     dataSource,
		Fetching:   true,
		Generation: e.state.Generation + 1,
	}
	return e.requestLocked(1)
}

// OnProximityReached is raised when the scroll sentinel becomes visible.
// It returns the request for the next page, or nil when a fetch is already
// in flight, the source is exhausted, or the items came from the cache.
func (e *Engine) OnProximityReached() *Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &e.state
	if s.Source == "" || s.Fetching || s.Exhausted || s.FromCache {
		return nil
	}
	s.Fetching = true
	return e.requestLocked(s.PageNumber + 1)
}

func (e *Engine) requestLocked(page uint) *Request {
	req := &Request{Source: e.state.Source, Page: page, Gen: e.state.Generation}
	e.journal.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageFetch, Comp: comp, Source: req.Source, Page: page, Gen: req.Gen})
	return req
}

// Fetch performs the network call for req. It reads no engine state.
func (e *Engine) Fetch(ctx context.Context, req Request) Result {
	start := time.Now()
	recs, err := e.client.List(ctx, req.Source, req.Page)
	return Result{Request: req, Records: recs, Err: err, Dur: time.Since(start)}
}

// Apply folds res into the state. Results from an older generation are
// dropped and Apply returns false. Transport and shape errors end paging for
// this source without surfacing anything further.
func (e *Engine) Apply(res Result) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &e.state
	if res.Gen != s.Generation || res.Source != s.Source {
		e.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPageStale, Comp: comp, Source: res.Source, Page: res.Page, Gen: res.Gen})
		return false
	}
	s.Fetching = false

	if res.Err != nil {
		s.Exhausted = true
		kind := "transport"
		if errors.Is(res.Err, source.ErrShape) {
			kind = "shape"
		}
		logging.Warn("paging stopped", "source", res.Source, "page", res.Page, "cause", kind, "err", res.Err)
		e.journal.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPageError, Comp: comp, Source: res.Source, Page: res.Page, Gen: res.Gen, Err: res.Err.Error(), Msg: kind})
		return true
	}

	if res.Page == 1 {
		s.Items = append([]record.Record(nil), res.Records...)
	} else {
		s.Items = append(s.Items, res.Records...)
	}
	if res.Page > s.PageNumber {
		s.PageNumber = res.Page
	}
	if len(res.Records) == 0 {
		s.Exhausted = true
		e.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPageDone, Comp: comp, Source: res.Source, Page: res.Page, Count: len(s.Items)})
	}

	e.persistLocked()
	e.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPageComplete, Comp: comp, Source: res.Source, Page: res.Page, Gen: res.Gen, Count: len(res.Records), Dur: res.Dur})
	return true
}

// Step fetches req and applies the result synchronously.
// A nil req is a no-op returning a zero Result.
func (e *Engine) Step(ctx context.Context, req *Request) Result {
	if req == nil {
		return Result{}
	}
	res := e.Fetch(ctx, *req)
	res.Stale = !e.Apply(res)
	return res
}

// ApplyUpdate replaces the record whose idField matches recordID with a
// copy carrying field=value. It reports whether a record matched. The
// mirror is refreshed so a reload shows the edit.
func (e *Engine) ApplyUpdate(idField string, recordID any, field string, value any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	matched := false
	for i, rec := range e.state.Items {
		if record.SameID(rec.Get(idField), recordID) {
			e.state.Items[i] = rec.With(field, value)
			matched = true
		}
	}
	if matched {
		e.persistLocked()
	}
	return matched
}

// State returns a copy of the current state.
func (e *Engine) State() PageState {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	s.Items = append([]record.Record(nil), e.state.Items...)
	return s
}

func (e *Engine) persistLocked() {
	if err := store.SaveRecords(e.mirror, e.state.Source, e.state.Items); err != nil {
		logging.Error("page cache write failed", "source", e.state.Source, "err", err)
		e.journal.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindMirrorErr, Comp: comp, Source: e.state.Source, Err: err.Error()})
	}
}
