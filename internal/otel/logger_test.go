package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// journalLines closes l and decodes every line written to buf.
func journalLines(t *testing.T, l *Logger, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	l.Close()

	var out []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", raw, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEventEncoding(t *testing.T) {
	cases := []struct {
		name   string
		ev     Event
		want   map[string]any
		absent []string
	}{
		{
			name: "page fields",
			ev:   Event{Kind: KindPageFetch, Level: LevelInfo, Comp: "paging", Source: "items", Page: 2, Gen: 7},
			want: map[string]any{"kind": "page.fetch", "level": "info", "comp": "paging", "source": "items", "page": float64(2), "gen": float64(7)},
		},
		{
			name: "duration in milliseconds",
			ev:   Event{Kind: KindPageComplete, Dur: 250 * time.Millisecond},
			want: map[string]any{"dur_ms": float64(250)},
		},
		{
			name:   "zero fields omitted",
			ev:     Event{Kind: KindStartup},
			want:   map[string]any{"kind": "sys.startup"},
			absent: []string{"level", "dur_ms", "count", "source", "page", "gen", "target", "err", "msg", "extra"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(&buf)
			l.Emit(tc.ev)

			got := journalLines(t, l, &buf)
			if len(got) != 1 {
				t.Fatalf("got %d lines, want 1", len(got))
			}
			for k, v := range tc.want {
				if got[0][k] != v {
					t.Errorf("%s = %v, want %v", k, got[0][k], v)
				}
			}
			for _, k := range tc.absent {
				if _, ok := got[0][k]; ok {
					t.Errorf("%s should be omitted: %v", k, got[0])
				}
			}
		})
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	start := time.Now()
	l.Emit(Event{Kind: KindStartup, SessionID: "spoofed"})
	l.Close()
	end := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Time.Before(start) || ev.Time.After(end) {
		t.Errorf("stamped time %v outside the Emit window", ev.Time)
	}
	if ev.SessionID != l.SessionID() || len(ev.SessionID) != 16 {
		t.Errorf("session = %q, logger session = %q", ev.SessionID, l.SessionID())
	}
}

func TestEmitKeepsCallerTime(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	l.Emit(Event{Kind: KindShutdown, Time: at})

	got := journalLines(t, l, &buf)
	if got[0]["t"] != "2026-03-01T09:30:00Z" {
		t.Errorf("t = %v", got[0]["t"])
	}
}

func TestParallelEmitters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	const workers, each = 10, 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				l.Emit(Event{Kind: KindNotifySend, Comp: "notify", Count: i})
			}
		}()
	}
	wg.Wait()

	if n := len(journalLines(t, l, &buf)); n != workers*each {
		t.Errorf("wrote %d lines, want %d", n, workers*each)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "x")
	l.Error(KindError, "main", errors.New("x"))
	l.SetRingBuffer(NewRingBuffer(4))
	l.SetMinLevel(LevelError)
	if l.Dropped() != 0 || l.SessionID() != "" {
		t.Error("nil logger should report zero values")
	}
	l.Close()
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	l := NewNullLogger()
	l.Close()
	l.Emit(Event{Kind: KindShutdown})
	l.Close()
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Info(KindStartup, "main", "starting")
	l.Warn(KindPageError, "paging", "shape")
	l.Error(KindNotifyError, "notify", errors.New("gateway down"))
	l.Error(KindError, "main", nil)

	got := journalLines(t, l, &buf)
	if len(got) != 4 {
		t.Fatalf("got %d lines, want 4", len(got))
	}
	wantLevels := []string{"info", "warn", "error", "error"}
	for i, lvl := range wantLevels {
		if got[i]["level"] != lvl {
			t.Errorf("line %d level = %v, want %s", i, got[i]["level"], lvl)
		}
	}
	if got[2]["err"] != "gateway down" || got[2]["comp"] != "notify" {
		t.Errorf("error line = %v", got[2])
	}
	if _, ok := got[3]["err"]; ok {
		t.Errorf("nil error should leave err out: %v", got[3])
	}
}

func TestSetMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.SetMinLevel(LevelInfo)

	l.Emit(Event{Kind: KindKeyPress, Level: LevelDebug})
	l.Emit(Event{Kind: KindPageFetch}) // no level ranks as debug
	l.Info(KindStartup, "main", "up")
	l.Error(KindPageError, "paging", errors.New("boom"))

	if n := len(journalLines(t, l, &buf)); n != 2 {
		t.Fatalf("got %d lines, want 2", n)
	}
	if l.Dropped() != 0 {
		t.Errorf("filtered events are not drops, Dropped() = %d", l.Dropped())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFailureCountsAsDropped(t *testing.T) {
	ring := NewRingBuffer(4)
	l := NewLogger(failingWriter{})
	l.SetRingBuffer(ring)

	l.Emit(Event{Kind: KindPageFetch})
	l.Close()

	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
	if ring.Len() != 0 {
		t.Error("unwritten event should not reach the ring")
	}
}

func TestWrittenEventsReachRing(t *testing.T) {
	ring := NewRingBuffer(8)
	l := NewNullLogger()
	l.SetRingBuffer(ring)

	l.Emit(Event{Kind: KindPageFetch, Dur: time.Second})
	l.Emit(Event{Kind: KindPageComplete})
	l.Close()

	got := ring.Snapshot()
	if len(got) != 2 || got[1].Kind != KindPageComplete {
		t.Fatalf("ring = %+v", got)
	}
	if got[0].Dur != time.Second || got[0].SessionID != l.SessionID() {
		t.Errorf("ring copy lost fields: %+v", got[0])
	}
}

func TestTraceMsg(t *testing.T) {
	prev := TraceEnabled()
	t.Cleanup(func() { setTraceEnabled(prev) })

	ring := NewRingBuffer(4)
	l := NewNullLogger()
	l.SetRingBuffer(ring)

	setTraceEnabled(false)
	TraceMsg(l, "ui", struct{}{})
	setTraceEnabled(true)
	TraceMsg(l, "ui", 42)
	l.Close()

	got := ring.Snapshot()
	if len(got) != 1 {
		t.Fatalf("traced %d messages, want 1", len(got))
	}
	if got[0].Kind != KindMsgReceived || got[0].Msg != "int" {
		t.Errorf("trace event = %+v", got[0])
	}
}
