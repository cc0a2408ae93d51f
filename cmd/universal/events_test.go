package main

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/universal/internal/otel"
)

const journal = `{"t":"2026-01-02T10:00:00Z","level":"info","kind":"page.fetch","comp":"paging","session_id":"abc123","source":"items","page":1,"gen":1}
not json
{"t":"2026-01-02T10:00:01Z","level":"info","kind":"page.complete","comp":"paging","session_id":"abc123","source":"items","page":1,"gen":1,"dur_ms":12.5,"count":2}
{"t":"2026-01-02T10:00:02Z","level":"warn","kind":"page.error","comp":"paging","session_id":"abc123","source":"venues","page":2,"err":"timeout"}

{"t":"2026-01-02T10:00:03Z","level":"info","kind":"notify.sent","comp":"notify","session_id":"def456","target":"crm"}
`

func TestReadTailLinesKeepsLastN(t *testing.T) {
	all := func(otel.Event) bool { return true }

	got := readTailLines(strings.NewReader(journal), 2, all)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if got[0].ev.Kind != "page.error" || got[1].ev.Kind != "notify.sent" {
		t.Errorf("wrong tail: %s, %s", got[0].ev.Kind, got[1].ev.Kind)
	}

	if got := readTailLines(strings.NewReader(journal), 50, all); len(got) != 4 {
		t.Errorf("malformed and blank lines should be skipped, got %d lines", len(got))
	}
	if got := readTailLines(strings.NewReader(journal), 0, all); got != nil {
		t.Errorf("tail 0 should return nothing, got %d", len(got))
	}
}

func TestEventFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter eventFilter
		want   int
	}{
		{"all", eventFilter{}, 4},
		{"kind prefix", eventFilter{Kind: "page"}, 3},
		{"min level", eventFilter{Level: "warn"}, 1},
		{"component", eventFilter{Comp: "notify"}, 1},
		{"source", eventFilter{Source: "items"}, 2},
		{"session prefix", eventFilter{Session: "def"}, 1},
		{"combined", eventFilter{Kind: "page", Source: "venues"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readTailLines(strings.NewReader(journal), 50, tt.filter.match)
			if len(got) != tt.want {
				t.Errorf("got %d lines, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFormatEvent(t *testing.T) {
	lines := readTailLines(strings.NewReader(journal), 50, func(otel.Event) bool { return true })

	complete := formatEvent(lines[1].ev)
	for _, want := range []string{"INFO", "[paging]", "page.complete", "src=items#1", "gen=1", "(12.5ms)", "n=2"} {
		if !strings.Contains(complete, want) {
			t.Errorf("formatted line missing %q: %s", want, complete)
		}
	}

	failed := formatEvent(lines[2].ev)
	if !strings.Contains(failed, "err=timeout") || !strings.Contains(failed, "WARN") {
		t.Errorf("error line = %s", failed)
	}

	sent := formatEvent(lines[3].ev)
	if !strings.Contains(sent, "target=crm") {
		t.Errorf("target missing: %s", sent)
	}
}

func TestDurPrecision(t *testing.T) {
	tests := []struct {
		ms   float64
		want int
	}{
		{250, 0},
		{12.5, 1},
		{0.25, 2},
	}
	for _, tt := range tests {
		if got := durPrecision(tt.ms); got != tt.want {
			t.Errorf("durPrecision(%v) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}

func TestFollowLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- followLines(ctx, bufio.NewReader(strings.NewReader(journal)), eventFilter{Kind: "page"}.match, func(l parsedLine) {
			got = append(got, string(l.ev.Kind))
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("followLines returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("followLines did not stop after cancel")
	}

	if len(got) != 3 {
		t.Errorf("emitted %v, want the 3 page events", got)
	}
}
