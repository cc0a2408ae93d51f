package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/universal/internal/otel"
)

func ringOf(events ...otel.Event) *otel.RingBuffer {
	ring := otel.NewRingBuffer(64)
	for _, e := range events {
		if e.Time.IsZero() {
			e.Time = time.Now()
		}
		ring.Push(e)
	}
	return ring
}

func TestDebugOverlay(t *testing.T) {
	if got := debugOverlay(nil, 80, 24); got != "" {
		t.Fatalf("no ring should render nothing, got %q", got)
	}

	tests := []struct {
		name    string
		ring    *otel.RingBuffer
		want    []string
		wantNot []string
	}{
		{
			name: "counters",
			ring: ringOf(
				otel.Event{Kind: otel.KindPageComplete},
				otel.Event{Kind: otel.KindPageComplete},
				otel.Event{Kind: otel.KindPageError},
				otel.Event{Kind: otel.KindMirrorHit},
				otel.Event{Kind: otel.KindNotifySent},
			),
			want:    []string{"Browser Stats", "2 loaded · 1 failed", "1 hits", "1 sent · 0 failed", "5/64 buffered"},
			wantNot: []string{"last error"},
		},
		{
			name: "recent events",
			ring: ringOf(
				otel.Event{Kind: otel.KindPageFetch, Source: "items", Page: 3},
				otel.Event{Kind: otel.KindPageError, Err: "timeout"},
				otel.Event{Kind: otel.KindNotifySend, Target: "crm"},
			),
			want: []string{"Recent Events", "items#3", "ERR:timeout", "→crm", "last error: page.error timeout"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := debugOverlay(tt.ring, 100, 40)
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("missing %q in:\n%s", s, got)
				}
			}
			for _, s := range tt.wantNot {
				if strings.Contains(got, s) {
					t.Errorf("unexpected %q in:\n%s", s, got)
				}
			}
		})
	}
}

func TestDebugOverlayFitsShortTerminal(t *testing.T) {
	events := make([]otel.Event, 30)
	for i := range events {
		events[i] = otel.Event{Kind: otel.KindPageFetch}
	}
	const height = 10

	got := debugOverlay(ringOf(events...), 80, height)
	if got == "" {
		t.Fatal("overlay should render at small heights")
	}
	if n := strings.Count(got, "\n") + 1; n > height {
		t.Errorf("rendered %d lines into a %d line terminal", n, height)
	}
}

func TestDescribeEvent(t *testing.T) {
	line := describeEvent(otel.Event{Kind: otel.KindUpdateError, Source: "venues", Msg: "name", Err: "409 conflict"}, 2*time.Second)
	for _, want := range []string{"2.0s", "update.error", "venues", "name", "ERR:409 conflict"} {
		if !strings.Contains(line, want) {
			t.Errorf("missing %q in %q", want, line)
		}
	}
	if strings.Contains(line, "#") {
		t.Errorf("page 0 should not be shown: %q", line)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{-5 * time.Second, "0ms"},
		{0, "0ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "2m"},
		{5 * time.Minute, "5m"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.dur); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}

func TestClampWidth(t *testing.T) {
	tests := []struct{ preferred, width, want int }{
		{84, 200, 84},
		{84, 60, 56},
		{84, 10, 20},
	}
	for _, tt := range tests {
		if got := clampWidth(tt.preferred, tt.width); got != tt.want {
			t.Errorf("clampWidth(%d, %d) = %d, want %d", tt.preferred, tt.width, got, tt.want)
		}
	}
}
