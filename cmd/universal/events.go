package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/universal/internal/config"
	"github.com/abelbrown/universal/internal/otel"
)

// maxJournalLine bounds one journal line; events with large Extra maps can
// outgrow bufio's default.
const maxJournalLine = 256 << 10

const followPoll = 100 * time.Millisecond

// eventFilter selects journal lines. Zero fields match everything.
type eventFilter struct {
	Kind    string // kind prefix, e.g. "page"
	Level   string // minimum level
	Comp    string
	Source  string
	Session string // session id prefix
}

func (f eventFilter) match(ev otel.Event) bool {
	switch {
	case f.Kind != "" && !strings.HasPrefix(string(ev.Kind), f.Kind):
	case f.Level != "" && ev.Level.Rank() < otel.Level(f.Level).Rank():
	case f.Comp != "" && ev.Comp != f.Comp:
	case f.Source != "" && ev.Source != f.Source:
	case f.Session != "" && !strings.HasPrefix(ev.SessionID, f.Session):
	default:
		return true
	}
	return false
}

func eventsCmd() *cobra.Command {
	var (
		filter  eventFilter
		tail    int
		follow  bool
		rawJSON bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the JSONL event journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.EventsPath()
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("no event journal at %s; run the browser first: %w", path, err)
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			show := func(l parsedLine) {
				if rawJSON {
					fmt.Fprintf(out, "%s\n", l.raw)
				} else {
					fmt.Fprintln(out, formatEvent(l.ev))
				}
			}

			for _, l := range readTailLines(f, tail, filter.match) {
				show(l)
			}
			if follow {
				return followLines(cmd.Context(), bufio.NewReader(f), filter.match, show)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&tail, "tail", 50, "number of recent lines to show")
	fl.BoolVarP(&follow, "follow", "f", false, "keep printing new lines")
	fl.StringVar(&filter.Kind, "kind", "", "event kind prefix (page, mirror, update, notify, ui, sys)")
	fl.StringVar(&filter.Level, "level", "", "minimum level: debug, info, warn, error")
	fl.StringVar(&filter.Comp, "comp", "", "emitting component")
	fl.StringVar(&filter.Source, "source", "", "data source name")
	fl.StringVar(&filter.Session, "session", "", "session id prefix")
	fl.BoolVar(&rawJSON, "json", false, "print raw JSON lines")
	return cmd
}

// formatEvent renders one journal event as a single human-readable line.
func formatEvent(ev otel.Event) string {
	lvl := "?"
	if ev.Level != "" {
		lvl = strings.ToUpper(string(ev.Level))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s [%-6s] %-16s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)
	field := func(format string, args ...any) {
		b.WriteByte(' ')
		fmt.Fprintf(&b, format, args...)
	}
	if ev.Msg != "" {
		field("%s", ev.Msg)
	}
	if ev.Source != "" {
		field("src=%s", ev.Source)
		if ev.Page > 0 {
			fmt.Fprintf(&b, "#%d", ev.Page)
		}
	}
	if ev.Gen > 0 {
		field("gen=%d", ev.Gen)
	}
	if ev.Target != "" {
		field("target=%s", ev.Target)
	}
	if ev.DurMs > 0 {
		field("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs)
	}
	if ev.Count > 0 {
		field("n=%d", ev.Count)
	}
	if ev.Err != "" {
		field("err=%s", ev.Err)
	}
	return b.String()
}

type parsedLine struct {
	ev  otel.Event
	raw []byte
}

// decodeLine parses one journal line. Blank, malformed and unmatched lines
// report false. raw is copied.
func decodeLine(raw []byte, match func(otel.Event) bool) (parsedLine, bool) {
	raw = bytes.TrimRight(raw, "\r\n")
	if len(raw) == 0 {
		return parsedLine{}, false
	}
	var ev otel.Event
	if json.Unmarshal(raw, &ev) != nil || !match(ev) {
		return parsedLine{}, false
	}
	return parsedLine{ev: ev, raw: bytes.Clone(raw)}, true
}

// readTailLines consumes r and returns its last n matching lines, oldest
// first.
func readTailLines(r io.Reader, n int, match func(otel.Event) bool) []parsedLine {
	if n <= 0 {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxJournalLine)

	// window is a circular buffer; seen counts every kept line
	window := make([]parsedLine, n)
	seen := 0
	for sc.Scan() {
		if l, ok := decodeLine(sc.Bytes(), match); ok {
			window[seen%n] = l
			seen++
		}
	}
	if seen <= n {
		return window[:seen]
	}
	start := seen % n
	return append(window[start:], window[:start]...)
}

// followLines polls r for appended lines until ctx is done. A line without
// its trailing newline waits for the rest.
func followLines(ctx context.Context, r *bufio.Reader, match func(otel.Event) bool, emit func(parsedLine)) error {
	var partial []byte
	for {
		chunk, err := r.ReadBytes('\n')
		partial = append(partial, chunk...)
		switch {
		case err == io.EOF:
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followPoll):
			}
		case err != nil:
			return err
		default:
			if l, ok := decodeLine(partial, match); ok {
				emit(l)
			}
			partial = partial[:0]
		}
	}
}

// durPrecision picks decimals so durations keep about three significant
// digits.
func durPrecision(ms float64) int {
	switch {
	case ms >= 100:
		return 0
	case ms >= 1:
		return 1
	default:
		return 2
	}
}
