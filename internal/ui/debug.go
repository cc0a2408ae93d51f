package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/universal/internal/otel"
)

// debugChrome is the height DebugPanel's border and padding add.
const debugChrome = 4

// recentEvents caps the event list in the overlay.
const recentEvents = 20

// debugOverlay renders journal counters and the newest events. It returns
// "" without a ring buffer.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}
	s := ring.Summarize()

	lines := []string{
		DebugHeaderStyle.Render("Browser Stats"),
		fmt.Sprintf("  pages   %d loaded · %d failed · %d stale · %d exhausted", s.PagesLoaded, s.PageErrors, s.StalePages, s.Exhausted),
		fmt.Sprintf("  mirror  %d hits · %d healed · %d write errors", s.MirrorHits, s.MirrorHealed, s.MirrorErrors),
		fmt.Sprintf("  edits   %d saved · %d rejected", s.EditsCommitted, s.EditsRejected),
		fmt.Sprintf("  notify  %d sent · %d failed", s.Sent, s.SendFailures),
		fmt.Sprintf("  journal %d/%d buffered", ring.Len(), ring.Cap()),
	}
	if s.LastError != nil {
		lines = append(lines, ErrorStyle.Render("  last error: "+truncateRunes(string(s.LastError.Kind)+" "+s.LastError.Err, 60)))
	}
	lines = append(lines, "", DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(recentEvents) {
		lines = append(lines, describeEvent(e, time.Since(e.Time)))
	}

	if limit := max(height-debugChrome, 1); len(lines) > limit {
		lines = lines[:limit]
	}
	return DebugPanel.Width(clampWidth(84, width)).Render(strings.Join(lines, "\n"))
}

// describeEvent is one overlay line: age, kind, then whichever of
// source#page, target, message and error the event carries.
func describeEvent(e otel.Event, age time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %6s  %-16s", formatAge(age), e.Kind)
	if e.Source != "" {
		b.WriteString("  " + e.Source)
		if e.Page > 0 {
			fmt.Fprintf(&b, "#%d", e.Page)
		}
	}
	if e.Target != "" {
		b.WriteString("  →" + e.Target)
	}
	if e.Msg != "" {
		b.WriteString("  " + truncateRunes(e.Msg, 40))
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	return b.String()
}

// clampWidth fits a panel of the preferred width into the terminal.
func clampWidth(preferred, width int) int {
	return max(min(preferred, width-4), 20)
}

// formatAge renders d compactly; negative ages (clock skew) read as 0ms.
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func debugStatusBar(width int) string {
	return StatusBar.Width(width).Render("  [DEBUG]  " + StatusBarKey.Render("D") + StatusBarText.Render(":close"))
}
