package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/universal/internal/project"
)

// RenderRows renders the projected rows, scrolled so the cursor is visible.
func RenderRows(rows []project.Presentation, cursor, width, height int, showImages bool) string {
	if len(rows) == 0 {
		return HelpStyle.Render("No records to display.")
	}

	if height < 1 {
		height = 1
	}
	offset := calcScrollOffset(len(rows), cursor, height)

	var b strings.Builder
	for i := offset; i < len(rows) && i < offset+height; i++ {
		b.WriteString(renderRow(rows[i], i == cursor, width, showImages))
		b.WriteString("\n")
	}
	return b.String()
}

// calcScrollOffset returns the first visible row index that keeps cursor
// within a viewport of height rows.
func calcScrollOffset(total, cursor, height int) int {
	if total == 0 || cursor < 0 {
		return 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	if cursor >= height {
		return cursor - height + 1
	}
	return 0
}

// renderRow renders one Presentation. Absent values are skipped; a row
// without a heading still shows its sub-headings.
func renderRow(p project.Presentation, selected bool, width int, showImages bool) string {
	var parts []string
	if p.HasHeading() {
		parts = append(parts, p.Heading)
	}
	if len(p.SubHeadings) > 0 {
		parts = append(parts, strings.Join(p.SubHeadings, " · "))
	}
	if showImages && p.Image != "" {
		parts = append(parts, p.Image)
	}

	suffix := ""
	if p.Map != nil {
		suffix = " ⌖"
	}

	textWidth := width - 4 - utf8.RuneCountInString(suffix)
	if textWidth < 20 {
		textWidth = 20
	}
	text := truncateRunes(strings.Join(parts, "  "), textWidth)

	if selected {
		return SelectedItem.Render(text + suffix)
	}
	if !p.HasHeading() {
		return MissingHeading.Render(text) + MapBadge.Render(suffix)
	}
	return NormalItem.Render(text) + MapBadge.Render(suffix)
}

// renderTabs renders the data source tabs with the active one highlighted.
func renderTabs(labels []string, active, width int) string {
	var tabs []string
	for i, l := range labels {
		if i == active {
			tabs = append(tabs, TabActive.Render(l))
		} else {
			tabs = append(tabs, TabInactive.Render(l))
		}
	}
	line := strings.Join(tabs, " ")
	if pad := width - lipgloss.Width(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	return line
}

// RenderStatusBar renders the bottom status bar with key hints and row count.
func RenderStatusBar(cursor, total, width int, fetching, exhausted bool, spin string) string {
	var position string
	switch {
	case fetching:
		position = fmt.Sprintf(" %s loading %d ", spin, total)
	case total == 0:
		position = " 0/0 "
	default:
		position = fmt.Sprintf(" %d/%d ", cursor+1, total)
	}
	if exhausted && !fetching {
		position += "end "
	}

	keys := []string{
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("tab") + StatusBarText.Render(":source"),
		StatusBarKey.Render("e") + StatusBarText.Render(":edit"),
		StatusBarKey.Render("n") + StatusBarText.Render(":notify"),
		StatusBarKey.Render("m") + StatusBarText.Render(":map"),
		StatusBarKey.Render("D") + StatusBarText.Render(":debug"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}

	bar := position + strings.Repeat(" ", padding) + keyHints
	return StatusBar.Width(width).Render(bar)
}

// truncateRunes shortens s to at most n runes, marking the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
