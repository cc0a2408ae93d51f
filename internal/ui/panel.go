package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/universal/internal/notify"
	"github.com/abelbrown/universal/internal/source"
)

// renderNotifyPanel lists the notification targets with their job status.
// Targets whose job is sending render without the send hint.
func renderNotifyPanel(targets []source.Target, jobs map[string]notify.Job, cursor int, loading bool, width int) string {
	lines := []string{PanelHeader.Render("Send to")}

	switch {
	case loading:
		lines = append(lines, "  loading targets...")
	case len(targets) == 0:
		lines = append(lines, "  no targets registered")
	}

	for i, t := range targets {
		marker := "  "
		if i == cursor {
			marker = "> "
		}
		status := notify.StatusIdle
		if j, ok := jobs[t.AppName]; ok {
			status = j.Status
		}
		lines = append(lines, marker+targetLabel(t)+"  "+statusBadge(status))
	}

	lines = append(lines, "", StatusBarText.Render("enter:send  a:send all  esc:close"))

	return Panel.Width(clampWidth(48, width)).Render(strings.Join(lines, "\n"))
}

func statusBadge(s notify.Status) string {
	var style lipgloss.Style
	switch s {
	case notify.StatusSending:
		style = JobSending
	case notify.StatusSent:
		style = JobSent
	case notify.StatusFailed:
		style = JobFailed
	default:
		style = JobIdle
	}
	return style.Render(string(s))
}

// renderEditBar renders the inline editor for field.
func renderEditBar(field, input string, committing bool, spin string, width int) string {
	content := EditBarPrompt.Render(field+": ") + input
	if committing {
		content += " " + spin + " saving"
	}
	if pad := width - lipgloss.Width(content) - 2; pad > 0 {
		content += strings.Repeat(" ", pad)
	}
	return EditBar.Width(width).Render(content)
}

func targetLabel(t source.Target) string {
	if t.Name != "" {
		return t.Name
	}
	return t.AppName
}
