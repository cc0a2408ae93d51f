package ui

import "github.com/charmbracelet/lipgloss"

// Palette (256-colour codes).
var (
	accent  = lipgloss.Color("62")  // purple: selection, active tab, panel border
	dim     = lipgloss.Color("241") // sub-headings, hints
	faint   = lipgloss.Color("240") // placeholders, idle jobs
	hot     = lipgloss.Color("212") // keys, headers, in-flight jobs
	good    = lipgloss.Color("78")  // info bar, map badge, sent jobs
	bad     = lipgloss.Color("196") // errors
	bright  = lipgloss.Color("255")
	surface = lipgloss.Color("236") // bars and inactive tabs
)

// Every single-line bar and row shares one padded base.
var padded = lipgloss.NewStyle().Padding(0, 1)

// List rows.
var (
	SelectedItem   = padded.Bold(true).Foreground(bright).Background(accent)
	NormalItem     = padded.Foreground(bright)
	MissingHeading = padded.Foreground(faint).Italic(true)
	SubHeading     = lipgloss.NewStyle().Foreground(dim)
	MapBadge       = lipgloss.NewStyle().Foreground(good)
)

// Data source tabs: the active tab looks like a selected row.
var (
	TabActive   = SelectedItem
	TabInactive = padded.Foreground(dim).Background(surface)
)

// Bottom bars.
var (
	StatusBar     = padded.Foreground(bright).Background(surface)
	StatusBarKey  = lipgloss.NewStyle().Foreground(hot).Bold(true)
	StatusBarText = lipgloss.NewStyle().Foreground(dim)
	ErrorStyle    = padded.Foreground(bad).Bold(true)
	InfoStyle     = padded.Foreground(good)
	HelpStyle     = lipgloss.NewStyle().Foreground(faint).Padding(1, 2)
)

// Inline editor.
var (
	EditBar       = padded.Foreground(bright).Background(faint)
	EditBarPrompt = StatusBarKey
)

// Notification panel and job badges.
var (
	Panel       = padded.Border(lipgloss.RoundedBorder()).BorderForeground(accent)
	PanelHeader = lipgloss.NewStyle().Bold(true).Foreground(hot)

	JobIdle    = lipgloss.NewStyle().Foreground(faint)
	JobSending = lipgloss.NewStyle().Foreground(hot)
	JobSent    = lipgloss.NewStyle().Foreground(good)
	JobFailed  = lipgloss.NewStyle().Foreground(bad)
)

// Debug overlay (D).
var (
	DebugPanel       = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(faint).Padding(1, 2)
	DebugHeaderStyle = PanelHeader
)
