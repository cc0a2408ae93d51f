// Package ui provides the Bubble Tea TUI for the record browser.
package ui

import (
	"github.com/abelbrown/universal/internal/bus"
	"github.com/abelbrown/universal/internal/edit"
	"github.com/abelbrown/universal/internal/notify"
	"github.com/abelbrown/universal/internal/paging"
	"github.com/abelbrown/universal/internal/source"
)

// PageFetched is sent when a page request returns, successfully or not.
type PageFetched struct {
	Result paging.Result
}

// RecordUpdated is sent when an edit arrives on the Update Bus.
type RecordUpdated struct {
	Event bus.UpdateEvent
}

// EditCommitted is sent when an inline edit finishes.
// Err is set when the server rejected the write.
type EditCommitted struct {
	Target edit.Target
	Value  any
	Err    error
}

// TargetsLoaded is sent when notification targets are known.
type TargetsLoaded struct {
	Targets []source.Target
	Err     error
}

// NotificationDone is sent when one target's send finishes.
type NotificationDone struct {
	Job notify.Job
}
