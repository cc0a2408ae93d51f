package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/universal/internal/bus"
	"github.com/abelbrown/universal/internal/config"
	"github.com/abelbrown/universal/internal/edit"
	"github.com/abelbrown/universal/internal/notify"
	"github.com/abelbrown/universal/internal/otel"
	"github.com/abelbrown/universal/internal/paging"
	"github.com/abelbrown/universal/internal/project"
	"github.com/abelbrown/universal/internal/record"
	"github.com/abelbrown/universal/internal/source"
)

// Pager is the pagination state machine the browser drives.
// *paging.Engine satisfies it.
type Pager interface {
	Mount(dataSource string) *paging.Request
	OnSourceChange(dataSource string) *paging.Request
	OnProximityReached() *paging.Request
	Fetch(ctx context.Context, req paging.Request) paging.Result
	Apply(res paging.Result) bool
	ApplyUpdate(idField string, recordID any, field string, value any) bool
	State() paging.PageState
}

// AppConfig holds the collaborators of App. App never touches the backend
// client or the mirror directly: writes and notifications arrive as
// tea.Cmd factories and come back as messages.
type AppConfig struct {
	Sources       []config.DataSource
	ProximityRows int
	ShowImages    bool

	Pager     Pager
	Projector *project.Projector

	Commit      func(target edit.Target, value string) tea.Cmd
	LoadTargets func() tea.Cmd
	Notify      func(target source.Target, rec record.Record) tea.Cmd

	Updates <-chan bus.UpdateEvent // Update Bus feed; nil disables live edits

	Ring    *otel.RingBuffer // debug overlay source; nil hides the overlay
	Journal *otel.Logger
}

// App is the root Bubble Tea model.
type App struct {
	cfg AppConfig

	active    int
	items     []record.Record
	rows      []project.Presentation
	cursor    int
	fetching  bool
	exhausted bool

	err    error
	info   string
	width  int
	height int
	ready  bool

	spinner spinner.Model

	editing    bool
	committing bool
	input      textinput.Model
	editTarget edit.Target

	panelOpen      bool
	panelCursor    int
	targets        []source.Target
	targetsLoaded  bool
	targetsLoading bool
	jobs           map[string]notify.Job

	showDebug bool
}

// NewApp creates an App. cfg.Pager and cfg.Projector are required.
func NewApp(cfg AppConfig) App {
	if cfg.ProximityRows <= 0 {
		cfg.ProximityRows = 3
	}

	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 256

	return App{
		cfg:     cfg,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:   in,
		jobs:    make(map[string]notify.Job),
	}
}

// Init mounts the first data source and starts listening on the Update Bus.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, waitForUpdate(a.cfg.Updates)}
	if len(a.cfg.Sources) > 0 {
		cmds = append(cmds, a.fetchCmd(a.cfg.Pager.Mount(a.cfg.Sources[0].Name)))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	otel.TraceMsg(a.cfg.Journal, "ui", msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.syncState()
		cmd := a.maybeProximity()
		return a, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case PageFetched:
		if !a.cfg.Pager.Apply(msg.Result) {
			return a, nil
		}
		a.syncState()
		cmd := a.maybeProximity()
		return a, cmd

	case RecordUpdated:
		if ds, ok := a.source(); ok {
			ev := msg.Event
			if a.cfg.Pager.ApplyUpdate(ds.Fields.IDField, ev.RecordID, ev.FieldName, ev.Value) {
				a.syncState()
			}
		}
		return a, waitForUpdate(a.cfg.Updates)

	case EditCommitted:
		a.committing = false
		a.editing = false
		a.input.Blur()
		if msg.Err != nil {
			a.err = fmt.Errorf("edit %s: %s", msg.Target.Field, source.UserMessage(msg.Err))
		} else {
			a.info = fmt.Sprintf("%s saved", msg.Target.Field)
		}
		return a, nil

	case TargetsLoaded:
		a.targetsLoading = false
		if msg.Err != nil {
			a.err = fmt.Errorf("load targets: %s", source.UserMessage(msg.Err))
			return a, nil
		}
		a.targets = msg.Targets
		a.targetsLoaded = true
		if a.panelCursor >= len(a.targets) {
			a.panelCursor = 0
		}
		return a, nil

	case NotificationDone:
		job := msg.Job
		a.jobs[job.Target.AppName] = job
		if job.Status == notify.StatusFailed {
			a.err = fmt.Errorf("notify %s: %s", targetLabel(job.Target), source.UserMessage(job.Err))
		} else {
			a.info = "sent to " + targetLabel(job.Target)
		}
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.cfg.Journal.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: msg.String()})

	// Clear any existing message on key press
	a.err = nil
	a.info = ""

	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.editing {
		return a.handleEditKey(msg)
	}
	if a.panelOpen {
		return a.handlePanelKey(msg)
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit

	case "j", "down":
		if a.cursor < len(a.rows)-1 {
			a.cursor++
		}
		cmd := a.maybeProximity()
		return a, cmd

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		return a, nil

	case "G", "end":
		if len(a.rows) > 0 {
			a.cursor = len(a.rows) - 1
		}
		cmd := a.maybeProximity()
		return a, cmd

	case "tab":
		return a.switchSource(1)

	case "shift+tab":
		return a.switchSource(-1)

	case "r":
		return a.switchSource(0)

	case "e":
		return a.startEdit()

	case "n":
		a.panelOpen = true
		if !a.targetsLoaded && !a.targetsLoading && a.cfg.LoadTargets != nil {
			a.targetsLoading = true
			return a, a.cfg.LoadTargets()
		}
		return a, nil

	case "m":
		if rec, ok := a.selectedRow(); ok {
			if rec.Map != nil {
				a.info = "map: " + rec.Map.URL
			} else {
				a.info = "no location for this record"
			}
		}
		return a, nil

	case "D":
		if a.cfg.Ring != nil {
			a.showDebug = !a.showDebug
		}
		return a, nil
	}

	return a, nil
}

func (a App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if !a.committing {
			a.editing = false
			a.input.Blur()
		}
		return a, nil

	case "enter":
		if a.committing || a.cfg.Commit == nil {
			return a, nil
		}
		a.committing = true
		return a, a.cfg.Commit(a.editTarget, a.input.Value())
	}

	if a.committing {
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n", "q":
		a.panelOpen = false
		return a, nil

	case "j", "down":
		if a.panelCursor < len(a.targets)-1 {
			a.panelCursor++
		}
		return a, nil

	case "k", "up":
		if a.panelCursor > 0 {
			a.panelCursor--
		}
		return a, nil

	case "enter":
		if a.panelCursor < len(a.targets) {
			return a, a.send(a.targets[a.panelCursor])
		}
		return a, nil

	case "a":
		var cmds []tea.Cmd
		for _, t := range a.targets {
			cmds = append(cmds, a.send(t))
		}
		return a, tea.Batch(cmds...)
	}
	return a, nil
}

// send starts a notification job for t unless one is already in flight.
// The map is shared with copies of App, so the gate holds across updates.
func (a App) send(t source.Target) tea.Cmd {
	if a.cfg.Notify == nil {
		return nil
	}
	if a.jobs[t.AppName].Status == notify.StatusSending {
		return nil
	}
	rec, ok := a.selectedRecord()
	if !ok {
		return nil
	}
	a.jobs[t.AppName] = notify.Job{Target: t, Record: rec, Status: notify.StatusSending}
	return a.cfg.Notify(t, rec)
}

func (a App) switchSource(delta int) (tea.Model, tea.Cmd) {
	n := len(a.cfg.Sources)
	if n == 0 {
		return a, nil
	}
	a.active = ((a.active+delta)%n + n) % n
	a.cursor = 0
	req := a.cfg.Pager.OnSourceChange(a.cfg.Sources[a.active].Name)
	a.syncState()
	return a, a.fetchCmd(req)
}

func (a App) startEdit() (tea.Model, tea.Cmd) {
	ds, ok := a.source()
	if !ok || ds.EditField == "" || a.cfg.Commit == nil {
		return a, nil
	}
	rec, ok := a.selectedRecord()
	if !ok {
		return a, nil
	}

	a.editTarget = edit.Target{DataSource: ds.Name, RecordID: rec.ID(ds.Fields), Field: ds.EditField}
	current, _ := rec.Text(ds.EditField)
	a.input.SetValue(current)
	a.input.CursorEnd()
	a.editing = true
	cmd := a.input.Focus()
	return a, cmd
}

// syncState copies the pager snapshot and re-projects the rows.
func (a *App) syncState() {
	s := a.cfg.Pager.State()
	a.items = s.Items
	a.fetching = s.Fetching
	a.exhausted = s.Exhausted

	fm := record.FieldMap{}
	if ds, ok := a.source(); ok {
		fm = ds.Fields
	}
	a.rows = make([]project.Presentation, len(a.items))
	for i, rec := range a.items {
		a.rows[i] = a.cfg.Projector.Project(rec, fm)
	}
	if a.cursor >= len(a.rows) {
		a.cursor = len(a.rows) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// maybeProximity raises the proximity signal when the end of the list is
// within ProximityRows of the cursor or already on screen.
func (a *App) maybeProximity() tea.Cmd {
	n := len(a.rows)
	if n == 0 {
		return nil
	}
	if n-1-a.cursor >= a.cfg.ProximityRows && n > a.listHeight() {
		return nil
	}
	req := a.cfg.Pager.OnProximityReached()
	if req == nil {
		return nil
	}
	a.fetching = true
	return a.fetchCmd(req)
}

func (a App) fetchCmd(req *paging.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	pager := a.cfg.Pager
	r := *req
	return func() tea.Msg {
		return PageFetched{Result: pager.Fetch(context.Background(), r)}
	}
}

// waitForUpdate blocks on the bus feed and delivers one event.
func waitForUpdate(ch <-chan bus.UpdateEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return RecordUpdated{Event: ev}
	}
}

func (a App) source() (config.DataSource, bool) {
	if a.active < 0 || a.active >= len(a.cfg.Sources) {
		return config.DataSource{}, false
	}
	return a.cfg.Sources[a.active], true
}

func (a App) selectedRecord() (record.Record, bool) {
	if a.cursor < 0 || a.cursor >= len(a.items) {
		return nil, false
	}
	return a.items[a.cursor], true
}

func (a App) selectedRow() (project.Presentation, bool) {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return project.Presentation{}, false
	}
	return a.rows[a.cursor], true
}

// listHeight is the number of rows available to the record list.
func (a App) listHeight() int {
	h := a.height - 2 // tabs + status bar
	if a.err != nil || a.info != "" {
		h--
	}
	if a.editing {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		return debugOverlay(a.cfg.Ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	labels := make([]string, len(a.cfg.Sources))
	for i, ds := range a.cfg.Sources {
		labels[i] = ds.Label()
	}
	out := renderTabs(labels, a.active, a.width) + "\n"

	if a.panelOpen {
		out += renderNotifyPanel(a.targets, a.jobs, a.panelCursor, a.targetsLoading, a.width) + "\n"
	} else {
		out += RenderRows(a.rows, a.cursor, a.width, a.listHeight(), a.cfg.ShowImages)
	}

	if a.editing {
		out += renderEditBar(a.editTarget.Field, a.input.View(), a.committing, a.spinner.View(), a.width) + "\n"
	}
	if a.err != nil {
		out += ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()+" (press any key to dismiss)") + "\n"
	} else if a.info != "" {
		out += InfoStyle.Width(a.width).Render(a.info) + "\n"
	}

	return out + RenderStatusBar(a.cursor, len(a.rows), a.width, a.fetching, a.exhausted, a.spinner.View())
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Items returns the current records (for testing).
func (a App) Items() []record.Record {
	return a.items
}

// Rows returns the projected rows (for testing).
func (a App) Rows() []project.Presentation {
	return a.rows
}

// Err returns the error shown in the error bar, if any.
func (a App) Err() error {
	return a.err
}

// JobStatus returns the UI-side status of the last send to appName.
func (a App) JobStatus(appName string) notify.Status {
	if j, ok := a.jobs[appName]; ok {
		return j.Status
	}
	return notify.StatusIdle
}
