// Package notify is the Notification Dispatcher: it discovers the target
// applications once per session and pushes a record to any of them, tracking
// each target's job independently.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/universal/internal/logging"
	"github.com/abelbrown/universal/internal/otel"
	"github.com/abelbrown/universal/internal/record"
	"github.com/abelbrown/universal/internal/source"
	"github.com/abelbrown/universal/internal/store"
)

const comp = "notify"

// maxConcurrentSends bounds SendAll fan-out.
const maxConcurrentSends = 4

// Status is the lifecycle of a Job.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Job is the latest send to one target.
type Job struct {
	ID         string
	Target     source.Target
	Record     record.Record
	Status     Status
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Notifier is the backend surface the dispatcher uses.
type Notifier interface {
	Notify(ctx context.Context, n source.Notification) error
	Targets(ctx context.Context) ([]source.Target, error)
}

// Composer turns a record into the notification body for a target.
type Composer interface {
	Compose(rec record.Record, target source.Target) source.Notification
}

// Dispatcher tracks one Job per target AppName. There is no global sending
// flag and no retry: duplicate triggers are gated by the caller.
type Dispatcher struct {
	client   Notifier
	mirror   store.Mirror
	composer Composer
	journal  *otel.Logger

	targetsMu sync.Mutex
	targets   []source.Target
	loaded    bool

	mu   sync.Mutex
	jobs map[string]Job
}

// New creates a Dispatcher. journal may be nil.
func New(client Notifier, mirror store.Mirror, composer Composer, journal *otel.Logger) *Dispatcher {
	return &Dispatcher{
		client:   client,
		mirror:   mirror,
		composer: composer,
		journal:  journal,
		jobs:     make(map[string]Job),
	}
}

// ListTargets returns the notification targets. The first call reads the
// mirror, falling back to the network, and caches the result under
// store.KeyNotificationTargets; later calls return that list even if empty.
// A network failure is returned and not cached, so the next call retries.
func (d *Dispatcher) ListTargets(ctx context.Context) ([]source.Target, error) {
	d.targetsMu.Lock()
	defer d.targetsMu.Unlock()

	if d.loaded {
		return cloneTargets(d.targets), nil
	}

	var cached []source.Target
	if store.LoadJSON(d.mirror, store.KeyNotificationTargets, &cached) && cached != nil {
		d.targets, d.loaded = cached, true
		return cloneTargets(cached), nil
	}

	targets, err := d.client.Targets(ctx)
	if err != nil {
		logging.Warn("target discovery failed", "err", err)
		d.journal.Error(otel.KindNotifyError, comp, err)
		return nil, err
	}
	if targets == nil {
		targets = []source.Target{}
	}
	if err := store.SaveJSON(d.mirror, store.KeyNotificationTargets, targets); err != nil {
		logging.Error("target cache write failed", "err", err)
	}
	d.targets, d.loaded = targets, true
	d.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindTargetsLoad, Comp: comp, Count: len(targets)})
	return cloneTargets(targets), nil
}

// Send pushes rec to target and returns the finished Job. The job is
// visible as sending through Job while the request is in flight.
func (d *Dispatcher) Send(ctx context.Context, target source.Target, rec record.Record) Job {
	job := Job{
		ID:        uuid.NewString(),
		Target:    target,
		Record:    rec,
		Status:    StatusSending,
		StartedAt: time.Now(),
	}
	d.put(job)
	d.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindNotifySend, Comp: comp, Target: target.AppName, Msg: job.ID})

	err := d.client.Notify(ctx, d.composer.Compose(rec, target))

	job.FinishedAt = time.Now()
	dur := job.FinishedAt.Sub(job.StartedAt)
	if err != nil {
		job.Status = StatusFailed
		job.Err = err
		logging.Warn("notification failed", "target", target.AppName, "err", err)
		d.journal.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindNotifyError, Comp: comp, Target: target.AppName, Err: err.Error(), Dur: dur})
	} else {
		job.Status = StatusSent
		d.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindNotifySent, Comp: comp, Target: target.AppName, Dur: dur})
	}
	d.put(job)
	return job
}

// SendAll sends rec to every target concurrently. One target's failure
// never affects another. Jobs are returned in target order.
func (d *Dispatcher) SendAll(ctx context.Context, targets []source.Target, rec record.Record) []Job {
	out := make([]Job, len(targets))

	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)
	for i, t := range targets {
		g.Go(func() error {
			out[i] = d.Send(ctx, t, rec)
			return nil // failures live on the job
		})
	}
	_ = g.Wait()
	return out
}

// Job returns the latest job for appName. A target never sent to reports
// StatusIdle and false.
func (d *Dispatcher) Job(appName string) (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, ok := d.jobs[appName]
	if !ok {
		return Job{Status: StatusIdle}, false
	}
	return j, true
}

// Status is shorthand for the latest job status of appName.
func (d *Dispatcher) Status(appName string) Status {
	j, _ := d.Job(appName)
	return j.Status
}

// Jobs returns a snapshot of every tracked job keyed by AppName.
func (d *Dispatcher) Jobs() map[string]Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]Job, len(d.jobs))
	for k, v := range d.jobs {
		out[k] = v
	}
	return out
}

func (d *Dispatcher) put(j Job) {
	d.mu.Lock()
	d.jobs[j.Target.AppName] = j
	d.mu.Unlock()
}

func cloneTargets(ts []source.Target) []source.Target {
	return append([]source.Target{}, ts...)
}
