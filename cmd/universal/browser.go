package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"

	"github.com/abelbrown/universal/internal/bus"
	"github.com/abelbrown/universal/internal/config"
	"github.com/abelbrown/universal/internal/edit"
	"github.com/abelbrown/universal/internal/logging"
	"github.com/abelbrown/universal/internal/notify"
	"github.com/abelbrown/universal/internal/otel"
	"github.com/abelbrown/universal/internal/paging"
	"github.com/abelbrown/universal/internal/project"
	"github.com/abelbrown/universal/internal/record"
	"github.com/abelbrown/universal/internal/source"
	"github.com/abelbrown/universal/internal/ui"
)

// activeComposer composes notifications with the field map of whatever data
// source the engine is currently showing.
type activeComposer struct {
	cfg       *config.Config
	engine    *paging.Engine
	projector *project.Projector
}

func (c activeComposer) Compose(rec record.Record, target source.Target) source.Notification {
	name := c.engine.State().Source
	ds, _ := c.cfg.DataSource(name)
	return notify.ProjectedComposer{
		Projector:  c.projector,
		FieldMap:   ds.Fields,
		DataSource: name,
		LinkBase:   c.cfg.API.LinkBase,
	}.Compose(rec, target)
}

func runBrowser(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir, err := dataDir()
	if err != nil {
		return err
	}
	if err := logging.Init(dir, viper.GetBool("debug")); err != nil {
		return err
	}
	defer logging.Close()

	journal, closeJournal, err := openJournal()
	if err != nil {
		return err
	}
	defer closeJournal()
	ring := otel.NewRingBuffer(256)
	journal.SetRingBuffer(ring)
	if !viper.GetBool("debug") {
		journal.SetMinLevel(otel.LevelInfo)
	}

	mirror, err := openMirror()
	if err != nil {
		return err
	}
	defer mirror.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	client := newClient(cfg)
	engine := paging.New(client, mirror, journal)
	projector := newProjector(cfg)
	updates := bus.New()
	dispatcher := notify.New(client, mirror, activeComposer{cfg: cfg, engine: engine, projector: projector}, journal)

	feed, unsubscribe := updates.Chan(64)
	defer unsubscribe()

	app := ui.NewApp(ui.AppConfig{
		Sources:       cfg.DataSources,
		ProximityRows: cfg.UI.ProximityRows,
		ShowImages:    cfg.UI.ShowImages,
		Pager:         engine,
		Projector:     projector,
		// commit: server write first, then the bus carries the echo to rows
		Commit: func(target edit.Target, value string) tea.Cmd {
			return func() tea.Msg {
				ed := edit.New(client, updates, target, nil).WithJournal(journal)
				err := ed.Commit(ctx, value)
				return ui.EditCommitted{Target: target, Value: value, Err: err}
			}
		},
		LoadTargets: func() tea.Cmd {
			return func() tea.Msg {
				targets, err := dispatcher.ListTargets(ctx)
				return ui.TargetsLoaded{Targets: targets, Err: err}
			}
		},
		Notify: func(target source.Target, rec record.Record) tea.Cmd {
			return func() tea.Msg {
				return ui.NotificationDone{Job: dispatcher.Send(ctx, target, rec)}
			}
		},
		Updates: feed,
		Ring:    ring,
		Journal: journal,
	})

	journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: client.BaseURL(), Count: len(cfg.DataSources)})
	logging.Info("starting", "api", client.BaseURL(), "sources", len(cfg.DataSources), "no_cache", viper.GetBool("no-cache"))

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()

	journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})
	if runErr != nil {
		logging.Error("program exited", "err", runErr)
		return fmt.Errorf("run browser: %w", runErr)
	}
	return nil
}
