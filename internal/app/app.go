package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"aide/internal/config"
	"aide/internal/enrich"
	"aide/internal/scheduler"
	"aide/internal/store"
	"aide/internal/store/primary"
	"aide/internal/supervisor"
)

// App wires the stores, enricher, supervisor and scheduler for the commands.
type App struct {
	Config *config.Config

	Queue    store.JobQueue
	Contacts store.ContactStore
	Messages store.MessageStore

	Enricher   *enrich.Enricher
	Supervisor *supervisor.Supervisor
	Scheduler  *scheduler.Scheduler

	primaryStore *primary.StoreImpl
}

func NewApp(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	if err := app.initPrimaryStore(context.Background()); err != nil {
		return nil, err
	}
	app.initEnricher()
	app.initSupervisor()
	if err := app.initScheduler(); err != nil {
		app.Close()
		return nil, err
	}

	log.Debugf("Application initialized (db: %s, agent: %s)", cfg.Database.Path, cfg.Agent.Binary)
	return app, nil
}

func (a *App) initPrimaryStore(ctx context.Context) error {
	ps, err := primary.NewPrimaryStore(ctx, a.Config.Database.Path)
	if err != nil {
		return fmt.Errorf("init primary store: %w", err)
	}
	a.primaryStore = ps
	a.Queue = ps
	a.Contacts = ps
	a.Messages = ps
	return nil
}

func (a *App) initEnricher() {
	a.Enricher = enrich.New(a.Contacts, a.Messages, a.Config.Context.ChannelTag, a.Config.Context.HistoryLimit)
}

func (a *App) initSupervisor() {
	runner := supervisor.NewProcessRunner(a.Config.Agent.Binary, a.Config.Agent.Args, a.Config.Agent.KillGrace)
	a.Supervisor = supervisor.New(a.Queue, a.Enricher, runner, a.Config.Agent.Timeout)
}

func (a *App) initScheduler() error {
	sched, err := scheduler.New(a.Queue, a.Config.Schedules)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	a.Scheduler = sched
	return nil
}

func (a *App) Close() {
	if a.primaryStore != nil {
		if err := a.primaryStore.Close(); err != nil {
			log.Errorf("Error closing primary store: %v", err)
		}
	}
}
