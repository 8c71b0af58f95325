package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pewwatch/internal/config"
	"pewwatch/internal/eventbus"
	"pewwatch/internal/monitor"
	"pewwatch/internal/notify"
	"pewwatch/internal/observability/status"
	"pewwatch/internal/runtime/supervisor"
	"pewwatch/internal/storage"
	"pewwatch/internal/task/scheduler"
	"pewwatch/internal/transport"
	"pewwatch/internal/transport/telegram"
	"pewwatch/internal/transport/webhook"
	logx "pewwatch/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	hook   *webhook.Sender
	tg     *telegram.Sender
	sender transport.Sender

	dispatcher *notify.Dispatcher
	sched      *scheduler.Service
	tracker    *monitor.Tracker
	mon        *monitor.Service
	httpStatus *status.Server
}

// Status is a point-in-time view of the daemon.
type Status struct {
	Endpoints        []storage.EndpointState     `json:"endpoints"`
	Scheduler        scheduler.Snapshot          `json:"scheduler"`
	PendingRecovered int                         `json:"pending_recovered"`
	Goroutines       []supervisor.GoroutineStats `json:"goroutines,omitempty"`
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	whCfg, err := mapWebhookConfig(cfg)
	if err != nil {
		return nil, err
	}
	hook := webhook.New(whCfg)
	tg, err := telegram.New(mapTelegramConfig(cfg))
	if err != nil {
		return nil, err
	}
	var history transport.HistoryStore
	if store != nil {
		history = store
	}
	sender := transport.NewRecorder(transport.Multi{hook, tg}, history, log)

	ncfg, err := mapNotifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(ncfg, sender, nil, log, bus)

	mcfg, err := mapMonitorConfig(cfg)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(mapSchedulerConfig(cfg), log.With(logx.String("comp", "scheduler")))
	tracker := monitor.NewTracker(mcfg.DownAfter, dispatcher, store, bus, log)
	mon := monitor.NewService(mcfg, tracker, dispatcher, sched, log)

	a := &App{
		cfgPath:    cfgPath,
		cfgm:       cfgm,
		log:        log,
		logs:       logSvc,
		bus:        bus,
		store:      store,
		hook:       hook,
		tg:         tg,
		sender:     sender,
		dispatcher: dispatcher,
		sched:      sched,
		tracker:    tracker,
		mon:        mon,
	}
	a.httpStatus = status.New(mapStatusConfig(cfg), func() any { return a.Status() }, log)
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log)
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return ValidateConfig(cfg)
	})

	if err := a.tracker.Restore(ctx); err != nil {
		a.log.Warn("unable to restore endpoint states", logx.Err(err))
	}

	cfg := a.cfgm.Get()
	if err := a.mon.Apply(ctx, cfg.Endpoints); err != nil {
		return err
	}
	a.sched.Start(a.sup.Context())
	a.httpStatus.Start(a.sup.Context())

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				// Only the newest queued config matters.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started",
		logx.Int("endpoints", len(cfg.Endpoints)),
		logx.String("channel", transport.ChannelOf(a.sender)),
		logx.Duration("quiet_window", a.dispatcher.Coalescer().Window()),
	)
	return nil
}

// applyConfig hot-applies a reloaded config. Sections that cannot change at
// runtime keep their old values and log a warning.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range config.RestartRequired(oldCfg, newCfg) {
		a.log.Warn("config change requires restart to take effect", logx.String("section", s))
	}

	a.logs.Apply(mapLoggingConfig(newCfg))

	if whCfg, err := mapWebhookConfig(newCfg); err != nil {
		a.log.Warn("invalid slack config; keeping previous", logx.Err(err))
	} else {
		a.hook.Apply(whCfg)
	}
	if err := a.tg.Apply(mapTelegramConfig(newCfg)); err != nil {
		a.log.Warn("invalid telegram config; keeping previous", logx.Err(err))
	}

	a.sched.Apply(mapSchedulerConfig(newCfg))
	if mcfg, err := mapMonitorConfig(newCfg); err != nil {
		a.log.Warn("invalid monitor config; keeping previous", logx.Err(err))
	} else {
		a.mon.ApplyConfig(ctx, mcfg)
	}
	if err := a.mon.Apply(ctx, newCfg.Endpoints); err != nil {
		a.log.Warn("endpoint reconcile failed", logx.Err(err))
	}
	a.httpStatus.Reconfigure(ctx, mapStatusConfig(newCfg))

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Time: time.Now(), Data: sections})
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Status reports tracked endpoint states, the scheduler and pending recoveries.
func (a *App) Status() Status {
	st := Status{
		Endpoints:        a.tracker.Snapshot(),
		Scheduler:        a.sched.Snapshot(),
		PendingRecovered: a.dispatcher.Coalescer().Pending(),
	}
	if a.sup != nil {
		st.Goroutines = a.sup.Snapshot()
	}
	return st
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("status", 3*time.Second, func(c context.Context) error {
		a.httpStatus.Stop(c)
		return nil
	})
	step("scheduler", 5*time.Second, func(c context.Context) error {
		a.sched.Stop(c)
		return nil
	})
	// Recoveries still inside the quiet window are sent now rather than lost.
	step("notify.drain", 10*time.Second, func(context.Context) error {
		a.dispatcher.Coalescer().Drain()
		return nil
	})
	step("supervisor", 3*time.Second, a.sup.Stop)
	if a.store != nil {
		step("storage", 3*time.Second, func(context.Context) error {
			return a.store.Close()
		})
	}

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
