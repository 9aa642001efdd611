package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"planner/internal/agenda"
	"planner/internal/config"
	"planner/internal/eventbus"
	"planner/internal/httpapi"
	"planner/internal/notifier"
	"planner/internal/planner"
	"planner/internal/reminder"
	rtsup "planner/internal/runtime/supervisor"
	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/transport"
	"planner/internal/transport/console"
	"planner/internal/transport/telegram"
	logx "planner/pkg/logx"
)

type Options struct {
	ConfigPath string
	// UI overrides ui.adapter from the file.
	UI string

	// In and Out back the console UI; they default to stdin and stdout.
	In  io.Reader
	Out io.Writer
}

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor
	ui   string

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store     storage.Store
	loc       *time.Location
	adapter   transport.Adapter
	registry  *task.Registry
	reminders *reminder.Service
	notif     *notifier.Service
	planner   *planner.Service
	agenda    *agenda.Service
	http      *httpapi.Server

	updates chan transport.Update
	quit    atomic.Bool
}

// NewApp loads the config and builds every component. Nothing runs until Start.
func NewApp(opts Options) (*App, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfgm := config.NewManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	ui := uiName(opts.UI, cfg)
	switch ui {
	case console.Channel:
	case telegram.Channel:
		if errs := config.ValidateTelegram(cfg.Telegram); len(errs) > 0 {
			return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
		}
	default:
		return nil, fmt.Errorf("unknown ui %q (want console or telegram)", ui)
	}

	// The console UI owns stdout; logs go to stderr there.
	logOut := logx.Stdout()
	if ui == console.Channel {
		logOut = logx.Stderr()
	}
	logSvc, root := logx.NewTo(logConfig(cfg), logOut)
	log := root.Component("app")

	loc, err := config.LoadLocation("reminder.timezone", cfg.Reminder.Timezone)
	if err != nil {
		return nil, err
	}

	var ad transport.Adapter
	if ui == telegram.Channel {
		tc, err := telegramConfig(cfg)
		if err != nil {
			return nil, err
		}
		tg, err := telegram.New(tc, root.Component("telegram"))
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		ad = tg
	} else {
		ad = console.New(opts.In, opts.Out, root.Component("console"))
	}

	sc, err := storageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, root.Component("storage"))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if store != nil {
		log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	bus := eventbus.New()
	registry := task.NewRegistry()

	ncfg, err := notifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, root.Component("notifier"), bus)

	// The reminder loop delivers through the planner, which needs the loop to
	// schedule; the sink closes over the planner built just below.
	var core *planner.Service
	reminders := reminder.New(reminder.SinkFunc(func(ctx context.Context, r reminder.Reminder) {
		core.Deliver(ctx, r)
	}), root.Component("reminder"), bus)

	core = planner.New(planner.Deps{
		Registry:  registry,
		Scheduler: reminders,
		Notifier:  notif,
		UI:        ad,
		Store:     store,
		Bus:       bus,
		Log:       root.Component("planner"),
		Location:  loc,
	})

	acfg, skipped, err := agendaConfig(cfg, ui, loc)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		log.Warn("agenda targets ignored for this ui", logx.String("ui", ui), logx.Int("count", len(skipped)))
	}
	ag := agenda.New(acfg, registry, notif, root.Component("agenda"), bus)

	srv := httpapi.New(httpapi.Deps{
		Tasks:     registry,
		Reminders: reminders,
		History:   notif,
		Store:     store,
		Location:  loc,
	}, root.Component("http"))

	return &App{
		cfgm:      cfgm,
		ui:        ui,
		log:       log,
		logs:      logSvc,
		bus:       bus,
		store:     store,
		loc:       loc,
		adapter:   ad,
		registry:  registry,
		reminders: reminders,
		notif:     notif,
		planner:   core,
		agenda:    ag,
		http:      srv,
		updates:   make(chan transport.Update, 64),
	}, nil
}

func (a *App) Planner() *planner.Service { return a.planner }

// Done is closed when the app stops on its own (quit or fatal error) or Stop runs.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Reason says why Done closed, when the app stopped on its own.
func (a *App) Reason() StopReason {
	switch {
	case a.quit.Load():
		return StopQuit
	case a.Err() != nil:
		return StopFatalError
	default:
		return StopUnknown
	}
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.Component("config"))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		if a.ui == telegram.Channel {
			return errors.Join(config.ValidateTelegram(cfg.Telegram)...)
		}
		return nil
	})

	// Services outlive the app loops so Stop can drain them in order.
	svcCtx := context.WithoutCancel(ctx)

	a.notif.Start(svcCtx)
	a.reminders.Start(svcCtx)
	if err := a.agenda.Start(svcCtx); err != nil {
		return fmt.Errorf("agenda: %w", err)
	}
	hc, err := httpConfig(a.cfgm.Get())
	if err != nil {
		return err
	}
	if err := a.http.Apply(svcCtx, hc); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := a.adapter.Start(svcCtx, a.updates); err != nil {
		return fmt.Errorf("%s: %w", a.adapter.Name(), err)
	}

	a.sup.Go("planner.dispatch", func(c context.Context) error {
		err := a.planner.Dispatch(c, a.updates)
		if err == nil {
			a.quit.Store(true)
			a.sup.Cancel()
		}
		return err
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							next = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(svcCtx, last, next)
				last = next
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.String("ui", a.ui), logx.String("tz", a.loc.String()))
	return nil
}

// applyConfig pushes a validated reload into the live components.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for them to take effect", logx.Strings("sections", restart))
	}

	a.logs.Apply(logConfig(next))

	if ncfg, err := notifierConfig(next); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		was := a.notif.Enabled()
		a.notif.Apply(ncfg)
		switch {
		case was && !ncfg.Enabled:
			a.log.Info("notifier disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		case !was && ncfg.Enabled:
			a.log.Info("notifier enabled via config")
			a.notif.Start(ctx)
		}
	}

	if acfg, skipped, err := agendaConfig(next, a.ui, a.loc); err != nil {
		a.log.Warn("invalid agenda config; keeping previous", logx.Err(err))
	} else {
		if len(skipped) > 0 {
			a.log.Warn("agenda targets ignored for this ui", logx.String("ui", a.ui), logx.Int("count", len(skipped)))
		}
		if err := a.agenda.Apply(acfg); err != nil {
			a.log.Warn("agenda reload failed", logx.Err(err))
		}
	}

	if hc, err := httpConfig(next); err != nil {
		a.log.Warn("invalid http config; keeping previous", logx.Err(err))
	} else if err := a.http.Apply(ctx, hc); err != nil {
		a.log.Warn("http reload failed", logx.Err(err))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Stop shuts components down in order. Every step is bounded so one stuck
// component cannot stall the rest.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Stop the dispatch, reload and watch loops first.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped; deadline reached", logx.String("name", name))
			return
		}
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
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("ui", 3*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("agenda", time.Second, func(c context.Context) error { a.agenda.Stop(c); return nil })
	step("reminders", 2*time.Second, func(c context.Context) error { a.reminders.Stop(c); return nil })
	step("notifier", 3*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("http", 2*time.Second, func(c context.Context) error { a.http.Stop(c); return nil })
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	return a.logs.Close()
}
