package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dolist/internal/config"
	"dolist/internal/eventbus"
	"dolist/internal/notifier"
	"dolist/internal/observability/status"
	"dolist/internal/runtime/supervisor"
	"dolist/internal/scheduler"
	"dolist/internal/storage"
	logx "dolist/pkg/logx"
)

// Options tune how New wires the app.
type Options struct {
	// Service routes logs through a reloadable logx.Service using the
	// configured outputs. Short-lived commands leave it false and only log
	// warnings to stderr.
	Service bool
}

// App owns the store, the dispatcher and the reminder scheduler for one
// config file.
type App struct {
	cfgm *config.Manager
	base string
	// fromFile is false when the config file was missing and defaults apply.
	fromFile bool

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	disp  *notifier.Dispatcher
	sched *scheduler.Service
	sup   *supervisor.Supervisor

	loc     atomic.Pointer[time.Location]
	started time.Time

	statsMu sync.Mutex
	stats   map[string]uint64
}

func New(cfgPath string, opts Options) (*App, error) {
	if strings.TrimSpace(cfgPath) == "" {
		cfgPath = config.DefaultPath()
	}
	cfgm := config.NewManager(cfgPath)
	cfg, ok, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(cfgPath)

	a := &App{cfgm: cfgm, base: base, fromFile: ok, bus: eventbus.New(), stats: map[string]uint64{}}
	if opts.Service {
		a.logs, a.log = logx.New(mapLoggingConfig(cfg, base))
	} else {
		a.log = logx.NewConsole("warn")
	}

	loc, err := mapLocation(cfg)
	if err != nil {
		return nil, err
	}
	a.loc.Store(loc)

	sc, err := mapStorageConfig(cfg, base)
	if err != nil {
		return nil, err
	}
	if sc.Path != "" {
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, fmt.Errorf("storage dir: %w", err)
		}
	}
	store, err := storage.Open(sc, a.log.Named("storage"))
	if err != nil {
		return nil, err
	}
	a.store = store

	nc, err := mapNotifierConfig(cfg, base)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	disp, err := notifier.New(nc, a.log.Named("notifier"), a.bus)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.disp = disp

	schc, err := mapSchedulerConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.sched = scheduler.New(schc, store, disp, a.log.Named("scheduler"), a.bus)

	if !ok {
		a.log.Debug("config file not found; using defaults", logx.String("path", cfgPath))
	}
	return a, nil
}

func (a *App) Logger() logx.Logger              { return a.log }
func (a *App) Config() *config.Config           { return a.cfgm.Get() }
func (a *App) ConfigPath() string               { return a.cfgm.Path() }
func (a *App) Store() storage.Store             { return a.store }
func (a *App) Dispatcher() *notifier.Dispatcher { return a.disp }
func (a *App) Scheduler() *scheduler.Service    { return a.sched }
func (a *App) Bus() eventbus.Bus                { return a.bus }

// Location is the configured reminder timezone.
func (a *App) Location() *time.Location { return a.loc.Load() }

// Now is the wall clock in Location.
func (a *App) Now() time.Time { return time.Now().In(a.Location()) }

// Stats counts the events seen since Start, keyed by event type.
func (a *App) Stats() map[string]uint64 {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	out := make(map[string]uint64, len(a.stats))
	for k, v := range a.stats {
		out[k] = v
	}
	return out
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the reminder scheduler plus the config watcher until Stop.
func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.started = time.Now()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.Named("supervisor")))
	a.cfgm.SetLogger(a.log.Named("config"))

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
				a.record(e)
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
				// Coalesce bursts: keep only the latest config in the channel.
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
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	if dir := filepath.Dir(a.cfgm.Path()); dirExists(dir) {
		a.sup.Go("config.watch", a.cfgm.Watch)
	} else {
		a.log.Info("config directory missing; hot reload disabled", logx.String("dir", dir))
	}

	if cfg := a.cfgm.Get(); cfg.Status.Enabled {
		srv := status.New(mapStatusConfig(cfg), func() any { return a.Status() }, a.log.Named("status"))
		a.sup.GoRestart("status.http", srv.Serve, supervisor.RestartPolicy{MinBackoff: 500 * time.Millisecond, MaxBackoff: 10 * time.Second})
	}

	a.sched.Start(a.sup.Context())
	a.log.Info("reminder service started",
		logx.String("config", a.cfgm.Path()),
		logx.Bool("config_file", a.fromFile),
		logx.String("sink", a.disp.SinkName()),
		logx.String("timezone", a.Location().String()),
	)
	return nil
}

// applyConfig pushes a reloaded config into the running services. Sections
// that fail to map keep their previous settings.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.Strings("changed", sections)}, attrs...)
	a.log.Debug("config change summary", fields...)

	for _, s := range sections {
		switch s {
		case "logging":
			if a.logs != nil {
				a.logs.Apply(mapLoggingConfig(newCfg, a.base))
			}
		case "reminder":
			if loc, err := mapLocation(newCfg); err != nil {
				a.log.Warn("invalid timezone; keeping previous", logx.Err(err))
			} else {
				a.loc.Store(loc)
			}
			if nc, err := mapNotifierConfig(newCfg, a.base); err != nil {
				a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
			} else if err := a.disp.Apply(nc); err != nil {
				a.log.Warn("notifier config rejected; keeping previous", logx.Err(err))
			}
			if sc, err := mapSchedulerConfig(newCfg); err != nil {
				a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
			} else {
				a.sched.Apply(sc)
			}
		case "storage", "status":
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		}
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigApplied, Time: time.Now(), Data: sections})
	a.log.Info("config reloaded", fields...)
}

func (a *App) record(e eventbus.Event) {
	a.statsMu.Lock()
	a.stats[e.Type]++
	a.statsMu.Unlock()

	r, ok := e.Data.(eventbus.Reminder)
	if !ok {
		a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		return
	}
	fields := []logx.Field{
		logx.String("type", e.Type),
		logx.Int64("task", r.TaskID),
		logx.String("name", r.Name),
		logx.Time("next", r.NextAt),
	}
	if r.Err != "" {
		fields = append(fields, logx.String("err", r.Err))
	}
	a.log.Debug("event", fields...)
}

// Status is the document served at /status.
type Status struct {
	Started    time.Time              `json:"started"`
	Config     string                 `json:"config"`
	Sink       string                 `json:"sink"`
	Phase      string                 `json:"phase"`
	Timezone   string                 `json:"timezone"`
	Goroutines int64                  `json:"goroutines"`
	Restarts   uint64                 `json:"restarts"`
	Events     map[string]uint64      `json:"events"`
	Dropped    uint64                 `json:"events_dropped"`
	Recent     []notifier.HistoryItem `json:"recent"`
}

func (a *App) Status() Status {
	st := Status{
		Started:  a.started,
		Config:   a.cfgm.Path(),
		Sink:     a.disp.SinkName(),
		Phase:    a.sched.Phase().String(),
		Timezone: a.Location().String(),
		Events:   a.Stats(),
		Dropped:  a.bus.Dropped(),
		Recent:   a.disp.History(),
	}
	if a.sup != nil {
		st.Goroutines = a.sup.Active()
		st.Restarts = a.sup.Restarts()
	}
	return st
}

// Stop shuts the scheduler down first so no tick is cut off mid-reschedule,
// then the supervised loops and the store. Every step is bounded by ctx.
func (a *App) Stop(ctx context.Context, reason string) error {
	a.log.Info("stopping", logx.String("reason", reason))

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		if took := time.Since(start); took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	}

	step("scheduler", 6*time.Second, a.sched.Stop)
	if a.sup != nil {
		step("supervisor", 2*time.Second, a.sup.Stop)
	}
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped", logx.Any("events", a.Stats()), logx.Uint64("events_dropped", a.bus.Dropped()))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

// Close releases the store for apps that were never started.
func (a *App) Close() error {
	if a.logs != nil {
		defer a.logs.Close()
	}
	return a.store.Close()
}

func dirExists(dir string) bool {
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}
