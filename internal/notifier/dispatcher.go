package notifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dolist/internal/eventbus"
	"dolist/internal/task"
	logx "dolist/pkg/logx"
)

const (
	defaultRatePerSec = 5
	historyLimit      = 100
)

// Config selects and tunes the sink.
type Config struct {
	Handler        string
	HandlerTimeout time.Duration
	RatePerSec     int
	Telegram       TelegramConfig
}

type HistoryItem struct {
	At     time.Time `json:"at"`
	TaskID int64     `json:"task_id"`
	Sink   string    `json:"sink"`
	Err    string    `json:"err,omitempty"`
}

// Dispatcher delivers reminders through the configured sink.
//
// It is safe for concurrent use; Apply may swap the sink while dispatches
// are in flight.
type Dispatcher struct {
	mu      sync.Mutex
	log     logx.Logger
	bus     eventbus.Bus
	cfg     Config
	sink    Sink
	limiter *rate.Limiter
	now     func() time.Time

	hmu     sync.Mutex
	history []HistoryItem
}

// New builds a dispatcher for cfg. bus may be nil.
func New(cfg Config, log logx.Logger, bus eventbus.Bus) (*Dispatcher, error) {
	sink, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithSink(sink, cfg, log, bus), nil
}

// NewWithSink uses sink as is, ignoring the sink selection fields of cfg.
func NewWithSink(sink Sink, cfg Config, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{log: log, bus: bus, sink: sink, now: time.Now}
	d.applyLocked(cfg)
	return d
}

// buildSink picks handler, then telegram, then desktop.
func buildSink(cfg Config) (Sink, error) {
	if h := strings.TrimSpace(cfg.Handler); h != "" {
		return &HandlerSink{Path: h, Timeout: cfg.HandlerTimeout}, nil
	}
	if cfg.Telegram.Enabled() {
		tg := cfg.Telegram
		tg.Timeout = cfg.HandlerTimeout
		return NewTelegramSink(tg)
	}
	return NewDesktopSink(), nil
}

// Apply rebuilds the sink from cfg. On error the current sink stays.
func (d *Dispatcher) Apply(cfg Config) error {
	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	d.mu.Lock()
	old := d.sink.Name()
	d.sink = sink
	d.applyLocked(cfg)
	d.mu.Unlock()
	if old != sink.Name() {
		d.log.Info("reminder sink changed", logx.String("from", old), logx.String("to", sink.Name()))
	}
	return nil
}

func (d *Dispatcher) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultHandlerTimeout
	}
	d.cfg = cfg
	// Token bucket: burst = rate per sec, so a tick with a few due tasks goes out at once.
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (d *Dispatcher) SinkName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sink.Name()
}

// Dispatch delivers t. It returns ctx.Err() if cancelled while waiting for
// the rate limiter, and *DispatchError when the sink fails.
func (d *Dispatcher) Dispatch(ctx context.Context, t task.Task) error {
	d.mu.Lock()
	sink, lim, log, now := d.sink, d.limiter, d.log, d.now
	d.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}

	start := now()
	snap := NewSnapshot(t, start)
	err := sink.Notify(ctx, snap)
	took := now().Sub(start)

	ev := eventbus.Reminder{TaskID: t.ID, Name: t.Name, DueAt: t.Reminder.DueAt, Sink: sink.Name(), Took: took}
	if err != nil {
		derr := &DispatchError{Kind: kindOf(err), Sink: sink.Name(), TaskID: t.ID, Err: err}
		ev.Err = err.Error()
		d.record(start, t.ID, sink.Name(), ev.Err)
		d.publish(eventbus.ReminderDispatchFailed, ev)
		log.Warn("reminder dispatch failed",
			logx.Int64("task", t.ID),
			logx.String("sink", sink.Name()),
			logx.String("kind", derr.Kind.String()),
			logx.Err(err),
		)
		return derr
	}
	d.record(start, t.ID, sink.Name(), "")
	d.publish(eventbus.ReminderDispatched, ev)
	log.Info("reminder dispatched", logx.Int64("task", t.ID), logx.String("sink", sink.Name()), logx.Duration("took", took))
	return nil
}

func (d *Dispatcher) publish(typ string, ev eventbus.Reminder) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

// History returns the most recent dispatches, oldest first.
func (d *Dispatcher) History() []HistoryItem {
	d.hmu.Lock()
	out := append([]HistoryItem(nil), d.history...)
	d.hmu.Unlock()
	return out
}

func (d *Dispatcher) record(at time.Time, id int64, sink, errText string) {
	d.hmu.Lock()
	d.history = append(d.history, HistoryItem{At: at, TaskID: id, Sink: sink, Err: errText})
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
	d.hmu.Unlock()
}
