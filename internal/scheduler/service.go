package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"dolist/internal/eventbus"
	"dolist/internal/reminder"
	"dolist/internal/storage"
	"dolist/internal/task"
	logx "dolist/pkg/logx"
)

// errNotDue aborts a reschedule whose reminder changed after the scan.
var errNotDue = errors.New("reminder no longer due")

// Service polls the store for due reminders, dispatches them and advances or
// clears each one. One tick runs at a time.
type Service struct {
	mu    sync.Mutex
	cfg   Config
	log   logx.Logger
	bus   eventbus.Bus
	store Store
	disp  Dispatcher
	now   func() time.Time

	c      *cron.Cron
	entry  cron.EntryID
	job    cron.Job
	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	phase atomic.Int32

	// Ticks are serialised; tickMu also guards the backoff state.
	tickMu      sync.Mutex
	failures    int
	nextAttempt time.Time
}

func New(cfg Config, store Store, disp Dispatcher, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   normalize(cfg),
		log:   log,
		bus:   bus,
		store: store,
		disp:  disp,
		now:   time.Now,
	}
}

func normalize(cfg Config) Config {
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	return cfg
}

// clock is the current time in the configured location.
func (s *Service) clock() time.Time {
	s.mu.Lock()
	loc := s.cfg.Location
	s.mu.Unlock()
	if loc == nil {
		return s.now()
	}
	return s.now().In(loc)
}

func (s *Service) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Service) setPhase(p Phase) { s.phase.Store(int32(p)) }

// Start schedules the tick and runs one catch-up tick right away so reminders
// that came due while the service was down fire once. With polling disabled
// Start only logs.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)

	cl := cronLogger{log: s.log}
	s.c = cron.New(cron.WithLogger(cl))
	// Wrapped once so the catch-up run and the cron entry share SkipIfStillRunning.
	runCtx := s.runCtx
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		s.Tick(runCtx, s.clock())
	}))
	s.c.Start()

	if s.cfg.Interval == 0 {
		s.log.Info("reminder polling disabled")
		return
	}
	s.scheduleLocked()
	s.log.Info("reminder scheduler started", logx.Duration("interval", s.cfg.Interval))

	job := s.job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()
}

func (s *Service) scheduleLocked() {
	if s.entry != 0 {
		s.c.Remove(s.entry)
		s.entry = 0
	}
	if s.cfg.Interval > 0 {
		s.entry = s.c.Schedule(cron.Every(s.cfg.Interval), s.job)
	}
}

// Apply updates the interval and backoff cap; a running loop is rescheduled
// when the interval changes.
func (s *Service) Apply(cfg Config) {
	cfg = normalize(cfg)
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	if s.c == nil || old.Interval == cfg.Interval {
		return
	}
	s.scheduleLocked()
	s.log.Info("reminder interval changed", logx.Duration("from", old.Interval), logx.Duration("to", cfg.Interval))
}

// Stop cancels the loop and waits for an in-flight tick, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.cancel, s.entry = nil, nil, 0
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	cancel()
	cronDone := c.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs one scan/dispatch/reschedule pass against now.
func (s *Service) Tick(ctx context.Context, now time.Time) TickResult {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	defer s.setPhase(PhaseIdle)

	var res TickResult
	if ctx.Err() != nil {
		res.Stopped = true
		return res
	}
	if now.Before(s.nextAttempt) {
		res.Skipped = true
		return res
	}

	s.setPhase(PhaseScanning)
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		res.Err = err
		s.backoff(now, err)
		return res
	}
	if s.failures > 0 {
		s.log.Info("store reachable again", logx.Int("failures", s.failures))
	}
	s.failures, s.nextAttempt = 0, time.Time{}

	due := Scan(tasks, now)
	res.Due = len(due)
	for _, t := range due {
		if ctx.Err() != nil {
			res.Stopped = true
			break
		}
		s.setPhase(PhaseDispatching)
		s.publish(eventbus.ReminderFired, eventbus.Reminder{TaskID: t.ID, Name: t.Name, DueAt: t.Reminder.DueAt})
		start := time.Now()
		derr := s.disp.Dispatch(ctx, t)
		if derr != nil && errors.Is(derr, context.Canceled) && ctx.Err() != nil {
			// Cancelled before the sink ran: leave the reminder due for the next start.
			res.Stopped = true
			break
		}
		if derr != nil {
			res.Failed++
		} else {
			res.Dispatched++
		}

		s.setPhase(PhaseRescheduling)
		s.reschedule(ctx, t, now, derr, time.Since(start), &res)

		if ctx.Err() != nil {
			res.Stopped = true
			break
		}
	}
	if res.Due > 0 {
		s.log.Debug("tick done",
			logx.Int("due", res.Due),
			logx.Int("dispatched", res.Dispatched),
			logx.Int("failed", res.Failed),
			logx.Int("rescheduled", res.Rescheduled),
			logx.Int("cleared", res.Cleared),
		)
	}
	return res
}

// reschedule advances or clears t's reminder. It runs even when stop was
// requested during dispatch, so a delivered reminder is never delivered twice.
func (s *Service) reschedule(ctx context.Context, t task.Task, firedAt time.Time, derr error, took time.Duration, res *TickResult) {
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rescheduleTimeout)
	defer cancel()

	updated, err := s.store.UpdateReminder(uctx, t.ID, func(st *reminder.State) error {
		if !st.IsDue(firedAt) {
			return errNotDue
		}
		reminder.RescheduleAfterFire(st, firedAt)
		return nil
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.log.Debug("due task vanished", logx.Int64("task", t.ID))
		return
	case errors.Is(err, errNotDue):
		s.log.Debug("reminder changed during dispatch", logx.Int64("task", t.ID))
		return
	case err != nil:
		s.log.Warn("reschedule failed", logx.Int64("task", t.ID), logx.Err(err))
		return
	}

	entry := storage.AuditEntry{
		At:     firedAt,
		TaskID: t.ID,
		DueAt:  t.Reminder.DueAt,
		TookMS: took.Milliseconds(),
	}
	if derr != nil {
		entry.Error = derr.Error()
	}
	ev := eventbus.Reminder{TaskID: t.ID, Name: t.Name, DueAt: t.Reminder.DueAt, Took: took}
	if updated.Reminder.Active() {
		res.Rescheduled++
		entry.Action = storage.ActionRescheduled
		entry.NextAt = updated.Reminder.DueAt
		ev.NextAt = updated.Reminder.DueAt
		s.publish(eventbus.ReminderRescheduled, ev)
		s.log.Info("reminder rescheduled", logx.Int64("task", t.ID), logx.Time("next", updated.Reminder.DueAt))
	} else {
		res.Cleared++
		entry.Action = storage.ActionCleared
		s.publish(eventbus.ReminderCleared, ev)
		s.log.Info("reminder cleared", logx.Int64("task", t.ID))
	}
	if err := s.store.AppendAudit(uctx, entry); err != nil {
		s.log.Warn("audit append failed", logx.Int64("task", t.ID), logx.Err(err))
	}
}

// backoff doubles the wait after each failed tick, starting at the interval
// and capped at BackoffMax.
func (s *Service) backoff(now time.Time, err error) {
	s.mu.Lock()
	base, maxWait := s.cfg.Interval, s.cfg.BackoffMax
	s.mu.Unlock()
	if base <= 0 {
		base = DefaultInterval
	}
	s.failures++
	wait := base
	for i := 1; i < s.failures && wait < maxWait; i++ {
		wait *= 2
	}
	wait = min(wait, maxWait)
	s.nextAttempt = now.Add(wait)
	s.log.Warn("store unavailable; backing off",
		logx.Int("failures", s.failures),
		logx.Duration("retry_in", wait),
		logx.Err(err),
	)
}

func (s *Service) publish(typ string, ev eventbus.Reminder) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
