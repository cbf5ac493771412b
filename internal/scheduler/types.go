package scheduler

import (
	"context"
	"time"

	"dolist/internal/reminder"
	"dolist/internal/storage"
	"dolist/internal/task"
)

const (
	DefaultInterval   = 30 * time.Second
	DefaultBackoffMax = 5 * time.Minute
	rescheduleTimeout = 5 * time.Second
)

// Config controls the tick loop. Interval 0 disables polling.
type Config struct {
	Interval   time.Duration
	BackoffMax time.Duration
	// Location is the zone ticks are evaluated in; nil means time.Local.
	Location *time.Location
}

// Store is the part of storage.Store the scheduler needs.
type Store interface {
	ListTasks(ctx context.Context) ([]task.Task, error)
	UpdateReminder(ctx context.Context, id int64, fn func(*reminder.State) error) (task.Task, error)
	AppendAudit(ctx context.Context, e storage.AuditEntry) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, t task.Task) error
}

// Phase is where the tick loop currently is.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseDispatching
	PhaseRescheduling
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseDispatching:
		return "dispatching"
	case PhaseRescheduling:
		return "rescheduling"
	default:
		return "unknown"
	}
}

// TickResult summarises one tick.
type TickResult struct {
	Due         int
	Dispatched  int
	Failed      int
	Rescheduled int
	Cleared     int
	Skipped     bool  // still backing off after a store failure
	Stopped     bool  // stop was requested before every due task was handled
	Err         error // store failure that aborted the tick
}
