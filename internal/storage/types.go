package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dolist/internal/reminder"
	"dolist/internal/task"
)

var (
	ErrNotFound    = errors.New("task not found")
	ErrUnavailable = errors.New("storage unavailable")
	ErrInvalid     = errors.New("invalid task")
	ErrTerminal    = errors.New("task is closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON snapshot + JSONL audit log (default)
//   - "sqlite": SQLite database file
//   - "memory": nothing persisted
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite busy_timeout and file lock wait; 0 means default
}

// Audit actions: what a fire did to the reminder.
const (
	ActionRescheduled = "rescheduled"
	ActionCleared     = "cleared"
)

// AuditEntry records one reminder fire. Error is the dispatch failure, if any.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At     time.Time `json:"at"`
	TaskID int64     `json:"task_id"`
	Action string    `json:"action"`
	DueAt  time.Time `json:"due_at"`
	NextAt time.Time `json:"next_at,omitzero"`
	Error  string    `json:"error,omitempty"`
	TookMS int64     `json:"took_ms"`
}

// Store is the persistence API used by the CLI and the scheduler.
type Store interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id int64) (task.Task, error)
	ListTasks(ctx context.Context) ([]task.Task, error)

	// UpdateTask loads task id, applies fn and writes the result back as one
	// atomic step. An error from fn aborts the write and is returned as is.
	UpdateTask(ctx context.Context, id int64, fn func(*task.Task) error) (task.Task, error)
	// UpdateReminder is UpdateTask narrowed to the reminder state.
	UpdateReminder(ctx context.Context, id int64, fn func(*reminder.State) error) (task.Task, error)
	SetStatus(ctx context.Context, id int64, s task.Status) (task.Task, error)
	AddNote(ctx context.Context, id int64, note string) (task.Task, error)

	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func notFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}
