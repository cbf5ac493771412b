package storage

import (
	"context"
	"slices"
	"sync"

	"dolist/internal/reminder"
	"dolist/internal/task"
)

// Memory is a process-local Store. The audit log is kept in memory and can be
// read back with Audit.
type Memory struct {
	mu    sync.Mutex
	set   *taskSet
	audit []AuditEntry
}

func NewMemory() *Memory {
	return &Memory{set: newTaskSet()}
}

func (m *Memory) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.create(t)
}

func (m *Memory) GetTask(_ context.Context, id int64) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.get(id)
}

func (m *Memory) ListTasks(_ context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.list(), nil
}

func (m *Memory) UpdateTask(_ context.Context, id int64, fn func(*task.Task) error) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.update(id, fn)
}

func (m *Memory) UpdateReminder(ctx context.Context, id int64, fn func(*reminder.State) error) (task.Task, error) {
	return m.UpdateTask(ctx, id, reminderFn(fn))
}

func (m *Memory) SetStatus(ctx context.Context, id int64, s task.Status) (task.Task, error) {
	return m.UpdateTask(ctx, id, statusFn(s))
}

func (m *Memory) AddNote(ctx context.Context, id int64, note string) (task.Task, error) {
	return m.UpdateTask(ctx, id, noteFn(note))
}

func (m *Memory) AppendAudit(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

// Audit returns a copy of the entries appended so far.
func (m *Memory) Audit() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.audit)
}

func (m *Memory) Close() error { return nil }
