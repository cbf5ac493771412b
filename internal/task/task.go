package task

import (
	"fmt"
	"strings"
	"time"

	"dolist/internal/reminder"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusCancel     Status = "cancel"
	StatusPost       Status = "post"
)

// Terminal statuses never fire reminders.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusCancel }

// ParseStatus accepts the canonical spellings plus a couple of aliases.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "new":
		return StatusNew, nil
	case "in-progress", "inprogress", "working":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	case "cancel", "cancelled", "canceled":
		return StatusCancel, nil
	case "post", "postponed":
		return StatusPost, nil
	default:
		return "", fmt.Errorf("invalid status %q (new, in-progress, done, cancel, post)", raw)
	}
}

type Task struct {
	ID        int64
	Name      string
	Tag       string
	Status    Status
	Notes     []string
	CreatedOn time.Time
	Reminder  reminder.State
}

// New fills defaults for a task about to be stored.
func New(name, tag string, now time.Time) Task {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = "default"
	}
	return Task{
		Name:      strings.TrimSpace(name),
		Tag:       tag,
		Status:    StatusNew,
		CreatedOn: now,
	}
}

// SetStatus moves the task to s. Becoming terminal drops the reminder so the
// task never carries a due time nothing will act on.
func (t *Task) SetStatus(s Status) {
	t.Status = s
	if s.Terminal() {
		reminder.Clear(&t.Reminder)
	}
}
