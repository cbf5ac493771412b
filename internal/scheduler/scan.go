package scheduler

import (
	"time"

	"dolist/internal/task"
)

// Scan returns the tasks whose reminder is due at now: a due time is set,
// it is not after now, and the task is not done or cancelled. Input order is
// preserved.
func Scan(tasks []task.Task, now time.Time) []task.Task {
	var due []task.Task
	for _, t := range tasks {
		if t.Status.Terminal() || !t.Reminder.IsDue(now) {
			continue
		}
		due = append(due, t)
	}
	return due
}
