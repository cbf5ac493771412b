package storage

import (
	"fmt"
	"time"

	"dolist/internal/reminder"
	"dolist/internal/task"
)

// taskRecord is the on-disk form of a task. Recurrence is kept as the
// interval's display string ("2 hours") so snapshots stay readable.
type taskRecord struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Tag       string          `json:"tag"`
	Status    string          `json:"status"`
	Notes     []string        `json:"notes,omitempty"`
	CreatedOn time.Time       `json:"created_on"`
	Reminder  *reminderRecord `json:"reminder,omitempty"`
}

type reminderRecord struct {
	DueAt       time.Time `json:"due_at"`
	Every       string    `json:"every,omitempty"`
	LastFiredAt time.Time `json:"last_fired_at,omitzero"`
	Text        string    `json:"text,omitempty"`
}

func toRecord(t task.Task) taskRecord {
	r := taskRecord{
		ID:        t.ID,
		Name:      t.Name,
		Tag:       t.Tag,
		Status:    string(t.Status),
		Notes:     t.Notes,
		CreatedOn: t.CreatedOn,
	}
	if t.Reminder.Active() {
		r.Reminder = &reminderRecord{
			DueAt:       t.Reminder.DueAt,
			Every:       t.Reminder.Every.String(),
			LastFiredAt: t.Reminder.LastFiredAt,
			Text:        t.Reminder.Text,
		}
	}
	return r
}

func fromRecord(r taskRecord) (task.Task, error) {
	st, err := task.ParseStatus(r.Status)
	if err != nil {
		return task.Task{}, fmt.Errorf("task %d: %w", r.ID, err)
	}
	t := task.Task{
		ID:        r.ID,
		Name:      r.Name,
		Tag:       r.Tag,
		Status:    st,
		Notes:     r.Notes,
		CreatedOn: r.CreatedOn,
	}
	if len(t.Notes) == 0 {
		t.Notes = nil
	}
	if r.Reminder != nil {
		every, err := parseEvery(r.Reminder.Every)
		if err != nil {
			return task.Task{}, fmt.Errorf("task %d: %w", r.ID, err)
		}
		t.Reminder = reminder.State{
			DueAt:       r.Reminder.DueAt,
			Every:       every,
			LastFiredAt: r.Reminder.LastFiredAt,
			Text:        r.Reminder.Text,
		}
	}
	return t, nil
}

func parseEvery(s string) (reminder.Interval, error) {
	if s == "" {
		return reminder.Interval{}, nil
	}
	return reminder.ParseInterval(s)
}
