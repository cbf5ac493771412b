package notifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dolist/internal/reminder"
	"dolist/internal/task"
)

// Snapshot is the read-only record handed to a sink. Its JSON form is the
// handler's stdin contract.
type Snapshot struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Tag       string   `json:"tag"`
	Status    string   `json:"status"`
	Reminder  string   `json:"reminder"`
	Notes     []string `json:"notes"`
	CreatedOn string   `json:"created_on"`
}

// NewSnapshot captures t. The reminder field carries the text the reminder was
// set with, or the relative form when no text was kept.
func NewSnapshot(t task.Task, now time.Time) Snapshot {
	rem := t.Reminder.Text
	if rem == "" {
		rem = reminder.Display(t.Reminder, now)
	}
	notes := make([]string, len(t.Notes))
	copy(notes, t.Notes)
	return Snapshot{
		ID:        t.ID,
		Name:      t.Name,
		Tag:       t.Tag,
		Status:    string(t.Status),
		Reminder:  rem,
		Notes:     notes,
		CreatedOn: t.CreatedOn.Format(time.RFC3339),
	}
}

func (s Snapshot) JSON() ([]byte, error) { return json.Marshal(s) }

func (s Snapshot) Title() string { return "DoList: " + s.Name }

// Body is the tag/status summary, plus a note count when there are notes.
func (s Snapshot) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tag: %s\nStatus: %s", s.Tag, s.Status)
	if n := len(s.Notes); n > 0 {
		fmt.Fprintf(&b, "\n%d note(s) attached", n)
	}
	return b.String()
}
