package storage

import (
	"fmt"
	"slices"
	"strings"

	"dolist/internal/reminder"
	"dolist/internal/task"
)

// taskSet is the in-memory collection behind the memory and file drivers.
type taskSet struct {
	nextID int64
	tasks  map[int64]task.Task
}

func newTaskSet() *taskSet {
	return &taskSet{tasks: map[int64]task.Task{}}
}

func (s *taskSet) create(t task.Task) (task.Task, error) {
	if err := validate(t); err != nil {
		return task.Task{}, err
	}
	s.nextID++
	t.ID = s.nextID
	t = cloneTask(t)
	s.tasks[t.ID] = t
	return cloneTask(t), nil
}

func (s *taskSet) get(id int64) (task.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, notFound(id)
	}
	return cloneTask(t), nil
}

func (s *taskSet) list() []task.Task {
	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, cloneTask(t))
	}
	slices.SortFunc(out, func(a, b task.Task) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (s *taskSet) update(id int64, fn func(*task.Task) error) (task.Task, error) {
	cur, ok := s.tasks[id]
	if !ok {
		return task.Task{}, notFound(id)
	}
	next := cloneTask(cur)
	if err := fn(&next); err != nil {
		return task.Task{}, err
	}
	next.ID = id
	if err := validate(next); err != nil {
		return task.Task{}, err
	}
	s.tasks[id] = next
	return cloneTask(next), nil
}

// put inserts a loaded task as is, keeping nextID ahead of every id seen.
func (s *taskSet) put(t task.Task) {
	s.tasks[t.ID] = t
	if t.ID > s.nextID {
		s.nextID = t.ID
	}
}

func validate(t task.Task) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := task.ParseStatus(string(t.Status)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func cloneTask(t task.Task) task.Task {
	t.Notes = slices.Clone(t.Notes)
	return t
}

// reminderFn adapts a reminder mutation to UpdateTask. Closed tasks may only
// lose their reminder, never gain one.
func reminderFn(fn func(*reminder.State) error) func(*task.Task) error {
	return func(t *task.Task) error {
		st := t.Reminder
		if err := fn(&st); err != nil {
			return err
		}
		if t.Status.Terminal() && st.Active() {
			return fmt.Errorf("%w: %d is %s", ErrTerminal, t.ID, t.Status)
		}
		t.Reminder = st
		return nil
	}
}

func statusFn(s task.Status) func(*task.Task) error {
	return func(t *task.Task) error {
		t.SetStatus(s)
		return nil
	}
}

func noteFn(note string) func(*task.Task) error {
	note = strings.TrimSpace(note)
	return func(t *task.Task) error {
		if note == "" {
			return fmt.Errorf("%w: empty note", ErrInvalid)
		}
		t.Notes = append(t.Notes, note)
		return nil
	}
}
