package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dolist/internal/reminder"
	"dolist/internal/task"
	logx "dolist/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const defaultBusyTimeout = 5 * time.Second

const taskColumns = `id, name, tag, status, notes, created_on, reminder_at, reminder_every, reminder_last_fired, reminder_text`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// Immediate transactions take the write lock up front so two processes
	// updating the same task queue on busy_timeout instead of failing mid-way.
	db, err := sql.Open("sqlite", path+"?_txlock=immediate")
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if err := validate(t); err != nil {
		return task.Task{}, err
	}
	notes, err := encodeNotes(t.Notes)
	if err != nil {
		return task.Task{}, err
	}
	rem := reminderColumns(t.Reminder)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(name, tag, status, notes, created_on, reminder_at, reminder_every, reminder_last_fired, reminder_text)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		t.Name, t.Tag, string(t.Status), notes, formatTime(t.CreatedOn),
		rem[0], rem[1], rem[2], rem[3],
	)
	if err != nil {
		return task.Task{}, unavailable("insert task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return task.Task{}, unavailable("insert task", err)
	}
	t.ID = id
	return cloneTask(t), nil
}

func (s *sqliteStore) GetTask(ctx context.Context, id int64) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row, id)
}

func (s *sqliteStore) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, unavailable("list tasks", err)
	}
	defer rows.Close()

	var out []task.Task
	for rows.Next() {
		t, err := scanTask(rows, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list tasks", err)
	}
	return out, nil
}

func (s *sqliteStore) UpdateTask(ctx context.Context, id int64, fn func(*task.Task) error) (task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return task.Task{}, unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id), id)
	if err != nil {
		return task.Task{}, err
	}
	next := cloneTask(cur)
	if err := fn(&next); err != nil {
		return task.Task{}, err
	}
	next.ID = id
	if err := validate(next); err != nil {
		return task.Task{}, err
	}

	notes, err := encodeNotes(next.Notes)
	if err != nil {
		return task.Task{}, err
	}
	rem := reminderColumns(next.Reminder)
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET name=?, tag=?, status=?, notes=?, reminder_at=?, reminder_every=?, reminder_last_fired=?, reminder_text=?
		 WHERE id = ?`,
		next.Name, next.Tag, string(next.Status), notes, rem[0], rem[1], rem[2], rem[3], id,
	); err != nil {
		return task.Task{}, unavailable("update task", err)
	}
	if err := tx.Commit(); err != nil {
		return task.Task{}, unavailable("commit", err)
	}
	return next, nil
}

func (s *sqliteStore) UpdateReminder(ctx context.Context, id int64, fn func(*reminder.State) error) (task.Task, error) {
	return s.UpdateTask(ctx, id, reminderFn(fn))
}

func (s *sqliteStore) SetStatus(ctx context.Context, id int64, st task.Status) (task.Task, error) {
	return s.UpdateTask(ctx, id, statusFn(st))
}

func (s *sqliteStore) AddNote(ctx context.Context, id int64, note string) (task.Task, error) {
	return s.UpdateTask(ctx, id, noteFn(note))
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, task_id, action, due_at, next_at, err, took_ms) VALUES(?,?,?,?,?,?,?)`,
		formatTime(e.At), e.TaskID, e.Action, nullTime(e.DueAt), nullTime(e.NextAt), nullStr(e.Error), e.TookMS,
	)
	if err != nil {
		return unavailable("audit", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, id int64) (task.Task, error) {
	var (
		r                          taskRecord
		notes, created             string
		at, every, lastFired, text sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &r.Tag, &r.Status, &notes, &created, &at, &every, &lastFired, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, notFound(id)
	}
	if err != nil {
		return task.Task{}, unavailable("scan task", err)
	}
	if err := json.Unmarshal([]byte(notes), &r.Notes); err != nil {
		return task.Task{}, unavailable("decode notes", err)
	}
	if r.CreatedOn, err = parseTime(created); err != nil {
		return task.Task{}, unavailable("decode created_on", err)
	}
	if at.Valid && at.String != "" {
		rr := &reminderRecord{Every: every.String, Text: text.String}
		if rr.DueAt, err = parseTime(at.String); err != nil {
			return task.Task{}, unavailable("decode reminder_at", err)
		}
		if lastFired.Valid && lastFired.String != "" {
			if rr.LastFiredAt, err = parseTime(lastFired.String); err != nil {
				return task.Task{}, unavailable("decode reminder_last_fired", err)
			}
		}
		r.Reminder = rr
	}
	t, err := fromRecord(r)
	if err != nil {
		return task.Task{}, unavailable("decode task", err)
	}
	return t, nil
}

// reminderColumns returns reminder_at, reminder_every, reminder_last_fired and
// reminder_text, all NULL when there is no reminder.
func reminderColumns(st reminder.State) [4]any {
	if !st.Active() {
		return [4]any{nil, nil, nil, nil}
	}
	return [4]any{formatTime(st.DueAt), nullStr(st.Every.String()), nullTime(st.LastFiredAt), nullStr(st.Text)}
}

func encodeNotes(notes []string) (string, error) {
	if notes == nil {
		notes = []string{}
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("%w: notes: %v", ErrInvalid, err)
	}
	return string(b), nil
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
