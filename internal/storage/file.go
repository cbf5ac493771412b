package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"dolist/internal/reminder"
	"dolist/internal/task"
	logx "dolist/pkg/logx"
)

const (
	defaultLockWait = 5 * time.Second
	staleLockAfter  = 30 * time.Second
	lockRetry       = 20 * time.Millisecond
)

// fileStore keeps every task in one JSON snapshot.
//
// Files:
//   - <path>                (snapshot, replaced atomically via temp file + rename)
//   - <path>.lock           (held while a write is in progress; serialises processes)
//   - <prefix>.audit.jsonl  (append-only JSON Lines)
//
// Each operation re-reads the snapshot, so a CLI invocation and a running
// service see each other's writes.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	path     string
	lockPath string
	lockWait time.Duration

	auditFile *os.File
}

type snapshot struct {
	NextID int64        `json:"next_id"`
	Tasks  []taskRecord `json:"tasks"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	wait := cfg.BusyTimeout
	if wait <= 0 {
		wait = defaultLockWait
	}
	s := &fileStore{
		log:       log,
		path:      path,
		lockPath:  path + ".lock",
		lockWait:  wait,
		auditFile: af,
	}
	// Fail early on a corrupt snapshot rather than on the first tick.
	if _, err := s.load(); err != nil {
		_ = af.Close()
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil
	}
	err := s.auditFile.Close()
	s.auditFile = nil
	return err
}

func (s *fileStore) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	var out task.Task
	err := s.write(ctx, func(set *taskSet) error {
		var err error
		out, err = set.create(t)
		return err
	})
	return out, err
}

func (s *fileStore) GetTask(_ context.Context, id int64) (task.Task, error) {
	set, err := s.read()
	if err != nil {
		return task.Task{}, err
	}
	return set.get(id)
}

func (s *fileStore) ListTasks(_ context.Context) ([]task.Task, error) {
	set, err := s.read()
	if err != nil {
		return nil, err
	}
	return set.list(), nil
}

func (s *fileStore) UpdateTask(ctx context.Context, id int64, fn func(*task.Task) error) (task.Task, error) {
	var out task.Task
	err := s.write(ctx, func(set *taskSet) error {
		var err error
		out, err = set.update(id, fn)
		return err
	})
	return out, err
}

func (s *fileStore) UpdateReminder(ctx context.Context, id int64, fn func(*reminder.State) error) (task.Task, error) {
	return s.UpdateTask(ctx, id, reminderFn(fn))
}

func (s *fileStore) SetStatus(ctx context.Context, id int64, st task.Status) (task.Task, error) {
	return s.UpdateTask(ctx, id, statusFn(st))
}

func (s *fileStore) AddNote(ctx context.Context, id int64, note string) (task.Task, error) {
	return s.UpdateTask(ctx, id, noteFn(note))
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return unavailable("audit", errors.New("audit file closed"))
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if err := json.NewEncoder(s.auditFile).Encode(e); err != nil {
		return unavailable("audit", err)
	}
	return nil
}

func (s *fileStore) read() (*taskSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// write runs fn against a freshly loaded snapshot while holding the lock file
// and persists the result only when fn succeeds.
func (s *fileStore) write(ctx context.Context, fn func(*taskSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	set, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(set); err != nil {
		return err
	}
	return s.save(set)
}

func (s *fileStore) load() (*taskSet, error) {
	set := newTaskSet()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, unavailable("read snapshot", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return set, nil
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, unavailable("decode snapshot", err)
	}
	for _, r := range snap.Tasks {
		t, err := fromRecord(r)
		if err != nil {
			return nil, unavailable("decode snapshot", err)
		}
		set.put(t)
	}
	if snap.NextID > set.nextID {
		set.nextID = snap.NextID
	}
	return set, nil
}

func (s *fileStore) save(set *taskSet) error {
	snap := snapshot{NextID: set.nextID}
	for _, t := range set.list() {
		snap.Tasks = append(snap.Tasks, toRecord(t))
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return unavailable("encode snapshot", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return unavailable("write snapshot", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		return unavailable("write snapshot", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return unavailable("write snapshot", err)
	}
	if err := f.Close(); err != nil {
		return unavailable("write snapshot", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return unavailable("write snapshot", err)
	}
	return nil
}

// lock creates the lock file exclusively, retrying until lockWait elapses.
// A lock older than staleLockAfter belongs to a crashed writer and is removed.
func (s *fileStore) lock(ctx context.Context) (func(), error) {
	deadline := time.Now().Add(s.lockWait)
	for {
		f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			return func() {
				if err := os.Remove(s.lockPath); err != nil {
					s.log.Warn("storage lock release failed", logx.Err(err))
				}
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, unavailable("lock", err)
		}
		if fi, serr := os.Stat(s.lockPath); serr == nil && time.Since(fi.ModTime()) > staleLockAfter {
			s.log.Warn("removing stale storage lock", logx.String("path", s.lockPath))
			_ = os.Remove(s.lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, unavailable("lock", fmt.Errorf("%s held for more than %s", s.lockPath, s.lockWait))
		}
		select {
		case <-ctx.Done():
			return nil, unavailable("lock", ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}
