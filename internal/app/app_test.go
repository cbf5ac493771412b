package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dolist/internal/config"
	"dolist/internal/eventbus"
	"dolist/internal/reminder"
	"dolist/internal/task"
)

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
}

func TestMapStorageConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	sc, err := mapStorageConfig(&config.Config{}, "/etc/dolist")
	require.NoError(t, err)
	require.Equal(t, "sqlite", sc.Driver)
	require.Equal(t, filepath.Join(xdg, "dolist", "tasks.db"), sc.Path)
	require.Equal(t, 5*time.Second, sc.BusyTimeout)

	sc, err = mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: "File", Path: "data/tasks.json", BusyTimeout: "2s"}}, "/etc/dolist")
	require.NoError(t, err)
	require.Equal(t, "file", sc.Driver)
	require.Equal(t, "/etc/dolist/data/tasks.json", sc.Path)
	require.Equal(t, 2*time.Second, sc.BusyTimeout)

	sc, err = mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: "memory", Path: "ignored"}}, "/etc/dolist")
	require.NoError(t, err)
	require.Empty(t, sc.Path)

	_, err = mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: "redis"}}, "")
	require.Error(t, err)
}

func TestMapNotifierConfig(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Reminder: config.ReminderConfig{
		Handler:        "remind-me",
		HandlerTimeout: "2s",
		RatePerSec:     3,
		Telegram:       &config.TelegramConfig{Token: " tok ", ChatID: -100, ThreadID: 4},
	}}
	nc, err := mapNotifierConfig(cfg, "/etc/dolist")
	require.NoError(t, err)
	require.Equal(t, "remind-me", nc.Handler)
	require.Equal(t, 2*time.Second, nc.HandlerTimeout)
	require.Equal(t, 3, nc.RatePerSec)
	require.Equal(t, "tok", nc.Telegram.Token)
	require.Equal(t, int64(-100), nc.Telegram.ChatID)
	require.Equal(t, 4, nc.Telegram.ThreadID)

	cfg.Reminder.Handler = "bin/remind.sh"
	nc, err = mapNotifierConfig(cfg, "/etc/dolist")
	require.NoError(t, err)
	require.Equal(t, "/etc/dolist/bin/remind.sh", nc.Handler)

	cfg.Reminder.HandlerTimeout = "soon"
	_, err = mapNotifierConfig(cfg, "")
	require.Error(t, err)
}

func TestMapSchedulerConfig(t *testing.T) {
	t.Parallel()
	zero := 0
	sc, err := mapSchedulerConfig(&config.Config{Reminder: config.ReminderConfig{PollIntervalSeconds: &zero, Timezone: "UTC"}})
	require.NoError(t, err)
	require.Zero(t, sc.Interval)
	require.Equal(t, time.UTC, sc.Location)

	sc, err = mapSchedulerConfig(&config.Config{})
	require.NoError(t, err)
	require.Equal(t, config.DefaultPollInterval, sc.Interval)
	require.Equal(t, time.Local, sc.Location)
}

func TestStartDeliversDueReminder(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "payload.json")
	writeFile(t, filepath.Join(dir, "remind.sh"), "#!/bin/sh\ncat > "+out+"\n", 0o755)
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, `
logging:
  level: error
reminder:
  poll_interval: 1s
  handler: ./remind.sh
  timezone: UTC
storage:
  driver: memory
`, 0o644)

	a, err := New(cfgPath, Options{Service: true})
	require.NoError(t, err)
	require.Equal(t, "handler", a.Dispatcher().SinkName())

	ctx := context.Background()
	now := a.Now()
	tk := task.New("water plants", "home", now.Add(-time.Hour))
	tk.Reminder = reminder.State{DueAt: now.Add(-time.Minute), Text: "1 hour"}
	created, err := a.Store().CreateTask(ctx, tk)
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx, "test")
	})

	require.Eventually(t, func() bool {
		return a.Stats()[eventbus.ReminderCleared] >= 1
	}, 5*time.Second, 20*time.Millisecond)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(b, &payload))
	require.Equal(t, "water plants", payload["name"])
	require.Equal(t, "1 hour", payload["reminder"])

	got, err := a.Store().GetTask(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, got.Reminder.Active())
}

func TestConfigReloadAppliesTimezone(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "reminder:\n  poll_interval: 0s\nstorage:\n  driver: memory\n", 0o644)

	a, err := New(cfgPath, Options{})
	require.NoError(t, err)
	require.Equal(t, time.Local, a.Location())

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx, "test")
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, cfgPath, "reminder:\n  poll_interval: 0s\n  timezone: UTC\nstorage:\n  driver: memory\n", 0o644)

	require.Eventually(t, func() bool {
		return a.Location() == time.UTC
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return a.Stats()[eventbus.ConfigApplied] == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNewWithoutConfigFileUsesDefaults(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	a, err := New(filepath.Join(xdg, "dolist", "config.yaml"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = os.Stat(filepath.Join(xdg, "dolist", "tasks.db"))
	require.NoError(t, err)
	require.Equal(t, "info", a.Config().Logging.Level)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, "reminder:\n  timezone: Mars/Olympus\n", 0o644)
	_, err := New(cfgPath, Options{})
	require.Error(t, err)
}

func TestStatusSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "reminder:\n  poll_interval: 0s\n  timezone: UTC\nstorage:\n  driver: memory\n", 0o644)

	a, err := New(cfgPath, Options{})
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx, "test")
	})

	st := a.Status()
	require.Equal(t, cfgPath, st.Config)
	require.Equal(t, "UTC", st.Timezone)
	require.Equal(t, "idle", st.Phase)
	require.False(t, st.Started.IsZero())
	require.Positive(t, st.Goroutines)

	b, err := json.Marshal(st)
	require.NoError(t, err)
	require.Contains(t, string(b), `"events_dropped":0`)
}
