package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeYAMLAndJSON(t *testing.T) {
	t.Parallel()
	y := []byte(`
logging:
  level: debug
reminder:
  poll_interval: 10s
  handler: /usr/local/bin/remind
  telegram:
    token: "123:abc"
    chat_id: -1001
    thread_id: 7
storage:
  driver: file
  path: ./tasks.json
`)
	cfg, err := Decode("c.yaml", y)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "/usr/local/bin/remind", cfg.Reminder.Handler)
	require.Equal(t, int64(-1001), cfg.Reminder.Telegram.ChatID)
	require.Equal(t, 7, cfg.Reminder.Telegram.ThreadID)
	require.Equal(t, "file", cfg.Storage.Driver)

	j := []byte(`{"reminder": {"poll_interval_seconds": 0}, "storage": {"driver": "memory"}}`)
	cfg, err = Decode("c.json", j)
	require.NoError(t, err)
	d, err := PollInterval(cfg.Reminder)
	require.NoError(t, err)
	require.Zero(t, d)
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"unknown field":   `{"reminder": {"reminder_cmd": "x"}}`,
		"trailing data":   `{} {}`,
		"bad duration":    `{"reminder": {"poll_interval": "soon"}}`,
		"negative":        `{"reminder": {"handler_timeout": "-1s"}}`,
		"bad driver":      `{"storage": {"driver": "postgres"}}`,
		"bad level":       `{"logging": {"level": "loud"}}`,
		"bad timezone":    `{"reminder": {"timezone": "Mars/Olympus"}}`,
		"half telegram":   `{"reminder": {"telegram": {"token": "x"}}}`,
		"negative rate":   `{"reminder": {"rate_per_sec": -1}}`,
		"negative poll s": `{"reminder": {"poll_interval_seconds": -5}}`,
	}
	for name, body := range tests {
		_, err := Decode("c.json", []byte(body))
		require.Error(t, err, name)
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()
	for _, tz := range []string{"", "local", " Local "} {
		cfg, err := Decode("c.yaml", []byte("reminder:\n  timezone: \""+tz+"\"\n"))
		require.NoError(t, err, tz)
		loc, err := Location(cfg.Reminder)
		require.NoError(t, err)
		require.Equal(t, time.Local, loc, tz)
	}

	loc, err := Location(ReminderConfig{Timezone: "UTC"})
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	_, err = Location(ReminderConfig{Timezone: "Mars/Olympus"})
	require.ErrorContains(t, err, "reminder.timezone")
}

func TestPollInterval(t *testing.T) {
	t.Parallel()
	secs := 45
	zero := 0
	tests := []struct {
		in   ReminderConfig
		want time.Duration
	}{
		{ReminderConfig{}, DefaultPollInterval},
		{ReminderConfig{PollInterval: "1m"}, time.Minute},
		{ReminderConfig{PollInterval: "0s"}, 0},
		{ReminderConfig{PollIntervalSeconds: &secs}, 45 * time.Second},
		{ReminderConfig{PollIntervalSeconds: &zero}, 0},
		{ReminderConfig{PollInterval: "2m", PollIntervalSeconds: &secs}, 2 * time.Minute},
	}
	for _, tt := range tests {
		got, err := PollInterval(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, d)

	d, err = ParseDurationOrDefault("x", "2s", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, d)

	d, err = ParseDurationField("reminder.poll_interval", " 45 ")
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, d)

	_, err = ParseDurationField("reminder.backoff_max", "ten")
	require.ErrorContains(t, err, "reminder.backoff_max")
	_, err = ParseDurationField("reminder.backoff_max", "-2")
	require.ErrorContains(t, err, "negative")
}

func TestDecodeYAMLEdgeCases(t *testing.T) {
	t.Parallel()
	cfg, err := Decode("c.yml", nil)
	require.NoError(t, err)
	require.Empty(t, cfg.Reminder.Handler)

	_, err = Decode("c.yaml", []byte("reminder: [unclosed"))
	require.ErrorContains(t, err, "yaml config c.yaml")

	_, err = Decode("c.yaml", []byte("reminder:\n  1: x\n"))
	require.ErrorContains(t, err, `unknown field "1"`)
}

func TestLoadMissingFileUsesDefault(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, ok, err := m.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Same(t, cfg, m.Get())
}

func TestWatchPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"reminder": {"poll_interval": "30s"}}`), 0o600))

	m := NewManager(path)
	_, ok, err := m.Load()
	require.NoError(t, err)
	require.True(t, ok)
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register before writing.
	var got *Config
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"reminder": {"poll_interval": "5s"}}`), 0o600)
		select {
		case got = <-ch:
			return true
		case <-time.After(400 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "5s", got.Reminder.PollInterval)
	require.Equal(t, "5s", m.Get().Reminder.PollInterval)

	cancel()
	<-done
}

func TestWatchIgnoresInvalidEdits(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	m := NewManager(path)
	_, _, err := m.Load()
	require.NoError(t, err)
	before := m.Get()

	require.NoError(t, os.WriteFile(path, []byte(`{"reminder": {"poll_interval": "often"}}`), 0o600))
	m.reload()
	require.Same(t, before, m.Get())
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	a := &Config{Reminder: ReminderConfig{PollInterval: "30s"}}
	b := &Config{
		Reminder: ReminderConfig{PollInterval: "30s", Telegram: &TelegramConfig{Token: "secret", ChatID: 1}},
		Storage:  StorageConfig{Driver: "file"},
	}
	changed, attrs := SummarizeChange(a, b)
	require.Equal(t, []string{"reminder", "storage"}, changed)
	require.NotEmpty(t, attrs)

	changed, _ = SummarizeChange(a, &Config{Reminder: ReminderConfig{}})
	require.Empty(t, changed, "default interval equals explicit 30s")
}

func TestExpandPath(t *testing.T) {
	t.Parallel()
	require.Equal(t, filepath.Join("/etc/dolist", "tasks.db"), ExpandPath("/etc/dolist", "tasks.db"))
	require.Equal(t, "/var/lib/tasks.db", ExpandPath("/etc/dolist", "/var/lib/tasks.db"))
	require.Equal(t, "", ExpandPath("/x", "  "))
}
