package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "logging:\n  level: error\nreminder:\n  timezone: UTC\nstorage:\n  driver: file\n  path: tasks.json\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func TestAddAndList(t *testing.T) {
	cfg := newConfig(t)

	out := mustRun(t, cfg, "add", "water", "plants", "--tag", "home", "--remind", "2 hours repeat")
	require.Contains(t, out, "Task #1 added: water plants")
	require.Contains(t, out, "Reminder for #1 set")
	require.Contains(t, out, "repeats every 2 hours")

	mustRun(t, cfg, "add", "pay rent")

	out = mustRun(t, cfg, "list")
	require.Contains(t, out, "water plants")
	require.Contains(t, out, "pay rent")
	require.Contains(t, out, "(r)")

	out = mustRun(t, cfg, "list", "--tag", "home")
	require.Contains(t, out, "water plants")
	require.NotContains(t, out, "pay rent")

	out = mustRun(t, cfg, "list", "--reminders")
	require.NotContains(t, out, "pay rent")

	_, err := os.Stat(filepath.Join(filepath.Dir(cfg), "tasks.json"))
	require.NoError(t, err)
}

func TestDoneClearsReminderAndHidesTask(t *testing.T) {
	cfg := newConfig(t)
	mustRun(t, cfg, "add", "call mom", "-r", "tomorrow")

	out := mustRun(t, cfg, "done", "1")
	require.Contains(t, out, "Task #1 is now done")
	require.Contains(t, out, "reminder cleared")

	out = mustRun(t, cfg, "list")
	require.Contains(t, out, "No tasks found.")

	out = mustRun(t, cfg, "list", "--all")
	require.Contains(t, out, "call mom")

	_, err := run(t, cfg, "remind", "1", "2 hours")
	require.ErrorContains(t, err, "closed")

	out = mustRun(t, cfg, "set-status", "#1", "in-progress")
	require.Contains(t, out, "in-progress")
	mustRun(t, cfg, "remind", "1", "2", "hours")
}

func TestReminderCommands(t *testing.T) {
	cfg := newConfig(t)
	mustRun(t, cfg, "add", "stretch")

	_, err := run(t, cfg, "repeat", "1")
	require.ErrorContains(t, err, "has no reminder")

	mustRun(t, cfg, "remind", "1", "30", "minutes")
	out := mustRun(t, cfg, "repeat", "1")
	require.Contains(t, out, "repeats every 30 minutes")

	out = mustRun(t, cfg, "delay", "1", "15", "min")
	require.Contains(t, out, "Reminder for #1 set")

	out = mustRun(t, cfg, "show", "1")
	require.Contains(t, out, "Entered: delayed: 15 minutes")
	require.Contains(t, out, "Repeats: every 30 minutes")

	mustRun(t, cfg, "clear-reminder", "1")
	out = mustRun(t, cfg, "show", "1")
	require.NotContains(t, out, "Remind:")

	_, err = run(t, cfg, "remind", "1", "whenever")
	require.Error(t, err)
}

func TestNoteAndShow(t *testing.T) {
	cfg := newConfig(t)
	mustRun(t, cfg, "add", "groceries")

	out := mustRun(t, cfg, "note", "1", "milk", "and", "eggs")
	require.Contains(t, out, "Note added to #1 (1 total)")

	out = mustRun(t, cfg, "show", "1")
	require.Contains(t, out, "#1 groceries")
	require.Contains(t, out, "Note 1:  milk and eggs")
	require.Contains(t, out, "Status:  new")
}

func TestMissingTask(t *testing.T) {
	cfg := newConfig(t)
	_, err := run(t, cfg, "done", "42")
	require.EqualError(t, err, "task #42 not found")

	_, err = run(t, cfg, "show", "abc")
	require.ErrorContains(t, err, "invalid task id")
}

func TestParsePreview(t *testing.T) {
	cfg := newConfig(t)
	out := mustRun(t, cfg, "parse", "2", "hours", "repeat")
	require.Contains(t, out, "Kind:")
	require.Contains(t, out, "in 2 hours")
	require.Contains(t, out, "Repeats: every 2 hours")

	_, err := run(t, cfg, "parse", "2", "fortnights")
	require.Error(t, err)
}
