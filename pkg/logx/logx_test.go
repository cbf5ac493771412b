package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestWriterFieldsAndLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").Named("scheduler")

	log.Debug("hidden")
	log.Info("tick done",
		Int("due", 2),
		Strings("sinks", []string{"handler"}),
		Time("next", time.Time{}),
		Err(nil),
	)
	log.Warn("dispatch failed", Err(errors.New("boom")), Int64("task", 7))

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	require.Equal(t, "tick done", lines[0]["message"])
	require.Equal(t, "scheduler", lines[0]["comp"])
	require.EqualValues(t, 2, lines[0]["due"])
	require.NotContains(t, lines[0], "next")
	require.NotContains(t, lines[0], "err")
	require.Contains(t, lines[0]["caller"], "logx_test.go:")

	require.Equal(t, "warn", lines[1]["level"])
	require.Equal(t, "boom", lines[1]["err"])
	require.EqualValues(t, 7, lines[1]["task"])
}

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()
	var log Logger
	require.True(t, log.IsZero())
	require.False(t, log.Enabled(LevelError))
	log.Error("nothing happens")
	require.False(t, Nop().IsZero())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in, LevelInfo), in)
	}
}

func TestServiceApplySwitchesFileAndLevel(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	first := filepath.Join(dir, "logs", "first.log")
	second := filepath.Join(dir, "second.log")

	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: first}})
	t.Cleanup(func() { _ = svc.Close() })
	log = log.Named("app")

	log.Debug("not yet")
	log.Info("one")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: second}})
	require.True(t, log.Enabled(LevelDebug))
	log.Debug("two")

	b, err := os.ReadFile(first)
	require.NoError(t, err)
	lines := decodeLines(t, b)
	require.Len(t, lines, 1)
	require.Equal(t, "one", lines[0]["message"])
	require.Equal(t, "app", lines[0]["comp"])

	b, err = os.ReadFile(second)
	require.NoError(t, err)
	lines = decodeLines(t, b)
	require.Len(t, lines, 1)
	require.Equal(t, "two", lines[0]["message"])
}
