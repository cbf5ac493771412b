package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dolist/internal/eventbus"
	"dolist/internal/reminder"
	"dolist/internal/task"
	logx "dolist/pkg/logx"
)

var created = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func sampleTask() task.Task {
	return task.Task{
		ID:        7,
		Name:      "water plants",
		Tag:       "home",
		Status:    task.StatusNew,
		Notes:     []string{"balcony", "kitchen"},
		CreatedOn: created,
		Reminder:  reminder.State{DueAt: created.Add(2 * time.Hour), Text: "2 hours"},
	}
}

type fakeSink struct {
	name string
	err  error
	got  []Snapshot
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Notify(_ context.Context, s Snapshot) error {
	f.got = append(f.got, s)
	return f.err
}

func TestSnapshotJSONContract(t *testing.T) {
	t.Parallel()
	b, err := NewSnapshot(sampleTask(), created).JSON()
	require.NoError(t, err)
	require.JSONEq(t, `{
		"id": 7,
		"name": "water plants",
		"tag": "home",
		"status": "new",
		"reminder": "2 hours",
		"notes": ["balcony", "kitchen"],
		"created_on": "2024-01-15T10:00:00Z"
	}`, string(b))

	tk := sampleTask()
	tk.Notes = nil
	tk.Reminder.Text = ""
	b, err = NewSnapshot(tk, created).JSON()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, []any{}, m["notes"])
	require.Equal(t, "in 2 hours", m["reminder"])
}

func TestSnapshotTitleBody(t *testing.T) {
	t.Parallel()
	s := NewSnapshot(sampleTask(), created)
	require.Equal(t, "DoList: water plants", s.Title())
	require.Equal(t, "Tag: home\nStatus: new\n2 note(s) attached", s.Body())

	s.Notes = nil
	require.Equal(t, "Tag: home\nStatus: new", s.Body())
}

func TestDispatchSuccess(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	sink := &fakeSink{name: "fake"}
	d := NewWithSink(sink, Config{}, logx.Nop(), bus)
	require.NoError(t, d.Dispatch(context.Background(), sampleTask()))

	require.Len(t, sink.got, 1)
	require.Equal(t, int64(7), sink.got[0].ID)

	e := <-ch
	require.Equal(t, eventbus.ReminderDispatched, e.Type)
	require.Equal(t, "fake", e.Data.(eventbus.Reminder).Sink)

	h := d.History()
	require.Len(t, h, 1)
	require.Empty(t, h[0].Err)
}

func TestDispatchFailureKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		sinkErr error
		want    error
		kind    FailureKind
	}{
		{errors.Join(ErrHandlerFailed, errors.New("exit 1")), ErrHandlerFailed, HandlerFailed},
		{errors.Join(ErrSinkUnavailable, errors.New("no bus")), ErrSinkUnavailable, SinkUnavailable},
		{errors.New("something else"), ErrSinkUnavailable, SinkUnavailable},
	}
	for _, tt := range tests {
		bus := eventbus.New()
		ch, unsub := bus.Subscribe(4)
		d := NewWithSink(&fakeSink{name: "fake", err: tt.sinkErr}, Config{}, logx.Nop(), bus)

		err := d.Dispatch(context.Background(), sampleTask())
		require.ErrorIs(t, err, tt.want)
		var de *DispatchError
		require.ErrorAs(t, err, &de)
		require.Equal(t, tt.kind, de.Kind)
		require.Equal(t, int64(7), de.TaskID)

		e := <-ch
		require.Equal(t, eventbus.ReminderDispatchFailed, e.Type)
		require.NotEmpty(t, e.Data.(eventbus.Reminder).Err)
		unsub()
	}
}

func TestDispatchRespectsCancelledContext(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{name: "fake"}
	d := NewWithSink(sink, Config{RatePerSec: 1}, logx.Nop(), nil)
	require.NoError(t, d.Dispatch(context.Background(), sampleTask()))

	// The bucket is empty now; a cancelled wait gives up without calling the sink.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, d.Dispatch(ctx, sampleTask()))
	require.Len(t, sink.got, 1)
}

func TestSinkSelection(t *testing.T) {
	t.Parallel()
	s, err := buildSink(Config{Handler: "/bin/true", Telegram: TelegramConfig{Token: "x", ChatID: 1}})
	require.NoError(t, err)
	require.Equal(t, "handler", s.Name())

	s, err = buildSink(Config{Telegram: TelegramConfig{Token: "123:abc", ChatID: 42}})
	require.NoError(t, err)
	require.Equal(t, "telegram", s.Name())

	s, err = buildSink(Config{Telegram: TelegramConfig{Token: "123:abc"}})
	require.NoError(t, err)
	require.Equal(t, "desktop", s.Name())
}

func TestApplySwapsSink(t *testing.T) {
	t.Parallel()
	d, err := New(Config{}, logx.Nop(), nil)
	require.NoError(t, err)
	require.Equal(t, "desktop", d.SinkName())

	require.NoError(t, d.Apply(Config{Handler: "/usr/local/bin/remind"}))
	require.Equal(t, "handler", d.SinkName())
}

func TestDesktopFallsBackToNotifySend(t *testing.T) {
	t.Parallel()
	var sent []string
	d := &DesktopSink{
		viaBus: func(context.Context, string, string) error { return errors.New("no session bus") },
		viaNotifySend: func(_ context.Context, title, body string) error {
			sent = append(sent, title, body)
			return nil
		},
	}
	require.NoError(t, d.Notify(context.Background(), NewSnapshot(sampleTask(), created)))
	require.Equal(t, []string{"DoList: water plants", "Tag: home\nStatus: new\n2 note(s) attached"}, sent)

	d.viaNotifySend = func(context.Context, string, string) error { return errors.New("not found") }
	err := d.Notify(context.Background(), NewSnapshot(sampleTask(), created))
	require.ErrorIs(t, err, ErrSinkUnavailable)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handler.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestHandlerReceivesSnapshotOnStdin(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "stdin.json")
	h := &HandlerSink{Path: writeScript(t, "cat > '"+out+"'"), Timeout: 5 * time.Second}

	require.NoError(t, h.Notify(context.Background(), NewSnapshot(sampleTask(), created)))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var got Snapshot
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, NewSnapshot(sampleTask(), created), got)
}

func TestHandlerFailures(t *testing.T) {
	t.Parallel()
	t.Run("non-zero exit", func(t *testing.T) {
		h := &HandlerSink{Path: writeScript(t, "echo 'disk full' >&2\nexit 3")}
		err := h.Notify(context.Background(), NewSnapshot(sampleTask(), created))
		require.ErrorIs(t, err, ErrHandlerFailed)
		require.ErrorContains(t, err, "disk full")
	})
	t.Run("missing executable", func(t *testing.T) {
		h := &HandlerSink{Path: filepath.Join(t.TempDir(), "nope")}
		err := h.Notify(context.Background(), NewSnapshot(sampleTask(), created))
		require.ErrorIs(t, err, ErrHandlerFailed)
	})
	t.Run("timeout", func(t *testing.T) {
		h := &HandlerSink{Path: writeScript(t, "exec sleep 5"), Timeout: 100 * time.Millisecond}
		start := time.Now()
		err := h.Notify(context.Background(), NewSnapshot(sampleTask(), created))
		require.ErrorIs(t, err, ErrHandlerFailed)
		require.ErrorContains(t, err, "timed out")
		require.Less(t, time.Since(start), 3*time.Second)
	})
}

func TestTelegramText(t *testing.T) {
	t.Parallel()
	s := Snapshot{Name: "pay <rent>", Tag: "home", Status: "new", Reminder: "2 hours", Notes: []string{"bank & card"}}
	require.Equal(t,
		"<b>DoList: pay &lt;rent&gt;</b>\nTag: home\nStatus: new\nReminder: <i>2 hours</i>\n<blockquote>bank &amp; card</blockquote>",
		telegramText(s))

	s.Notes = []string{strings.Repeat("n", 3000), strings.Repeat("m", 3000)}
	got := telegramText(s)
	require.True(t, strings.HasSuffix(got, "\n2 note(s) attached"), got)
	require.NotContains(t, got, "blockquote")
}

func TestTelegramSinkSendsHTML(t *testing.T) {
	t.Parallel()
	got := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	t.Cleanup(srv.Close)

	sink, err := NewTelegramSink(TelegramConfig{Token: "123:abc", ChatID: 42, APIURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, sink.Notify(context.Background(), NewSnapshot(sampleTask(), created)))

	body := <-got
	require.Equal(t, "HTML", body["parse_mode"])
	require.Contains(t, body["text"], "<b>DoList: water plants</b>")
}

func TestTelegramSinkTimesOut(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	sink, err := NewTelegramSink(TelegramConfig{Token: "123:abc", ChatID: 42, APIURL: srv.URL, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = sink.Notify(context.Background(), NewSnapshot(sampleTask(), created))
	require.ErrorIs(t, err, ErrSinkUnavailable)
	require.Less(t, time.Since(start), 3*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	slow, err := NewTelegramSink(TelegramConfig{Token: "123:abc", ChatID: 42, APIURL: srv.URL, Timeout: time.Minute})
	require.NoError(t, err)
	start = time.Now()
	err = slow.Notify(ctx, NewSnapshot(sampleTask(), created))
	require.ErrorIs(t, err, ErrSinkUnavailable)
	require.Less(t, time.Since(start), 3*time.Second)
}
