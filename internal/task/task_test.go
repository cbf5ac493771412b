package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dolist/internal/reminder"
)

func TestTerminal(t *testing.T) {
	t.Parallel()
	require.True(t, StatusDone.Terminal())
	require.True(t, StatusCancel.Terminal())
	for _, s := range []Status{StatusNew, StatusInProgress, StatusPost} {
		require.False(t, s.Terminal(), s)
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()
	s, err := ParseStatus(" Cancelled ")
	require.NoError(t, err)
	require.Equal(t, StatusCancel, s)

	_, err = ParseStatus("archived")
	require.Error(t, err)
}

func TestSetStatusClearsReminderWhenTerminal(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	tk := New("water plants", "", now)
	require.Equal(t, "default", tk.Tag)

	_, err := reminder.Set(&tk.Reminder, "2 hours repeat", now)
	require.NoError(t, err)

	tk.SetStatus(StatusInProgress)
	require.True(t, tk.Reminder.Active())

	tk.SetStatus(StatusDone)
	require.Equal(t, reminder.State{}, tk.Reminder)
}
