package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUntil(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "overdue"},
		{-48 * time.Hour, "overdue"},
		{0, "now"},
		{time.Second, "in 1 second"},
		{45 * time.Second, "in 45 seconds"},
		{90 * time.Second, "in 1 minute"},
		{2*time.Hour + 5*time.Minute, "in 2 hours"},
		{24 * time.Hour, "in 1 day"},
		{3 * 24 * time.Hour, "in 3 days"},
		{15 * 24 * time.Hour, "in 2 weeks"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Until(monday10.Add(tt.d), monday10), tt.d.String())
	}
}

func TestUntilNeverFutureForPast(t *testing.T) {
	t.Parallel()
	for d := time.Duration(1); d < 400*24*time.Hour; d *= 3 {
		require.Equal(t, "overdue", Until(monday10.Add(-d), monday10))
	}
}

func TestAbsolute(t *testing.T) {
	t.Parallel()
	tests := []struct {
		due  time.Time
		want string
	}{
		{at(2024, 1, 15, 15, 0), "Today at 03:00 PM"},
		{at(2024, 1, 16, 9, 0), "Tomorrow at 09:00 AM"},
		{at(2024, 1, 19, 9, 0), "Friday at 09:00 AM"},
		{at(2024, 3, 5, 18, 30), "Mar 05 at 06:30 PM"},
		{at(2027, 12, 25, 9, 0), "Dec 25, 2027 at 09:00 AM"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Absolute(tt.due, monday10))
	}
}

func TestDisplay(t *testing.T) {
	t.Parallel()
	require.Equal(t, "", Display(State{}, monday10))
	require.Equal(t, "in 2 hours", Display(State{DueAt: monday10.Add(2 * time.Hour)}, monday10))
	require.Equal(t, "in 2 hours (r)", Display(State{DueAt: monday10.Add(2 * time.Hour), Every: Interval{2, Hours}}, monday10))
	require.Equal(t, "overdue (r)", Display(State{DueAt: monday10.Add(-time.Hour), Every: Interval{1, Days}}, monday10))
}
