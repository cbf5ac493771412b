package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"dolist/internal/reminder"
	"dolist/internal/task"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func statusLabel(s task.Status) string {
	switch s {
	case task.StatusDone:
		return green(string(s))
	case task.StatusCancel:
		return gray(string(s))
	case task.StatusInProgress:
		return cyan(string(s))
	case task.StatusPost:
		return yellow(string(s))
	default:
		return string(s)
	}
}

func reminderLabel(st reminder.State, now time.Time) string {
	d := reminder.Display(st, now)
	if strings.HasPrefix(d, "overdue") {
		return red(d)
	}
	return d
}

func renderTasks(w io.Writer, tasks []task.Task, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Tag", "Status", "Reminder", "Notes"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, t := range tasks {
		notes := ""
		if n := len(t.Notes); n > 0 {
			notes = strconv.Itoa(n)
		}
		table.Append([]string{
			strconv.FormatInt(t.ID, 10),
			t.Name,
			t.Tag,
			statusLabel(t.Status),
			reminderLabel(t.Reminder, now),
			notes,
		})
	}
	table.Render()
}

func renderTask(w io.Writer, t task.Task, now time.Time) {
	fmt.Fprintf(w, "#%d %s\n", t.ID, t.Name)
	fmt.Fprintf(w, "  Tag:     %s\n", t.Tag)
	fmt.Fprintf(w, "  Status:  %s\n", statusLabel(t.Status))
	fmt.Fprintf(w, "  Created: %s\n", t.CreatedOn.In(now.Location()).Format("2006-01-02 15:04"))
	if st := t.Reminder; st.Active() {
		fmt.Fprintf(w, "  Remind:  %s (%s)\n", reminder.Absolute(st.DueAt.In(now.Location()), now), reminderLabel(st, now))
		if st.Recurring() {
			fmt.Fprintf(w, "  Repeats: every %s\n", st.Every)
		}
		if st.Text != "" {
			fmt.Fprintf(w, "  Entered: %s\n", st.Text)
		}
	}
	for i, n := range t.Notes {
		fmt.Fprintf(w, "  Note %d:  %s\n", i+1, n)
	}
}

// reminderSet prints the confirmation shared by remind, delay and repeat.
func reminderSet(w io.Writer, t task.Task, now time.Time) {
	st := t.Reminder
	msg := fmt.Sprintf("Reminder for #%d set: %s (%s)", t.ID,
		reminder.Absolute(st.DueAt.In(now.Location()), now), reminder.Until(st.DueAt, now))
	if st.Recurring() {
		msg += ", repeats every " + st.Every.String()
	}
	fmt.Fprintln(w, green("✓")+" "+msg)
}
