package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dolist/internal/reminder"
	"dolist/internal/storage"
	"dolist/internal/task"
)

func (c *cli) addCmd() *cobra.Command {
	var tag, remind string
	cmd := &cobra.Command{
		Use:   "add <name...>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			now := a.Now()
			t := task.New(strings.Join(args, " "), tag, now)
			if strings.TrimSpace(remind) != "" {
				if _, err := reminder.Set(&t.Reminder, remind, now); err != nil {
					return err
				}
			}
			t, err = a.Store().CreateTask(cmd.Context(), t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Task #%d added: %s\n", green("✓"), t.ID, t.Name)
			if t.Reminder.Active() {
				reminderSet(cmd.OutOrStdout(), t, now)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "task tag (default \"default\")")
	cmd.Flags().StringVarP(&remind, "remind", "r", "", "reminder expression, e.g. \"2 hours\" or \"monday 9am repeat\"")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var tag, status string
	var all, reminders bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long:    "List tasks. Done and cancelled tasks are hidden unless --all or --status is given.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want task.Status
			if strings.TrimSpace(status) != "" {
				s, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				want = s
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.Store().ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			out := tasks[:0]
			for _, t := range tasks {
				switch {
				case tag != "" && !strings.EqualFold(t.Tag, tag):
				case want != "" && t.Status != want:
				case want == "" && !all && t.Status.Terminal():
				case reminders && !t.Reminder.Active():
				default:
					out = append(out, t)
				}
			}
			if len(out) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
				return nil
			}
			renderTasks(cmd.OutOrStdout(), out, a.Now())
			return nil
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "only tasks with this tag")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include done and cancelled tasks")
	cmd.Flags().BoolVar(&reminders, "reminders", false, "only tasks with an active reminder")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.Store().GetTask(cmd.Context(), id)
			if err != nil {
				return notFoundHint(err, id)
			}
			renderTask(cmd.OutOrStdout(), t, a.Now())
			return nil
		},
	}
}

// statusCmd is a shortcut for set-status with a fixed status.
func (c *cli) statusCmd(use, short string, status task.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.setStatus(cmd, args[0], status)
		},
	}
}

func (c *cli) setStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Set a task status (new, in-progress, done, cancel, post)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := task.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return c.setStatus(cmd, args[0], s)
		},
	}
}

func (c *cli) setStatus(cmd *cobra.Command, rawID string, s task.Status) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()

	had := false
	if prev, err := a.Store().GetTask(cmd.Context(), id); err == nil {
		had = prev.Reminder.Active()
	}
	t, err := a.Store().SetStatus(cmd.Context(), id, s)
	if err != nil {
		return notFoundHint(err, id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Task #%d is now %s\n", green("✓"), t.ID, statusLabel(t.Status))
	if had && !t.Reminder.Active() {
		fmt.Fprintln(cmd.OutOrStdout(), gray("  reminder cleared"))
	}
	return nil
}

func (c *cli) noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text...>",
		Short: "Attach a note to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.Store().AddNote(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return notFoundHint(err, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Note added to #%d (%d total)\n", green("✓"), t.ID, len(t.Notes))
			return nil
		},
	}
}

func notFoundHint(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("task #%d not found", id)
	}
	return err
}
