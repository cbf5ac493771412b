package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dolist/internal/reminder"
	"dolist/internal/storage"
)

func (c *cli) remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind <id> <expression...>",
		Short: "Set or replace a task reminder",
		Example: `  dolist remind 3 2 hours
  dolist remind 3 tomorrow repeat
  dolist remind 3 "25 dec/27 11am"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return c.updateReminder(cmd, args[0], func(st *reminder.State, now time.Time) error {
				_, err := reminder.Set(st, text, now)
				return err
			})
		},
	}
}

func (c *cli) delayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delay <id> [interval...]",
		Short: "Push a reminder back (default 10 minutes)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return c.updateReminder(cmd, args[0], func(st *reminder.State, now time.Time) error {
				return reminder.Delay(st, text, now)
			})
		},
	}
}

func (c *cli) repeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repeat <id>",
		Short: "Make an existing reminder recurring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.updateReminder(cmd, args[0], func(st *reminder.State, _ time.Time) error {
				return reminder.Repeat(st)
			})
		},
	}
}

func (c *cli) clearReminderCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "clear-reminder <id>",
		Aliases: []string{"unremind"},
		Short:   "Remove a task reminder",
		Args:    cobra.ExactArgs(1),
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

			_, err = a.Store().UpdateReminder(cmd.Context(), id, func(st *reminder.State) error {
				reminder.Clear(st)
				return nil
			})
			if err != nil {
				return notFoundHint(err, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Reminder cleared for #%d\n", green("✓"), id)
			return nil
		},
	}
}

func (c *cli) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <expression...>",
		Short: "Show when a reminder expression would fire",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			now := a.Now()
			p, err := reminder.Parse(strings.Join(args, " "), now)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Kind:    %s\n", p.Kind)
			fmt.Fprintf(w, "Fires:   %s (%s)\n", p.At.Format("2006-01-02 15:04:05 MST"), reminder.Until(p.At, now))
			fmt.Fprintf(w, "Display: %s\n", reminder.Absolute(p.At, now))
			if p.Recurring {
				fmt.Fprintf(w, "Repeats: every %s\n", p.Every)
			}
			return nil
		},
	}
}

// updateReminder applies fn to the task's reminder inside one store update
// and prints the result.
func (c *cli) updateReminder(cmd *cobra.Command, rawID string, fn func(*reminder.State, time.Time) error) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()

	now := a.Now()
	t, err := a.Store().UpdateReminder(cmd.Context(), id, func(st *reminder.State) error {
		return fn(st, now)
	})
	switch {
	case errors.Is(err, storage.ErrTerminal):
		return fmt.Errorf("task #%d is closed; reopen it before setting a reminder", id)
	case errors.Is(err, reminder.ErrNoReminder):
		return fmt.Errorf("task #%d has no reminder; set one with: dolist remind %d <expression>", id, id)
	case err != nil:
		return notFoundHint(err, id)
	}
	reminderSet(cmd.OutOrStdout(), t, now)
	return nil
}
