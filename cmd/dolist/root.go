package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dolist/internal/app"
	"dolist/internal/config"
)

type cli struct {
	cfgPath string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "dolist",
		Short: "Task list with natural-language reminders",
		Long: `dolist keeps a small task list and reminds you about tasks.

Reminders accept expressions such as "2 hours", "tomorrow", "next week",
"monday 9am", "25 dec/27 11am" or "2025-03-01 14:00". Append "repeat" to
make them recurring. The reminder service delivers due reminders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", "",
		"config file (default $"+config.EnvConfig+" or ~/.config/dolist/config.yaml)")

	root.AddCommand(
		c.addCmd(),
		c.listCmd(),
		c.showCmd(),
		c.statusCmd("done", "Mark a task done", "done"),
		c.statusCmd("cancel", "Cancel a task", "cancel"),
		c.statusCmd("start", "Mark a task in progress", "in-progress"),
		c.statusCmd("postpone", "Mark a task postponed", "post"),
		c.setStatusCmd(),
		c.noteCmd(),
		c.remindCmd(),
		c.delayCmd(),
		c.repeatCmd(),
		c.clearReminderCmd(),
		c.parseCmd(),
		c.serviceCmd(),
		c.installServiceCmd(),
		c.serviceStatusCmd(),
	)
	return root
}

// open builds an app for a one-shot command; callers Close it.
func (c *cli) open() (*app.App, error) {
	return app.New(c.cfgPath, app.Options{})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
