package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dolist/internal/app"
	logx "dolist/pkg/logx"
	"dolist/pkg/systemd"
	"dolist/pkg/systemdmanager"
)

func (c *cli) serviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "service",
		Short: "Run the reminder service in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(c.cfgPath, app.Options{Service: true})
			if err != nil {
				return err
			}
			log := a.Logger()
			ctx := cmd.Context()
			if err := a.Start(ctx); err != nil {
				_ = a.Close()
				return err
			}
			if _, err := systemd.Ready(); err != nil {
				log.Warn("sd_notify ready failed", logx.Err(err))
			}
			_, _ = systemd.Status("delivering reminders via %s", a.Dispatcher().SinkName())

			<-ctx.Done()
			_, _ = systemd.Stopping()

			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := a.Stop(stopCtx, "signal"); err != nil {
				return err
			}
			return a.Err()
		},
	}
}

func (c *cli) installServiceCmd() *cobra.Command {
	var system, userScope bool
	cmd := &cobra.Command{
		Use:   "install-service",
		Short: "Install and start the reminder service as a systemd unit",
		Long: `Install dolist-reminder.service and start it.

Runs as a user unit (~/.config/systemd/user) unless invoked as root or with
--system, which installs to /etc/systemd/system.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := systemdmanager.DetectScope()
			if system {
				scope = systemdmanager.ScopeSystem
			}
			if userScope {
				scope = systemdmanager.ScopeUser
			}

			spec, err := c.unitSpec()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			m, err := systemdmanager.NewContext(ctx, scope)
			if err != nil {
				return err
			}
			defer m.Close()

			path, err := m.Install(ctx, spec)
			if path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s installed and started (%s)\n", green("✓"), systemdmanager.UnitName, scope)
			if scope == systemdmanager.ScopeSystem {
				fmt.Fprintln(cmd.OutOrStdout(), yellow("Run: sudo systemctl status "+systemdmanager.UnitName))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), yellow("Run: systemctl --user status "+systemdmanager.UnitName))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "install a system-wide unit")
	cmd.Flags().BoolVar(&userScope, "user", false, "install a user unit")
	cmd.MarkFlagsMutuallyExclusive("system", "user")
	return cmd
}

func (c *cli) serviceStatusCmd() *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:   "service-status",
		Short: "Show the state of the installed reminder service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := systemdmanager.ScopeUser
			if system {
				scope = systemdmanager.ScopeSystem
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			m, err := systemdmanager.NewContext(ctx, scope)
			if err != nil {
				return err
			}
			defer m.Close()

			st, err := m.Status(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s)\n", st.Name, scope)
			fmt.Fprintf(w, "  Loaded:  %s\n", st.LoadState)
			fmt.Fprintf(w, "  Active:  %s (%s)\n", st.Active, st.SubState)
			fmt.Fprintf(w, "  Enabled: %v\n", st.Enabled)
			if !st.ActiveSince.IsZero() && st.Active == "active" {
				fmt.Fprintf(w, "  Since:   %s\n", st.ActiveSince.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "query the system instance")
	return cmd
}

// unitSpec points the unit at this binary and pins the config path.
func (c *cli) unitSpec() (systemdmanager.UnitSpec, error) {
	exe, err := os.Executable()
	if err != nil {
		return systemdmanager.UnitSpec{}, err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	args := []string{"service"}
	if c.cfgPath != "" {
		abs, err := filepath.Abs(c.cfgPath)
		if err != nil {
			return systemdmanager.UnitSpec{}, err
		}
		args = append(args, "--config", abs)
	}
	spec := systemdmanager.UnitSpec{ExecStart: exe, Args: args}
	if u, err := user.Current(); err == nil {
		spec.User = u.Username
	}
	return spec, nil
}
