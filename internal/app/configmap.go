package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dolist/internal/config"
	"dolist/internal/notifier"
	"dolist/internal/observability/status"
	"dolist/internal/scheduler"
	"dolist/internal/storage"
	logx "dolist/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config, base string) logx.Config {
	path := cfg.Logging.File.Path
	if strings.TrimSpace(path) == "" {
		path = logx.DefaultFile
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    config.ExpandPath(base, path),
		},
	}
}

// mapStorageConfig fills the default driver and path. Relative paths are
// relative to the config file's directory.
func mapStorageConfig(cfg *config.Config, base string) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	path := config.ExpandPath(base, sc.Path)

	switch driver {
	case "sqlite", "sqlite3":
		if path == "" {
			path = filepath.Join(config.Dir(), "tasks.db")
		}
	case "file":
		if path == "" {
			path = filepath.Join(config.Dir(), "tasks.json")
		}
	case "memory", "mem":
		path = ""
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}

	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
}

func mapNotifierConfig(cfg *config.Config, base string) (notifier.Config, error) {
	r := cfg.Reminder
	timeout, err := config.ParseDurationOrDefault("reminder.handler_timeout", r.HandlerTimeout, notifier.DefaultHandlerTimeout)
	if err != nil {
		return notifier.Config{}, err
	}
	out := notifier.Config{
		HandlerTimeout: timeout,
		RatePerSec:     r.RatePerSec,
	}
	if h := strings.TrimSpace(r.Handler); h != "" {
		// Bare command names are looked up on PATH, not next to the config.
		if strings.ContainsRune(h, filepath.Separator) || strings.HasPrefix(h, "~") {
			h = config.ExpandPath(base, h)
		}
		out.Handler = h
	}
	if tg := r.Telegram; tg != nil {
		out.Telegram = notifier.TelegramConfig{
			Token:    strings.TrimSpace(tg.Token),
			ChatID:   tg.ChatID,
			ThreadID: tg.ThreadID,
			APIURL:   strings.TrimSpace(tg.APIURL),
		}
	}
	return out, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	interval, err := config.PollInterval(cfg.Reminder)
	if err != nil {
		return scheduler.Config{}, err
	}
	backoff, err := config.ParseDurationOrDefault("reminder.backoff_max", cfg.Reminder.BackoffMax, scheduler.DefaultBackoffMax)
	if err != nil {
		return scheduler.Config{}, err
	}
	loc, err := mapLocation(cfg)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{Interval: interval, BackoffMax: backoff, Location: loc}, nil
}

func mapLocation(cfg *config.Config) (*time.Location, error) {
	return config.Location(cfg.Reminder)
}

func mapStatusConfig(cfg *config.Config) status.Config {
	st := cfg.Status
	return status.Config{
		Addr:          strings.TrimSpace(st.Addr),
		Token:         strings.TrimSpace(st.Token),
		AllowInsecure: st.AllowInsecure,
		Pprof:         st.Pprof,
	}
}
