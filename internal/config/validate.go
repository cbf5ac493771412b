package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate checks values the strict decoder cannot: duration syntax, enums
// and ranges.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		add(fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}

	r := cfg.Reminder
	_, err := PollInterval(r)
	add(err)
	_, err = ParseDurationField("reminder.handler_timeout", r.HandlerTimeout)
	add(err)
	_, err = ParseDurationField("reminder.backoff_max", r.BackoffMax)
	add(err)
	if r.RatePerSec < 0 {
		add(errors.New("reminder.rate_per_sec: must be >= 0"))
	}
	if _, err := Location(r); err != nil {
		add(err)
	}
	if tg := r.Telegram; tg != nil && (strings.TrimSpace(tg.Token) == "") != (tg.ChatID == 0) {
		add(errors.New("reminder.telegram: token and chat_id must be set together"))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "file", "sqlite", "sqlite3", "memory", "mem":
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	_, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	add(err)

	if st := cfg.Status; st.Enabled && strings.TrimSpace(st.Addr) != "" {
		if _, _, err := net.SplitHostPort(strings.TrimSpace(st.Addr)); err != nil {
			add(fmt.Errorf("status.addr: %w", err))
		}
	}

	return errors.Join(errs...)
}

// PollInterval resolves poll_interval / poll_interval_seconds. An explicit 0
// disables polling; neither field set means DefaultPollInterval.
func PollInterval(r ReminderConfig) (time.Duration, error) {
	if s := strings.TrimSpace(r.PollInterval); s != "" {
		return ParseDurationField("reminder.poll_interval", s)
	}
	if r.PollIntervalSeconds != nil {
		if *r.PollIntervalSeconds < 0 {
			return 0, errors.New("reminder.poll_interval_seconds: must be >= 0")
		}
		return time.Duration(*r.PollIntervalSeconds) * time.Second, nil
	}
	return DefaultPollInterval, nil
}

const DefaultPollInterval = 30 * time.Second

// Location resolves reminder.timezone. Blank or "local" (any case) is
// time.Local.
func Location(r ReminderConfig) (*time.Location, error) {
	tz := strings.TrimSpace(r.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("reminder.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}
