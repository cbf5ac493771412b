package config

import (
	"strings"

	logx "dolist/pkg/logx"
)

// SummarizeChange lists the changed sections and safe structured attrs for
// logging. The Telegram token is never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	o, n := oldCfg.Reminder, newCfg.Reminder
	oi, _ := PollInterval(o)
	ni, _ := PollInterval(n)
	if oi != ni ||
		strings.TrimSpace(o.Timezone) != strings.TrimSpace(n.Timezone) ||
		strings.TrimSpace(o.Handler) != strings.TrimSpace(n.Handler) ||
		strings.TrimSpace(o.HandlerTimeout) != strings.TrimSpace(n.HandlerTimeout) ||
		o.RatePerSec != n.RatePerSec ||
		strings.TrimSpace(o.BackoffMax) != strings.TrimSpace(n.BackoffMax) ||
		telegramKey(o.Telegram) != telegramKey(n.Telegram) {
		changed = append(changed, "reminder")
		attrs = append(attrs,
			logx.Duration("reminder.poll_interval", ni),
			logx.String("reminder.timezone", strings.TrimSpace(n.Timezone)),
			logx.Bool("reminder.handler_set", strings.TrimSpace(n.Handler) != ""),
			logx.Int("reminder.rate_per_sec", n.RatePerSec),
			logx.Bool("reminder.telegram_enabled", n.Telegram != nil && n.Telegram.ChatID != 0),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
		)
	}
	if oldCfg.Status != newCfg.Status {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Bool("status.enabled", newCfg.Status.Enabled),
			logx.String("status.addr", newCfg.Status.Addr),
		)
	}
	return changed, attrs
}

// telegramKey lets an omitted section compare equal to an empty one.
func telegramKey(t *TelegramConfig) TelegramConfig {
	if t == nil {
		return TelegramConfig{}
	}
	return *t
}
