package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings ("30s", "5m").
//
// Example (YAML):
//
//	reminder:
//	  poll_interval: 30s
//	  handler: /usr/local/bin/remind
//	storage:
//	  driver: sqlite
//	  path: ~/.config/dolist/tasks.db
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Reminder ReminderConfig `json:"reminder"`
	Storage  StorageConfig  `json:"storage"`
	Status   StatusConfig   `json:"status"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ReminderConfig controls the scheduler and the notification sink.
//
// Defaults (when fields are omitted/zero):
//   - poll_interval: "30s" ("0s" disables polling)
//   - handler_timeout: "5s"
//   - rate_per_sec: 5
//   - backoff_max: "5m"
//   - timezone: local
//
// poll_interval_seconds is the integer form of poll_interval; when both are
// set poll_interval wins.
type ReminderConfig struct {
	PollInterval        string          `json:"poll_interval,omitempty"`
	PollIntervalSeconds *int            `json:"poll_interval_seconds,omitempty"`
	Timezone            string          `json:"timezone,omitempty"`
	Handler             string          `json:"handler,omitempty"`
	HandlerTimeout      string          `json:"handler_timeout,omitempty"`
	RatePerSec          int             `json:"rate_per_sec,omitempty"`
	BackoffMax          string          `json:"backoff_max,omitempty"`
	Telegram            *TelegramConfig `json:"telegram,omitempty"`
}

// TelegramConfig enables the Telegram sink when token and chat_id are set
// and no handler is configured.
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
}

// StorageConfig selects the task store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./tasks.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// StatusConfig enables the local HTTP status endpoint of the reminder
// service. Changes take effect on restart.
type StatusConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}
