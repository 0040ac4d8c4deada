package config

// Config file shape. Both JSON and YAML are accepted, with the same key
// names; unknown keys are rejected in either format.
type Config struct {
	Zendesk    ZendeskConfig    `json:"zendesk" yaml:"zendesk"`
	Discord    DiscordConfig    `json:"discord" yaml:"discord"`
	Poll       PollConfig       `json:"poll" yaml:"poll"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// ZendeskConfig carries the API credentials for the monitored tenant.
// All three are required; there is no anonymous access to the audit stream.
type ZendeskConfig struct {
	Email     string `json:"email" yaml:"email"`
	Token     string `json:"token" yaml:"token"`
	Subdomain string `json:"subdomain" yaml:"subdomain"`
}

// DiscordConfig controls webhook delivery.
//
// All durations are Go duration strings (e.g. "500ms", "1s").
//
// Defaults (when fields are omitted/zero):
//   - retry_max: 3 (so 4 attempts total)
//   - retry_backoff: "1s"
//   - rate_per_sec: 5
type DiscordConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`

	RetryMax     int    `json:"retry_max,omitempty" yaml:"retry_max,omitempty"`
	RetryBackoff string `json:"retry_backoff,omitempty" yaml:"retry_backoff,omitempty"`
	RatePerSec   int    `json:"rate_per_sec,omitempty" yaml:"rate_per_sec,omitempty"`
}

// PollConfig controls the audit poll loop.
//
// Schedule accepts either an interval duration ("15s", "2m") or a cron
// expression ("*/1 * * * *", "@every 30s"). Default is "15s".
//
// HistoryMinutes is the cold-start backfill window: on first run (no persisted
// checkpoint) the loop replays events from that many minutes in the past.
// 0 disables backfill.
type PollConfig struct {
	Schedule       string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	HistoryMinutes int    `json:"history_minutes,omitempty" yaml:"history_minutes,omitempty"`
}

// CheckpointConfig controls where the last-audited instant is persisted.
//
// Driver values:
//   - "file": dependency-free single-value file (default)
//   - "sqlite": SQLite database file
type CheckpointConfig struct {
	Driver      string `json:"driver,omitempty" yaml:"driver,omitempty"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string      `json:"level" yaml:"level"`
	Console bool        `json:"console" yaml:"console"`
	File    LoggingFile `json:"file" yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}
