package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names recognized as overrides. Env always wins over the
// config file so containerized deployments can run without one.
const (
	EnvDiscordWebhook   = "ZDWB_DISCORD_WEBHOOK"
	EnvZendeskEmail     = "ZDWB_ZENDESK_EMAIL"
	EnvZendeskToken     = "ZDWB_ZENDESK_TOKEN"
	EnvZendeskSubdomain = "ZDWB_ZENDESK_SUBDOMAIN"
	EnvHistoryMinutes   = "ZDWB_HISTORY_MINUTES"
	EnvPollSchedule     = "ZDWB_POLL_SCHEDULE"
	EnvCheckpointPath   = "ZDWB_CHECKPOINT_PATH"
	EnvLogLevel         = "ZDWB_LOG_LEVEL"
)

// ApplyEnv overlays ZDWB_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookup(EnvDiscordWebhook); ok {
		cfg.Discord.WebhookURL = v
	}
	if v, ok := lookup(EnvZendeskEmail); ok {
		cfg.Zendesk.Email = v
	}
	if v, ok := lookup(EnvZendeskToken); ok {
		cfg.Zendesk.Token = v
	}
	if v, ok := lookup(EnvZendeskSubdomain); ok {
		cfg.Zendesk.Subdomain = v
	}
	if v, ok := lookup(EnvHistoryMinutes); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: invalid minute count %q", EnvHistoryMinutes, v)
		}
		cfg.Poll.HistoryMinutes = n
	}
	if v, ok := lookup(EnvPollSchedule); ok {
		cfg.Poll.Schedule = v
	}
	if v, ok := lookup(EnvCheckpointPath); ok {
		cfg.Checkpoint.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// Validate rejects configs that would make the bot start in a broken state.
// Schedule parsing is the poller's concern; here we only check required fields.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Discord.WebhookURL) == "" {
		return fmt.Errorf("discord.webhook_url (or %s) is required", EnvDiscordWebhook)
	}
	if strings.TrimSpace(cfg.Zendesk.Email) == "" {
		return fmt.Errorf("zendesk.email (or %s) is required", EnvZendeskEmail)
	}
	if strings.TrimSpace(cfg.Zendesk.Token) == "" {
		return fmt.Errorf("zendesk.token (or %s) is required", EnvZendeskToken)
	}
	if strings.TrimSpace(cfg.Zendesk.Subdomain) == "" {
		return fmt.Errorf("zendesk.subdomain (or %s) is required", EnvZendeskSubdomain)
	}
	if _, err := cfg.Discord.Backoff(); err != nil {
		return err
	}
	if _, err := cfg.Checkpoint.BusyWait(); err != nil {
		return err
	}
	if cfg.Discord.RetryMax < 0 {
		return fmt.Errorf("discord.retry_max must be >= 0")
	}
	if cfg.Poll.HistoryMinutes < 0 {
		return fmt.Errorf("poll.history_minutes must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Checkpoint.Driver)) {
	case "", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("checkpoint.driver must be \"file\" or \"sqlite\"")
	}
	return nil
}
