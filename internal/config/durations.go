package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration knobs live in the file as Go duration strings. Each accessor owns
// its key name, default, and bounds, so Validate and the composition root
// report a bad value the same way.

// Backoff returns the delay between webhook delivery attempts.
func (c DiscordConfig) Backoff() (time.Duration, error) {
	return knobDuration("discord.retry_backoff", c.RetryBackoff, time.Second)
}

// BusyWait returns how long the sqlite checkpoint driver waits on a locked
// database. Zero keeps the driver default.
func (c CheckpointConfig) BusyWait() (time.Duration, error) {
	return knobDuration("checkpoint.busy_timeout", c.BusyTimeout, 0)
}

func knobDuration(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration (want e.g. \"500ms\", \"2s\")", key, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}
