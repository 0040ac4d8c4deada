package poller

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule decides how long the loop sleeps between poll cycles.
//
// Supported forms:
//   - Interval duration: "15s", "2m30s"
//   - Cron (crontab.guru-style): "*/5 * * * *", "@hourly", "@every 55m"
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
type Schedule struct {
	raw   string
	every time.Duration
	cron  cron.Schedule // nil for interval schedules
}

func (s Schedule) String() string { return s.raw }

// NextDelay returns how long to sleep from now until the next poll.
func (s Schedule) NextDelay(now time.Time) time.Duration {
	if s.cron != nil {
		return s.cron.Next(now).Sub(now)
	}
	return s.every
}

// ParseSchedule parses a schedule string. Empty input is an error; the caller
// supplies the default.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, fmt.Errorf("schedule required")
	}

	// Prefixes (explicit)
	low := strings.ToLower(s)
	if strings.HasPrefix(low, "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Schedule{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return parseCron(raw, expr)
	}
	for _, prefix := range []string{"interval:", "every:"} {
		if strings.HasPrefix(low, prefix) {
			return parseInterval(raw, strings.TrimSpace(s[len(prefix):]))
		}
	}

	// Heuristic: any whitespace or leading '@' => cron
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return parseCron(raw, s)
	}

	return parseInterval(raw, s)
}

func parseCron(raw, expr string) (Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return Schedule{raw: raw, cron: sched}, nil
}

func parseInterval(raw, v string) (Schedule, error) {
	if v == "" {
		return Schedule{}, fmt.Errorf("interval required")
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid interval %q (use a Go duration like '15s'/'2m30s'): %w", v, err)
	}
	if d <= 0 {
		return Schedule{}, fmt.Errorf("interval must be > 0")
	}
	return Schedule{raw: raw, every: d}, nil
}
