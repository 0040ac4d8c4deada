// Package checkpoint persists the last-audited instant so restarts resume
// where the previous process left off instead of re-paging on old events.
package checkpoint

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// Store is the minimal persistence API used by the poll loop.
type Store interface {
	// Load returns the persisted instant, or ok=false on a cold start.
	Load(ctx context.Context) (at time.Time, ok bool, err error)
	// Save persists a new instant, replacing any previous value.
	Save(ctx context.Context, at time.Time) error
	Close() error
}

// Config configures the checkpoint store.
//
// Driver values:
//   - "file": dependency-free single-value file (default when empty)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown checkpoint driver: " + driver)
	}
}
