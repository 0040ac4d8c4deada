package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// Manager owns the config file: initial load, ZDWB_* env overlay, and hot
// reload. Reload consumers register callbacks with OnReload; callbacks run on
// the watch goroutine and must not block.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	cbMu      sync.Mutex
	callbacks []func(*Config)

	log       logx.Logger
	validator func(*Config) error
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// SetValidator installs a check a reloaded config must pass before it is
// committed and published.
func (m *Manager) SetValidator(fn func(*Config) error) { m.validator = fn }

// OnReload registers a callback invoked with every committed reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.cbMu.Lock()
	m.callbacks = append(m.callbacks, fn)
	m.cbMu.Unlock()
}

// Parse reads and strictly decodes the config file. A missing file is not an
// error: deployments may configure everything through ZDWB_* env vars, so a
// missing file decodes as the zero config.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return decodeStrict(m.path, b)
}

// Load parses the file, overlays env vars, and commits the result.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	m.Commit(cfg)
	return cfg, nil
}

func (m *Manager) Commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// reload re-reads the file and publishes the result when it parses, passes
// validation, and actually differs from the committed config. Editors fire
// several events per save; Config is a comparable value, so an unchanged
// re-read is detected by plain equality.
func (m *Manager) reload() {
	cfg, err := m.Parse()
	if err == nil {
		err = ApplyEnv(cfg)
	}
	if err != nil {
		m.warn("config reload failed", logx.String("path", m.path), logx.Err(err))
		return
	}

	m.mu.RLock()
	unchanged := m.cfg != nil && *m.cfg == *cfg
	m.mu.RUnlock()
	if unchanged {
		return
	}

	if m.validator != nil {
		if err := m.validator(cfg); err != nil {
			m.warn("config rejected; keeping current", logx.String("path", m.path), logx.Err(err))
			return
		}
	}

	m.Commit(cfg)

	m.cbMu.Lock()
	fns := append(([]func(*Config))(nil), m.callbacks...)
	m.cbMu.Unlock()
	for _, fn := range fns {
		fn(cfg)
	}
	if !m.log.IsZero() {
		m.log.Info("config reloaded", logx.String("path", m.path))
	}
}

// Watch blocks until ctx is done, reloading the config whenever the file
// changes. A broken watcher is recreated with growing delays.
func (m *Manager) Watch(ctx context.Context) error {
	backoff := time.Second
	for {
		err := m.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		m.warn("config watcher stopped; restarting",
			logx.Err(err), logx.Duration("in", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// settleWindow lets an editor's write burst (truncate, write, rename) finish
// before the file is re-read.
const settleWindow = 250 * time.Millisecond

// watch runs one watcher lifetime. It returns when the watcher breaks; the
// caller recreates it.
func (m *Manager) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, not the file: rename-based saves replace the inode
	// and a file watch would go stale after the first save.
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		return err
	}

	file := filepath.Base(m.path)
	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("watch event channel closed")
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) {
				settle = time.After(settleWindow)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("watch error channel closed")
			}
			m.warn("config watch error", logx.Err(err))
		case <-settle:
			settle = nil
			m.reload()
		}
	}
}

func (m *Manager) warn(msg string, fields ...logx.Field) {
	if !m.log.IsZero() {
		m.log.Warn(msg, fields...)
	}
}
