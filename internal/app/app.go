// Package app wires configuration, logging, clients, and the poll loop into
// a runnable bot.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/checkpoint"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/clock"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/config"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/discord"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/identity"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/notify"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/poller"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

const (
	defaultSchedule       = "15s"
	defaultCheckpointPath = "./zdwb.checkpoint"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store  checkpoint.Store
	poller *poller.Poller
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logxConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("component", "config")))
	mgr.SetValidator(config.Validate)

	zd, err := zendesk.NewClient(zendesk.Config{
		Email:     cfg.Zendesk.Email,
		Token:     cfg.Zendesk.Token,
		Subdomain: cfg.Zendesk.Subdomain,
	}, log.With(logx.String("component", "zendesk")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	clk := clock.System{}

	dcCfg, err := discordConfig(cfg.Discord)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	webhook, err := discord.New(dcCfg, clk, log.With(logx.String("component", "discord")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	// Hot reload follows logging and delivery knobs only; credential or
	// checkpoint changes require a restart.
	mgr.OnReload(func(cfg *config.Config) {
		logSvc.Apply(logxConfig(cfg.Logging))
		dcCfg, err := discordConfig(cfg.Discord)
		if err != nil {
			log.Warn("reload rejected", logx.Err(err))
			return
		}
		webhook.Apply(dcCfg)
	})

	cpCfg, err := checkpointConfig(cfg.Checkpoint)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := checkpoint.Open(cpCfg, log.With(logx.String("component", "checkpoint")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	rawSchedule := cfg.Poll.Schedule
	if rawSchedule == "" {
		rawSchedule = defaultSchedule
	}
	schedule, err := poller.ParseSchedule(rawSchedule)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	resolver := identity.NewResolver(zd, log.With(logx.String("component", "identity")))
	classifier := notify.NewClassifier(zd, resolver, log.With(logx.String("component", "classify")))
	composer := notify.NewComposer(zd, resolver, classifier, log.With(logx.String("component", "compose")))

	loop := poller.New(zd, composer, webhook, store, clk, log.With(logx.String("component", "poller")), poller.Options{
		Schedule: schedule,
		History:  time.Duration(cfg.Poll.HistoryMinutes) * time.Minute,
		Heartbeat: func() {
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		},
	})

	return &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		store:  store,
		poller: loop,
	}, nil
}

// Run blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go func() { _ = a.cfgMgr.Watch(ctx) }()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("bot started")

	err := a.poller.Run(ctx)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	return err
}

func (a *App) Close() error {
	err := a.store.Close()
	_ = a.logSvc.Close()
	return err
}

func logxConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
	}
}

func discordConfig(c config.DiscordConfig) (discord.Config, error) {
	backoff, err := c.Backoff()
	if err != nil {
		return discord.Config{}, err
	}
	return discord.Config{
		WebhookURL:   c.WebhookURL,
		RetryMax:     c.RetryMax,
		RetryBackoff: backoff,
		RatePerSec:   c.RatePerSec,
	}, nil
}

func checkpointConfig(c config.CheckpointConfig) (checkpoint.Config, error) {
	busy, err := c.BusyWait()
	if err != nil {
		return checkpoint.Config{}, err
	}
	path := c.Path
	if path == "" {
		path = defaultCheckpointPath
	}
	return checkpoint.Config{Driver: c.Driver, Path: path, BusyTimeout: busy}, nil
}
