// Package poller runs the audit loop: fetch ticket events since the last
// checkpoint, translate and deliver each one, advance the checkpoint, sleep,
// repeat. Everything runs single-threaded and in order; a slow external call
// blocks the cycle rather than overlapping with other work.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/checkpoint"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/clock"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/discord"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/notify"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// EventSource is the slice of the Zendesk API the loop needs.
type EventSource interface {
	EventsSince(ctx context.Context, since time.Time) ([]zendesk.TicketEvent, error)
}

// Composer translates one ticket event into a webhook message.
type Composer interface {
	Compose(ctx context.Context, ev zendesk.TicketEvent, firstRun bool) (notify.Message, error)
}

// Deliverer posts a composed message to the webhook.
type Deliverer interface {
	Deliver(ctx context.Context, msg notify.Message) error
}

// Options tunes the loop.
type Options struct {
	// Schedule decides the sleep between cycles.
	Schedule Schedule
	// History is the cold-start backfill window. 0 disables backfill.
	History time.Duration
	// Heartbeat, when set, is invoked once per completed cycle (used for the
	// systemd watchdog).
	Heartbeat func()
}

type Poller struct {
	events   EventSource
	composer Composer
	deliver  Deliverer
	store    checkpoint.Store
	clk      clock.Clock
	log      logx.Logger
	opts     Options
}

func New(events EventSource, composer Composer, deliver Deliverer, store checkpoint.Store, clk clock.Clock, log logx.Logger, opts Options) *Poller {
	if clk == nil {
		clk = clock.System{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Poller{
		events:   events,
		composer: composer,
		deliver:  deliver,
		store:    store,
		clk:      clk,
		log:      log,
		opts:     opts,
	}
}

// Run executes the loop until ctx is done. Per-event failures never abort the
// loop or block checkpoint advancement; the loop only returns early when the
// checkpoint store itself is unusable at startup.
func (p *Poller) Run(ctx context.Context) error {
	cp, ok, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	coldStart := !ok
	if coldStart {
		cp = p.clk.Now()
	}
	p.log.Info("last audit checkpoint", logx.Time("at", cp), logx.Bool("cold_start", coldStart))

	// Persist immediately so a crash before the first completed cycle doesn't
	// re-derive a fresh "now" and silently widen the window.
	if err := p.store.Save(ctx, cp); err != nil {
		return err
	}

	// Optional cold-start backfill. The whole pass counts as the first run,
	// so historical tickets never page the channel.
	firstRun := coldStart
	if coldStart && p.opts.History > 0 {
		since := cp.Add(-p.opts.History)
		p.log.Info("backfilling history", logx.Time("since", since))
		if p.cycle(ctx, since, true) {
			cp = p.advance(ctx)
		}
		firstRun = false
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if p.cycle(ctx, cp, firstRun) {
			cp = p.advance(ctx)
		}
		firstRun = false
		if p.opts.Heartbeat != nil {
			p.opts.Heartbeat()
		}

		delay := p.opts.Schedule.NextDelay(p.clk.Now())
		p.log.Debug("sleeping until next poll", logx.Duration("delay", delay))
		p.clk.Sleep(ctx, delay)
	}
}

// cycle drains one batch. It reports whether the batch completed (fetch
// succeeded), in which case the checkpoint advances regardless of how many
// events inside it failed.
func (p *Poller) cycle(ctx context.Context, since time.Time, firstRun bool) bool {
	events, err := p.events.EventsSince(ctx, since)
	if err != nil {
		// Leave the checkpoint alone so the same window is retried next cycle.
		p.log.Error("event fetch failed", logx.Err(err), logx.Time("since", since))
		return false
	}
	if len(events) > 0 {
		p.log.Debug("processing event batch", logx.Int("count", len(events)))
	}
	for _, ev := range events {
		p.handleEvent(ctx, ev, firstRun)
	}
	return true
}

// advance moves the checkpoint to now and persists it. Persistence failures
// are logged but never stop the loop.
func (p *Poller) advance(ctx context.Context) time.Time {
	now := p.clk.Now()
	if err := p.store.Save(ctx, now); err != nil {
		p.log.Error("checkpoint persist failed", logx.Err(err), logx.Time("at", now))
	}
	return now
}

// handleEvent translates and delivers one event. Vanished records are the
// expected benign race and only logged at debug; everything else is an error
// log. Either way the event is considered processed.
func (p *Poller) handleEvent(ctx context.Context, ev zendesk.TicketEvent, firstRun bool) {
	msg, err := p.composer.Compose(ctx, ev, firstRun)
	if err != nil {
		if errors.Is(err, zendesk.ErrNotFound) {
			p.log.Debug("record vanished before processing; skipping event",
				logx.Int64("event_id", ev.ID), logx.Int64("ticket_id", ev.TicketID))
			return
		}
		p.log.Error("event translation failed",
			logx.Err(err), logx.Int64("event_id", ev.ID), logx.Int64("ticket_id", ev.TicketID))
		return
	}

	if err := p.deliver.Deliver(ctx, msg); err != nil {
		if errors.Is(err, discord.ErrDeliveryFailed) {
			// Already logged by the client; the message is dropped.
			return
		}
		p.log.Error("delivery error", logx.Err(err), logx.Int64("event_id", ev.ID))
	}
}
