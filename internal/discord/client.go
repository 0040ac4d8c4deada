// Package discord delivers composed notification payloads to a Discord
// webhook endpoint, with a bounded retry policy and rate-limit backoff.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/clock"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/notify"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// ErrDeliveryFailed marks a payload dropped after the full attempt budget.
// It is non-fatal to the poll loop; the message is simply lost.
var ErrDeliveryFailed = errors.New("discord: delivery failed")

// Config controls delivery behavior.
//
// Defaults (when fields are zero):
//   - RetryMax: 3 (4 attempts total)
//   - RetryBackoff: 1s
//   - RatePerSec: 5
type Config struct {
	WebhookURL string

	RetryMax     int
	RetryBackoff time.Duration
	RatePerSec   int
}

func (c Config) withDefaults() Config {
	if c.RetryMax == 0 {
		c.RetryMax = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 5
	}
	return c
}

// Client posts webhook payloads. Safe for concurrent use; Apply() swaps the
// endpoint and limits at runtime on config reload.
type Client struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	http *http.Client
	clk  clock.Clock
	log  logx.Logger
}

func New(cfg Config, clk clock.Clock, log logx.Logger) (*Client, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("discord webhook url is empty")
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		clk:  clk,
		log:  log,
	}
	c.Apply(cfg)
	return c, nil
}

// Apply swaps delivery settings at runtime.
func (c *Client) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	c.mu.Lock()
	c.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	c.mu.Unlock()
}

// Deliver posts one message. It retries up to RetryMax additional times on any
// non-success response, sleeping until the advertised rate-limit reset when
// the bucket is exhausted and a fixed backoff otherwise. Exhausting the budget
// returns ErrDeliveryFailed (wrapped).
func (c *Client) Deliver(ctx context.Context, msg notify.Message) error {
	c.mu.Lock()
	cfg := c.cfg
	lim := c.limiter
	c.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	maxAttempts := 1 + cfg.RetryMax
	var lastStatus string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, wait, limited, err := c.post(ctx, cfg.WebhookURL, body)
		if err == nil && status >= 200 && status < 300 {
			if attempt > 1 {
				c.log.Debug("webhook delivered after retry", logx.Int("attempts", attempt))
			}
			return nil
		}
		if err != nil {
			lastStatus = err.Error()
		} else {
			lastStatus = strconv.Itoa(status)
		}
		if attempt >= maxAttempts {
			break
		}

		delay := cfg.RetryBackoff
		if limited {
			if wait < 0 {
				wait = 0
			}
			delay = wait
			c.log.Debug("webhook rate limited", logx.Duration("reset_in", delay), logx.Int("attempt", attempt))
		} else {
			c.log.Debug("webhook retry scheduled", logx.String("last", lastStatus), logx.Int("attempt", attempt))
		}
		c.clk.Sleep(ctx, delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	c.log.Error("webhook delivery failed; dropping message",
		logx.Int("attempts", maxAttempts),
		logx.String("last", lastStatus))
	return fmt.Errorf("%w after %d attempts (last: %s)", ErrDeliveryFailed, maxAttempts, lastStatus)
}

// post performs one webhook POST. It returns the HTTP status, plus how long
// the rate-limit headers say to wait when the bucket is exhausted.
func (c *Client) post(ctx context.Context, url string, body []byte) (status int, wait time.Duration, limited bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, false, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	wait, limited = rateLimitWait(resp, c.clk.Now())
	return resp.StatusCode, wait, limited, nil
}

// rateLimitWait inspects Discord's rate-limit headers. Retry-After (seconds,
// possibly fractional) wins; otherwise an exhausted X-RateLimit-Remaining
// bucket waits until X-RateLimit-Reset (epoch seconds).
func rateLimitWait(resp *http.Response, now time.Time) (time.Duration, bool) {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.Header.Get("X-RateLimit-Remaining") == "0" {
		if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
			if epoch, err := strconv.ParseFloat(v, 64); err == nil {
				reset := time.Unix(0, int64(epoch*float64(time.Second)))
				return reset.Sub(now), true
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return 0, true
		}
	}
	return 0, false
}
