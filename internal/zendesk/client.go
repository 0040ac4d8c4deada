package zendesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// Config carries the tenant credentials. Zendesk API tokens authenticate as
// basic auth with the "email/token" username convention.
type Config struct {
	Email     string
	Token     string
	Subdomain string

	// Timeout bounds each API call. 0 means a 30s default.
	Timeout time.Duration
}

// Client is a thin read-only client for the handful of Zendesk endpoints the
// bot consumes. All calls are synchronous and fetch fresh data; the bot never
// caches tickets or users across events.
type Client struct {
	cfg  Config
	base string
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Subdomain) == "" {
		return nil, errors.New("zendesk subdomain is empty")
	}
	if strings.TrimSpace(cfg.Email) == "" || strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("zendesk credentials are empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		base: "https://" + cfg.Subdomain + ".zendesk.com/api/v2",
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

// TicketURL returns the agent-facing web link for a ticket.
func (c *Client) TicketURL(id int64) string {
	return fmt.Sprintf("https://%s.zendesk.com/agent/#/tickets/%d", c.cfg.Subdomain, id)
}

// Ticket fetches a snapshot of one ticket. Returns ErrNotFound when the ticket
// was deleted between event occurrence and processing.
func (c *Client) Ticket(ctx context.Context, id int64) (Ticket, error) {
	var out struct {
		Ticket ticketWire `json:"ticket"`
	}
	if err := c.get(ctx, c.base+"/tickets/"+strconv.FormatInt(id, 10)+".json", &out); err != nil {
		return Ticket{}, fmt.Errorf("ticket %d: %w", id, err)
	}
	return out.Ticket.domain(), nil
}

// User fetches one user profile. Returns ErrNotFound for vanished users.
func (c *Client) User(ctx context.Context, id int64) (User, error) {
	var out struct {
		User userWire `json:"user"`
	}
	if err := c.get(ctx, c.base+"/users/"+strconv.FormatInt(id, 10)+".json", &out); err != nil {
		return User{}, fmt.Errorf("user %d: %w", id, err)
	}
	return out.User.domain(), nil
}

// Comments returns the full ordered comment thread of a ticket.
func (c *Client) Comments(ctx context.Context, ticketID int64) ([]Comment, error) {
	next := c.base + "/tickets/" + strconv.FormatInt(ticketID, 10) + "/comments.json"
	var all []Comment
	for next != "" {
		var out struct {
			Comments []commentWire `json:"comments"`
			NextPage string        `json:"next_page"`
		}
		if err := c.get(ctx, next, &out); err != nil {
			return nil, fmt.Errorf("comments of ticket %d: %w", ticketID, err)
		}
		for _, w := range out.Comments {
			all = append(all, Comment{ID: w.ID, Body: w.Body})
		}
		next = out.NextPage
	}
	return all, nil
}

// EventsSince reads the incremental ticket-event stream starting at the given
// instant, following pagination until the stream is drained. Events come back
// in occurrence order.
func (c *Client) EventsSince(ctx context.Context, since time.Time) ([]TicketEvent, error) {
	q := url.Values{}
	q.Set("start_time", strconv.FormatInt(since.Unix(), 10))
	next := c.base + "/incremental/ticket_events.json?" + q.Encode()

	var all []TicketEvent
	for next != "" {
		var out struct {
			TicketEvents []ticketEventWire `json:"ticket_events"`
			NextPage     string            `json:"next_page"`
			Count        int               `json:"count"`
			EndOfStream  bool              `json:"end_of_stream"`
		}
		if err := c.get(ctx, next, &out); err != nil {
			return nil, fmt.Errorf("ticket events since %s: %w", since.Format(time.RFC3339), err)
		}
		for _, w := range out.TicketEvents {
			all = append(all, w.domain())
		}
		// Incremental endpoints always echo a next_page; a short page means the
		// stream is drained and following it again would spin on "now".
		if out.EndOfStream || out.Count < 1000 {
			break
		}
		next = out.NextPage
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Email+"/token", c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
