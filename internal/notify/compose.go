package notify

import (
	"context"
	"fmt"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/identity"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// NewTicketAlert is prepended as plain-text content for fresh tickets so the
// channel gets paged. Suppressed during the cold-start backfill pass.
const NewTicketAlert = "@here, New Ticket!"

// TicketSource is the slice of the Zendesk API the composer needs.
type TicketSource interface {
	Ticket(ctx context.Context, id int64) (zendesk.Ticket, error)
	TicketURL(id int64) string
}

// Composer assembles the webhook message for one ticket event.
//
// Flow: fetch the ticket snapshot, resolve the requester, build the base
// attachment, then either take the create path (one attachment, description
// field, optional @here alert) or the update path (base attachment plus a
// detail attachment carrying the classified child-event fields).
type Composer struct {
	tickets    TicketSource
	resolver   ActorResolver
	classifier *Classifier
	log        logx.Logger
}

func NewComposer(tickets TicketSource, resolver ActorResolver, classifier *Classifier, log logx.Logger) *Composer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Composer{tickets: tickets, resolver: resolver, classifier: classifier, log: log}
}

// Compose translates one ticket event into the webhook message to deliver.
//
// firstRun marks the whole first poll cycle after a cold start; it only
// suppresses the new-ticket alert so a historical backfill doesn't
// retroactively page the channel.
//
// Errors wrap zendesk.ErrNotFound when the ticket or a referenced user
// vanished between event occurrence and processing; the caller skips those.
func (c *Composer) Compose(ctx context.Context, ev zendesk.TicketEvent, firstRun bool) (Message, error) {
	ticket, err := c.tickets.Ticket(ctx, ev.TicketID)
	if err != nil {
		return Message{}, fmt.Errorf("compose event %d: %w", ev.ID, err)
	}

	requester, err := c.resolver.Resolve(ctx, ticket.RequesterID)
	if err != nil {
		return Message{}, fmt.Errorf("compose event %d: %w", ev.ID, err)
	}

	base, err := c.baseAttachment(ticket, requester)
	if err != nil {
		return Message{}, fmt.Errorf("compose event %d: %w", ev.ID, err)
	}

	// A Create child short-circuits everything else: a new ticket's own event
	// is not expected to carry independent change facts worth a second
	// attachment.
	for _, child := range ev.Children {
		if child.Kind == zendesk.ChildCreate {
			base.Fields = AppendTextField(base.Fields, "Description", ticket.Description)
			msg := Message{Attachments: []Attachment{base}}
			if !firstRun {
				msg.Content = NewTicketAlert
			}
			return msg, nil
		}
	}

	detail, err := c.updateAttachment(ctx, ticket, ev)
	if err != nil {
		return Message{}, fmt.Errorf("compose event %d: %w", ev.ID, err)
	}
	return Message{Attachments: []Attachment{base, detail}}, nil
}

// baseAttachment is the ticket summary block: requester identity, status
// color, linked "[#id] subject" title, title-cased status footer, creation
// timestamp.
func (c *Composer) baseAttachment(ticket zendesk.Ticket, requester identity.Actor) (Attachment, error) {
	color, err := StatusColor(ticket.Status)
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{
		AuthorName: requester.Info(),
		AuthorIcon: requester.Avatar,
		Color:      color,
		Title:      fmt.Sprintf("[#%d] %s", ticket.ID, ticket.Subject),
		TitleLink:  c.tickets.TicketURL(ticket.ID),
		Footer:     titleCase(string(ticket.Status)),
		TS:         ticket.CreatedAt.Unix(),
	}, nil
}

// updateAttachment is the detail block: updater identity in the footer, event
// timestamp, and one field per classified child event, in child-event order.
func (c *Composer) updateAttachment(ctx context.Context, ticket zendesk.Ticket, ev zendesk.TicketEvent) (Attachment, error) {
	// Negative updater IDs are Zendesk system actions; they must not hit the
	// users API at all. (IDs of exactly 0 reach the resolver, which maps them
	// to the same system actor without a lookup.)
	var updater identity.Actor
	if ev.UpdaterID < 0 {
		updater = identity.SystemActor()
	} else {
		var err error
		updater, err = c.resolver.Resolve(ctx, ev.UpdaterID)
		if err != nil {
			return Attachment{}, err
		}
	}

	color, err := StatusColor(ticket.Status)
	if err != nil {
		return Attachment{}, err
	}

	at := Attachment{
		Color:      color,
		Footer:     updater.Info(),
		FooterIcon: updater.Avatar,
		TS:         ev.CreatedAt.Unix(),
	}
	for _, child := range ev.Children {
		at.Fields, err = c.classifier.Classify(ctx, ticket.ID, child, at.Fields)
		if err != nil {
			return Attachment{}, err
		}
	}
	return at, nil
}
