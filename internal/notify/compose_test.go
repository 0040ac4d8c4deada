package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/identity"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

type fakeTickets struct {
	tickets map[int64]zendesk.Ticket
}

func (f *fakeTickets) Ticket(ctx context.Context, id int64) (zendesk.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return zendesk.Ticket{}, fmt.Errorf("ticket %d: %w", id, zendesk.ErrNotFound)
	}
	return t, nil
}

func (f *fakeTickets) TicketURL(id int64) string {
	return fmt.Sprintf("https://support.zendesk.com/agent/#/tickets/%d", id)
}

func newTestComposer(tickets *fakeTickets, resolver *fakeResolver, comments *fakeComments) *Composer {
	classifier := NewClassifier(comments, resolver, logx.Nop())
	return NewComposer(tickets, resolver, classifier, logx.Nop())
}

func ticket42() zendesk.Ticket {
	return zendesk.Ticket{
		ID:          42,
		Subject:     "Login broken",
		Description: "Help\n\nplease",
		Status:      zendesk.StatusNew,
		RequesterID: 10,
		CreatedAt:   time.Unix(1500000000, 0).UTC(),
	}
}

func requesterActor() identity.Actor {
	return identity.Actor{Name: "Richard Hendricks", Email: "richard.hendricks@piedpiper.com", Avatar: "https://example.com/a.png"}
}

// Scenario: a new ticket event pages the channel with a single
// description-bearing payload.
func TestComposeNewTicket(t *testing.T) {
	t.Parallel()
	tickets := &fakeTickets{tickets: map[int64]zendesk.Ticket{42: ticket42()}}
	resolver := &fakeResolver{actors: map[int64]identity.Actor{10: requesterActor()}}
	c := newTestComposer(tickets, resolver, &fakeComments{})

	ev := zendesk.TicketEvent{
		ID:        1,
		TicketID:  42,
		UpdaterID: 10,
		CreatedAt: time.Unix(1500000100, 0).UTC(),
		Children:  []zendesk.ChildEvent{{Kind: zendesk.ChildCreate, RawType: "Create"}},
	}
	msg, err := c.Compose(context.Background(), ev, false)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}

	if msg.Content != NewTicketAlert {
		t.Fatalf("content = %q, want %q", msg.Content, NewTicketAlert)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(msg.Attachments))
	}
	at := msg.Attachments[0]
	if at.Title != "[#42] Login broken" {
		t.Fatalf("title = %q", at.Title)
	}
	if at.TitleLink != "https://support.zendesk.com/agent/#/tickets/42" {
		t.Fatalf("title link = %q", at.TitleLink)
	}
	if at.AuthorName != "Richard Hendricks (richard.hendricks@piedpiper.com)" {
		t.Fatalf("author = %q", at.AuthorName)
	}
	if at.Color != "#F5CA00" {
		t.Fatalf("color = %q", at.Color)
	}
	if at.Footer != "New" {
		t.Fatalf("footer = %q", at.Footer)
	}
	if at.TS != 1500000000 {
		t.Fatalf("ts = %d", at.TS)
	}
	if len(at.Fields) != 1 || at.Fields[0].Name != "Description" || at.Fields[0].Value != "Help\nplease" {
		t.Fatalf("unexpected fields: %+v", at.Fields)
	}
}

func TestComposeNewTicketColdStartSuppressesAlert(t *testing.T) {
	t.Parallel()
	tickets := &fakeTickets{tickets: map[int64]zendesk.Ticket{42: ticket42()}}
	resolver := &fakeResolver{actors: map[int64]identity.Actor{10: requesterActor()}}
	c := newTestComposer(tickets, resolver, &fakeComments{})

	ev := zendesk.TicketEvent{
		TicketID: 42,
		Children: []zendesk.ChildEvent{{Kind: zendesk.ChildCreate}},
	}
	msg, err := c.Compose(context.Background(), ev, true)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if msg.Content != "" {
		t.Fatalf("cold-start compose must not page, content = %q", msg.Content)
	}
}

// A Create child short-circuits every other child in the same event.
func TestComposeCreateShortCircuits(t *testing.T) {
	t.Parallel()
	tickets := &fakeTickets{tickets: map[int64]zendesk.Ticket{42: ticket42()}}
	resolver := &fakeResolver{actors: map[int64]identity.Actor{10: requesterActor()}}
	c := newTestComposer(tickets, resolver, &fakeComments{})

	ev := zendesk.TicketEvent{
		TicketID: 42,
		Children: []zendesk.ChildEvent{
			{Kind: zendesk.ChildStatusChange, Status: &zendesk.StatusChange{Previous: "new", Current: "open"}},
			{Kind: zendesk.ChildCreate},
			{Kind: zendesk.ChildTagsChange, Tags: &zendesk.TagsChange{Added: []string{"x"}}},
		},
	}
	msg, err := c.Compose(context.Background(), ev, false)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(msg.Attachments))
	}
	fields := msg.Attachments[0].Fields
	if len(fields) != 1 || fields[0].Name != "Description" {
		t.Fatalf("create path must only carry the description, got %+v", fields)
	}
}

// Scenario: a status change produces a summary + detail attachment pair with
// the status-keyed color.
func TestComposeStatusChange(t *testing.T) {
	t.Parallel()
	tk := ticket42()
	tk.Status = zendesk.StatusPending
	tickets := &fakeTickets{tickets: map[int64]zendesk.Ticket{42: tk}}
	resolver := &fakeResolver{actors: map[int64]identity.Actor{
		10: requesterActor(),
		11: {Name: "Jared Dunn", Email: "jared@piedpiper.com"},
	}}
	c := newTestComposer(tickets, resolver, &fakeComments{})

	ev := zendesk.TicketEvent{
		TicketID:  42,
		UpdaterID: 11,
		CreatedAt: time.Unix(1500000200, 0).UTC(),
		Children: []zendesk.ChildEvent{
			{Kind: zendesk.ChildStatusChange, Status: &zendesk.StatusChange{Previous: "open", Current: "pending"}},
		},
	}
	msg, err := c.Compose(context.Background(), ev, false)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if msg.Content != "" {
		t.Fatalf("update must not page, content = %q", msg.Content)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("got %d attachments, want 2", len(msg.Attachments))
	}

	summary, detail := msg.Attachments[0], msg.Attachments[1]
	if summary.Color != "#59BBE0" {
		t.Fatalf("summary color = %q, want pending's %q", summary.Color, "#59BBE0")
	}
	if detail.Footer != "Jared Dunn (jared@piedpiper.com)" {
		t.Fatalf("detail footer = %q", detail.Footer)
	}
	if detail.TS != 1500000200 {
		t.Fatalf("detail ts = %d", detail.TS)
	}
	if len(detail.Fields) != 1 || detail.Fields[0].Name != "Status Change" || detail.Fields[0].Value != "Open to Pending" {
		t.Fatalf("unexpected detail fields: %+v", detail.Fields)
	}
}

// Scenario: tag addition with no removals renders only the "Added Tags" field.
func TestComposeTagsAddedOnly(t *testing.T) {
	t.Parallel()
	tk := ticket42()
	tk.Status = zendesk.StatusOpen
	tickets := &fakeTickets{tickets: map[int64]zendesk.Ticket{42: tk}}
	resolver := &fakeResolver{actors: map[int64]identity.Actor{10: requesterActor(), 11: {Name: "J", Email: "j@x.com"}}}
	c := newTestComposer(tickets, resolver, &fakeComments{})

	ev := zendesk.TicketEvent{
		TicketID:  42,
		UpdaterID: 11,
		Children: []zendesk.ChildEvent{
			{Kind: zendesk.ChildTagsChange, Tags: &zendesk.TagsChange{Added: []string{"urgent"}}},
		},
	}
	msg, err := c.Compose(context.Background(), ev, false)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	fields := msg.Attachments[1].Fields
	if len(fields) != 1 || fields[0].Name != "Added Tags" || fields[0].Value != "`urgent`" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestComposeNegativeUpdaterSkipsLookup(t *testing.T) {
	t.Parallel()
	tickets := &fakeTickets{tickets: map[int64]zendesk.Ticket{42: ticket42()}}
	resolver := &fakeResolver{actors: map[int64]identity.Actor{10: requesterActor()}}
	c := newTestComposer(tickets, resolver, &fakeComments{})

	ev := zendesk.TicketEvent{
		TicketID:  42,
		UpdaterID: -1,
		Children: []zendesk.ChildEvent{
			{Kind: zendesk.ChildTypeChange, Type: &zendesk.TypeChange{Type: "question"}},
		},
	}
	before := resolver.calls
	msg, err := c.Compose(context.Background(), ev, false)
	if err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	// Only the requester lookup may have happened.
	if resolver.calls != before+1 {
		t.Fatalf("resolver calls = %d, want %d (system updater must not look up)", resolver.calls, before+1)
	}
	if got := msg.Attachments[1].Footer; got != identity.SystemActor().Info() {
		t.Fatalf("detail footer = %q, want system actor", got)
	}
}

func TestComposeVanishedTicket(t *testing.T) {
	t.Parallel()
	c := newTestComposer(&fakeTickets{}, &fakeResolver{}, &fakeComments{})

	_, err := c.Compose(context.Background(), zendesk.TicketEvent{TicketID: 99}, false)
	if !errors.Is(err, zendesk.ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestComposeUnknownStatusFails(t *testing.T) {
	t.Parallel()
	tk := ticket42()
	tk.Status = zendesk.Status("archived")
	tickets := &fakeTickets{tickets: map[int64]zendesk.Ticket{42: tk}}
	resolver := &fakeResolver{actors: map[int64]identity.Actor{10: requesterActor()}}
	c := newTestComposer(tickets, resolver, &fakeComments{})

	_, err := c.Compose(context.Background(), zendesk.TicketEvent{TicketID: 42}, false)
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}
