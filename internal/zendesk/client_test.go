package zendesk

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{Email: "agent@piedpiper.com", Token: "sekrit", Subdomain: "piedpiper"}, logx.Nop())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	c.base = srv.URL
	return c, srv
}

func TestClientBasicAuth(t *testing.T) {
	t.Parallel()
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"ticket": {"id": 1}}`)
	}))

	if _, err := c.Ticket(context.Background(), 1); err != nil {
		t.Fatalf("Ticket error: %v", err)
	}
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("agent@piedpiper.com/token:sekrit"))
	if gotAuth != want {
		t.Fatalf("auth = %q, want email/token basic auth", gotAuth)
	}
}

func TestClientTicketNotFound(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := c.Ticket(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_, err = c.User(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClientTicketDecodes(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tickets/42.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"ticket": {
			"id": 42,
			"raw_subject": "Login broken",
			"description": "Help",
			"status": "New",
			"requester_id": 10,
			"created_at": "2017-07-14T02:40:00Z"
		}}`)
	}))

	tk, err := c.Ticket(context.Background(), 42)
	if err != nil {
		t.Fatalf("Ticket error: %v", err)
	}
	if tk.ID != 42 || tk.Subject != "Login broken" || tk.Status != StatusNew || tk.RequesterID != 10 {
		t.Fatalf("ticket = %+v", tk)
	}
	if !tk.CreatedAt.Equal(time.Date(2017, 7, 14, 2, 40, 0, 0, time.UTC)) {
		t.Fatalf("created_at = %v", tk.CreatedAt)
	}
}

func TestClientCommentsFollowPagination(t *testing.T) {
	t.Parallel()
	var srv *httptest.Server
	c, s := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"comments": [{"id": 3, "body": "third"}], "next_page": null}`)
			return
		}
		fmt.Fprintf(w, `{"comments": [{"id": 1, "body": "first"}, {"id": 2, "body": "second"}], "next_page": %q}`,
			srv.URL+"/tickets/42/comments.json?page=2")
	}))
	srv = s

	comments, err := c.Comments(context.Background(), 42)
	if err != nil {
		t.Fatalf("Comments error: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("got %d comments, want 3 across pages", len(comments))
	}
	if comments[2].ID != 3 || comments[2].Body != "third" {
		t.Fatalf("comments = %+v", comments)
	}
}

func TestClientEventsSince(t *testing.T) {
	t.Parallel()
	since := time.Unix(1500000000, 0)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("start_time"); got != "1500000000" {
			t.Errorf("start_time = %q", got)
		}
		fmt.Fprint(w, `{
			"ticket_events": [{
				"id": 100,
				"ticket_id": 42,
				"updater_id": 20,
				"created_at": "2017-07-14T02:40:15Z",
				"child_events": [
					{"id": 101, "event_type": "Change", "status": "pending", "previous_value": "open"},
					{"id": 102, "event_type": "Comment"}
				]
			}],
			"next_page": "ignored",
			"count": 1,
			"end_of_stream": true
		}`)
	}))

	events, err := c.EventsSince(context.Background(), since)
	if err != nil {
		t.Fatalf("EventsSince error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	ev := events[0]
	if ev.ID != 100 || ev.TicketID != 42 || ev.UpdaterID != 20 {
		t.Fatalf("event = %+v", ev)
	}
	if len(ev.Children) != 2 || ev.Children[0].Kind != ChildStatusChange || ev.Children[1].Kind != ChildComment {
		t.Fatalf("children = %+v", ev.Children)
	}
}

func TestClientEventsSinceStopsOnShortPage(t *testing.T) {
	t.Parallel()
	var calls int
	var srv *httptest.Server
	c, s := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// A short page with end_of_stream=false must still end the walk.
		fmt.Fprintf(w, `{"ticket_events": [], "next_page": %q, "count": 0, "end_of_stream": false}`,
			srv.URL+"/incremental/ticket_events.json?start_time=1500000999")
	}))
	srv = s

	if _, err := c.EventsSince(context.Background(), time.Unix(1500000000, 0)); err != nil {
		t.Fatalf("EventsSince error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, the client looped on the tail page", calls)
	}
}

func TestTicketURL(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.NotFoundHandler())
	want := "https://piedpiper.zendesk.com/agent/#/tickets/42"
	if got := c.TicketURL(42); got != want {
		t.Fatalf("TicketURL = %q, want %q", got, want)
	}
}

func TestClientServerError(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	if _, err := c.EventsSince(context.Background(), time.Unix(0, 0)); err == nil {
		t.Fatal("expected error for 503")
	}
	if _, err := c.Ticket(context.Background(), 1); errors.Is(err, ErrNotFound) {
		t.Fatal("503 must not map to ErrNotFound")
	}
}
