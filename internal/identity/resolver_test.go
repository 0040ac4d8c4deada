package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

type fakeUsers struct {
	users map[int64]zendesk.User
	calls int
}

func (f *fakeUsers) User(ctx context.Context, id int64) (zendesk.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return zendesk.User{}, zendesk.ErrNotFound
	}
	return u, nil
}

func TestResolveSystemActorNoLookup(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	r := NewResolver(users, logx.Nop())

	for _, id := range []int64{0, -1, -42} {
		a, err := r.Resolve(context.Background(), id)
		if err != nil {
			t.Fatalf("Resolve(%d) error: %v", id, err)
		}
		if a != SystemActor() {
			t.Fatalf("Resolve(%d) = %+v, want system actor", id, a)
		}
	}
	if users.calls != 0 {
		t.Fatalf("lookup calls = %d, want 0 for non-positive IDs", users.calls)
	}
}

func TestResolveProfilePhoto(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{users: map[int64]zendesk.User{
		7: {ID: 7, Name: "Monica Hall", Email: "monica@raviga.com", PhotoURL: "https://cdn.example.com/monica.png"},
	}}
	r := NewResolver(users, logx.Nop())

	a, err := r.Resolve(context.Background(), 7)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if a.Avatar != "https://cdn.example.com/monica.png" {
		t.Fatalf("avatar = %q, want profile photo", a.Avatar)
	}
	if users.calls != 1 {
		t.Fatalf("lookup calls = %d, want 1", users.calls)
	}
}

func TestResolveGravatarFallback(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{users: map[int64]zendesk.User{
		7: {ID: 7, Name: "Monica Hall", Email: "Monica@Raviga.com"},
	}}
	r := NewResolver(users, logx.Nop())

	a, err := r.Resolve(context.Background(), 7)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	// md5("monica@raviga.com"); hashing must lowercase the address first.
	want := "https://www.gravatar.com/avatar/526c2e44ff4d035ef1235064cc4169fa"
	if a.Avatar != want {
		t.Fatalf("avatar = %q, want %q", a.Avatar, want)
	}
}

func TestResolveNoEmailDefaultIcon(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{users: map[int64]zendesk.User{
		7: {ID: 7, Name: "Anonymous"},
	}}
	r := NewResolver(users, logx.Nop())

	a, err := r.Resolve(context.Background(), 7)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if a.Avatar != DefaultIcon {
		t.Fatalf("avatar = %q, want default icon", a.Avatar)
	}
}

func TestResolveLookupFailurePropagates(t *testing.T) {
	t.Parallel()
	r := NewResolver(&fakeUsers{}, logx.Nop())

	_, err := r.Resolve(context.Background(), 123)
	if !errors.Is(err, zendesk.ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestGravatarURLDeterministic(t *testing.T) {
	t.Parallel()
	a := GravatarURL("Monica@Raviga.com ")
	b := GravatarURL("monica@raviga.com")
	if a != b {
		t.Fatalf("gravatar not normalized: %q vs %q", a, b)
	}
	if GravatarURL("") != DefaultIcon {
		t.Fatal("empty address must fall back to the default icon")
	}
}
