// Package identity resolves Zendesk user IDs into displayable actors
// (name, email, avatar) for notification author/footer blocks.
package identity

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// DefaultIcon is used when a user has no profile photo and no email to derive
// a Gravatar from. It is also the system actor's avatar.
const DefaultIcon = "https://d1eipm3vz40hy0.cloudfront.net/images/logos/favicons/favicon.ico"

const gravatarBase = "https://www.gravatar.com/avatar/"

// Actor is a resolved identity.
type Actor struct {
	Name   string
	Email  string
	Avatar string
}

// Info renders the "Name (email)" form used in author and footer blocks.
func (a Actor) Info() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.Email)
}

// SystemActor is the fixed identity used for IDs <= 0, which Zendesk uses for
// automation and trigger actions. No lookup is ever performed for it.
func SystemActor() Actor {
	return Actor{
		Name:   "Zendesk System",
		Email:  "support@zendesk.com",
		Avatar: DefaultIcon,
	}
}

// UserLookup is the slice of the Zendesk API the resolver needs.
type UserLookup interface {
	User(ctx context.Context, id int64) (zendesk.User, error)
}

type Resolver struct {
	users UserLookup
	log   logx.Logger
}

func NewResolver(users UserLookup, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{users: users, log: log}
}

// Resolve maps a user ID to an Actor. IDs <= 0 short-circuit to the system
// actor. Lookup failures propagate so the caller can decide whether the user
// vanishing is a benign race.
func (r *Resolver) Resolve(ctx context.Context, id int64) (Actor, error) {
	if id <= 0 {
		return SystemActor(), nil
	}
	u, err := r.users.User(ctx, id)
	if err != nil {
		return Actor{}, fmt.Errorf("resolve user %d: %w", id, err)
	}
	avatar := u.PhotoURL
	if avatar == "" {
		avatar = GravatarURL(u.Email)
		if u.Email == "" {
			r.log.Warn("user has no email; using default avatar", logx.Int64("user_id", id))
		}
	}
	return Actor{Name: u.Name, Email: u.Email, Avatar: avatar}, nil
}

// GravatarURL derives a deterministic avatar URL from an email address.
// Gravatar serves its own default image for unknown hashes, so this never
// needs a liveness check. An empty address falls back to DefaultIcon.
func GravatarURL(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return DefaultIcon
	}
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return gravatarBase + hex.EncodeToString(sum[:])
}
