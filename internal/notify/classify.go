package notify

import (
	"context"
	"fmt"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/identity"
	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
	logx "github.com/ChipWolf/zendesk-discord-webhook-bot/pkg/logx"
)

// CommentSource provides the comment-thread lookup the classifier needs to
// expand Comment child events into their full text.
type CommentSource interface {
	Comments(ctx context.Context, ticketID int64) ([]zendesk.Comment, error)
}

// ActorResolver maps user IDs to displayable actors.
type ActorResolver interface {
	Resolve(ctx context.Context, id int64) (identity.Actor, error)
}

// Classifier turns one child event into zero or more notification fields.
// Unrecognized shapes log a warning and append nothing; they never fail the
// surrounding event.
type Classifier struct {
	comments CommentSource
	resolver ActorResolver
	log      logx.Logger
}

func NewClassifier(comments CommentSource, resolver ActorResolver, log logx.Logger) *Classifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Classifier{comments: comments, resolver: resolver, log: log}
}

// Classify appends the rendered field(s) for ev to fields. Returned errors are
// lookup failures (comment thread, assignee profile); the caller decides
// whether they are a benign vanished-record race.
func (c *Classifier) Classify(ctx context.Context, ticketID int64, ev zendesk.ChildEvent, fields []Field) ([]Field, error) {
	switch ev.Kind {
	case zendesk.ChildComment:
		return c.classifyComment(ctx, ticketID, ev, fields)

	case zendesk.ChildStatusChange:
		return AppendStatusField(fields, "Status Change", ev.Status.Previous, ev.Status.Current), nil

	case zendesk.ChildTagsChange:
		fields = AppendTagsField(fields, "Removed Tags", ev.Tags.Removed, "~~`")
		fields = AppendTagsField(fields, "Added Tags", ev.Tags.Added, "`")
		return fields, nil

	case zendesk.ChildAssigneeChange:
		assignee, err := c.resolver.Resolve(ctx, ev.Assignee.AssigneeID)
		if err != nil {
			return fields, fmt.Errorf("assignee of child event %d: %w", ev.ID, err)
		}
		return AppendAssigneeField(fields, "Assigned", assignee), nil

	case zendesk.ChildTypeChange:
		return AppendTypeField(fields, "Type Change", ev.Type.Type), nil

	default:
		c.log.Warn("unsupported child event",
			logx.String("event_type", ev.RawType),
			logx.Int64("child_id", ev.ID),
			logx.Int64("ticket_id", ticketID))
		return fields, nil
	}
}

// classifyComment looks up the full comment body by matching the child event's
// ID against the ticket's comment thread. A missing comment degrades to a
// warning instead of failing the event.
func (c *Classifier) classifyComment(ctx context.Context, ticketID int64, ev zendesk.ChildEvent, fields []Field) ([]Field, error) {
	comments, err := c.comments.Comments(ctx, ticketID)
	if err != nil {
		return fields, fmt.Errorf("comment %d: %w", ev.Comment.CommentID, err)
	}
	for _, comment := range comments {
		if comment.ID == ev.Comment.CommentID {
			return AppendTextField(fields, "Comment", comment.Body), nil
		}
	}
	c.log.Warn("comment not found in ticket thread",
		logx.Int64("comment_id", ev.Comment.CommentID),
		logx.Int64("ticket_id", ticketID))
	return fields, nil
}
