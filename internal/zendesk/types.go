package zendesk

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a ticket or user has vanished between the event
// being recorded and us processing it. Callers treat this as a benign race.
var ErrNotFound = errors.New("zendesk: record not found")

// Status is a ticket lifecycle state. Zendesk only ever reports these six
// values; anything else is treated as a decoding error downstream, never
// silently defaulted.
type Status string

const (
	StatusNew     Status = "new"
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusHold    Status = "hold"
	StatusSolved  Status = "solved"
	StatusClosed  Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusOpen, StatusPending, StatusHold, StatusSolved, StatusClosed:
		return true
	}
	return false
}

// Ticket is an immutable snapshot of a ticket at the moment an event is
// processed. It is fetched fresh per event; nothing is cached across events.
type Ticket struct {
	ID          int64
	Subject     string
	Description string
	Status      Status
	RequesterID int64
	AssigneeID  int64 // 0 when unassigned
	CreatedAt   time.Time
}

// User is a Zendesk profile as returned by the users API.
type User struct {
	ID       int64
	Name     string
	Email    string
	PhotoURL string // empty when the profile has no photo
}

// Comment is one entry of a ticket's comment thread.
type Comment struct {
	ID   int64
	Body string
}

// TicketEvent is one top-level entry of the incremental ticket-event stream.
type TicketEvent struct {
	ID        int64
	TicketID  int64
	UpdaterID int64
	CreatedAt time.Time
	Children  []ChildEvent
}

// ChildKind discriminates the ChildEvent union.
type ChildKind int

const (
	ChildUnknown ChildKind = iota
	ChildCreate
	ChildComment
	ChildStatusChange
	ChildTagsChange
	ChildAssigneeChange
	ChildTypeChange
)

func (k ChildKind) String() string {
	switch k {
	case ChildCreate:
		return "create"
	case ChildComment:
		return "comment"
	case ChildStatusChange:
		return "status_change"
	case ChildTagsChange:
		return "tags_change"
	case ChildAssigneeChange:
		return "assignee_change"
	case ChildTypeChange:
		return "type_change"
	default:
		return "unknown"
	}
}

// ChildEvent is a tagged variant built once at the API boundary, so nothing
// downstream has to sniff which JSON keys were present. Exactly the payload
// matching Kind is non-nil.
type ChildEvent struct {
	ID      int64
	Kind    ChildKind
	RawType string // Zendesk's original event_type, kept for warnings

	Comment  *CommentRef
	Status   *StatusChange
	Tags     *TagsChange
	Assignee *AssigneeChange
	Type     *TypeChange
}

// CommentRef only carries the comment ID; the body has to be looked up via the
// ticket's comment thread.
type CommentRef struct {
	CommentID int64
}

type StatusChange struct {
	Previous string
	Current  string
}

type TagsChange struct {
	Added   []string
	Removed []string
}

type AssigneeChange struct {
	AssigneeID int64
}

type TypeChange struct {
	Type string
}
