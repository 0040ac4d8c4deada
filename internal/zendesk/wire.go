package zendesk

import (
	"strings"
	"time"
)

// Wire shapes for the subset of the Zendesk REST API this bot reads.
// Pointer fields double as key-presence markers when classifying child events.

type ticketWire struct {
	ID          int64     `json:"id"`
	RawSubject  string    `json:"raw_subject"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	RequesterID int64     `json:"requester_id"`
	AssigneeID  *int64    `json:"assignee_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (w ticketWire) domain() Ticket {
	subject := w.RawSubject
	if subject == "" {
		subject = w.Subject
	}
	t := Ticket{
		ID:          w.ID,
		Subject:     subject,
		Description: w.Description,
		Status:      Status(strings.ToLower(w.Status)),
		RequesterID: w.RequesterID,
		CreatedAt:   w.CreatedAt,
	}
	if w.AssigneeID != nil {
		t.AssigneeID = *w.AssigneeID
	}
	return t
}

type userWire struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo *struct {
		ContentURL string `json:"content_url"`
	} `json:"photo"`
}

func (w userWire) domain() User {
	u := User{ID: w.ID, Name: w.Name, Email: w.Email}
	if w.Photo != nil {
		u.PhotoURL = w.Photo.ContentURL
	}
	return u
}

type commentWire struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

type ticketEventWire struct {
	ID          int64            `json:"id"`
	TicketID    int64            `json:"ticket_id"`
	UpdaterID   int64            `json:"updater_id"`
	CreatedAt   time.Time        `json:"created_at"`
	ChildEvents []childEventWire `json:"child_events"`
}

func (w ticketEventWire) domain() TicketEvent {
	ev := TicketEvent{
		ID:        w.ID,
		TicketID:  w.TicketID,
		UpdaterID: w.UpdaterID,
		CreatedAt: w.CreatedAt,
		Children:  make([]ChildEvent, 0, len(w.ChildEvents)),
	}
	for _, c := range w.ChildEvents {
		ev.Children = append(ev.Children, c.domain())
	}
	return ev
}

type childEventWire struct {
	ID        int64  `json:"id"`
	EventType string `json:"event_type"`

	// Change payload candidates. Presence of the key decides the variant.
	Status        *string  `json:"status"`
	PreviousValue *string  `json:"previous_value"`
	AddedTags     []string `json:"added_tags"`
	RemovedTags   []string `json:"removed_tags"`
	AssigneeID    *int64   `json:"assignee_id"`
	Type          *string  `json:"type"`
}

// domain classifies the raw record into the ChildEvent union. For Change
// records the checks run in fixed priority order (status, tags, assignee,
// type); Zendesk emits exactly one sub-shape per Change, so the first match
// wins.
func (w childEventWire) domain() ChildEvent {
	ev := ChildEvent{ID: w.ID, RawType: w.EventType}

	switch w.EventType {
	case "Create":
		ev.Kind = ChildCreate
	case "Comment":
		ev.Kind = ChildComment
		ev.Comment = &CommentRef{CommentID: w.ID}
	case "Change":
		switch {
		case w.Status != nil:
			prev := ""
			if w.PreviousValue != nil {
				prev = *w.PreviousValue
			}
			ev.Kind = ChildStatusChange
			ev.Status = &StatusChange{Previous: prev, Current: *w.Status}
		case w.AddedTags != nil || w.RemovedTags != nil:
			ev.Kind = ChildTagsChange
			ev.Tags = &TagsChange{Added: w.AddedTags, Removed: w.RemovedTags}
		case w.AssigneeID != nil:
			ev.Kind = ChildAssigneeChange
			ev.Assignee = &AssigneeChange{AssigneeID: *w.AssigneeID}
		case w.Type != nil:
			ev.Kind = ChildTypeChange
			ev.Type = &TypeChange{Type: *w.Type}
		default:
			ev.Kind = ChildUnknown
		}
	default:
		ev.Kind = ChildUnknown
	}
	return ev
}
