// Package notify translates Zendesk ticket events into Discord webhook
// payloads: field builders for each fact kind, a classifier dispatching raw
// child events to the right builder, and a composer assembling the final
// message.
package notify

import (
	"fmt"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/zendesk"
)

// Field is one renderable block inside an attachment. Inline fields flow in
// columns; full-width fields take a row of their own.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Attachment mirrors the webhook wire shape (Slack-compatible attachment
// object, which Discord webhooks accept).
type Attachment struct {
	AuthorName string  `json:"author_name,omitempty"`
	AuthorIcon string  `json:"author_icon,omitempty"`
	Color      string  `json:"color,omitempty"`
	Title      string  `json:"title,omitempty"`
	TitleLink  string  `json:"title_link,omitempty"`
	Footer     string  `json:"footer,omitempty"`
	FooterIcon string  `json:"footer_icon,omitempty"`
	TS         int64   `json:"ts,omitempty"` // epoch seconds
	Fields     []Field `json:"fields,omitempty"`
}

// Message is one webhook POST body: an optional plain-text alert plus the
// ordered attachments.
type Message struct {
	Content     string       `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

var statusColors = map[zendesk.Status]string{
	zendesk.StatusNew:     "#F5CA00",
	zendesk.StatusOpen:    "#E82A2A",
	zendesk.StatusPending: "#59BBE0",
	zendesk.StatusHold:    "#000000",
	zendesk.StatusSolved:  "#828282",
	zendesk.StatusClosed:  "#DDDDDD",
}

// StatusColor maps a ticket status to its attachment color. Unknown statuses
// are an error, never a default color.
func StatusColor(s zendesk.Status) (string, error) {
	c, ok := statusColors[s]
	if !ok {
		return "", fmt.Errorf("unknown ticket status %q", string(s))
	}
	return c, nil
}
