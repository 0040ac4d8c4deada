package notify

import (
	"strings"
	"unicode"

	"github.com/ChipWolf/zendesk-discord-webhook-bot/internal/identity"
)

// Field builders: one pure conversion per fact. Each appends to the caller's
// slice and never drops earlier fields.

// CollapseNewlines squeezes every run of consecutive newlines down to a single
// newline. Idempotent: collapsing already-collapsed text is a no-op.
func CollapseNewlines(s string) string {
	for strings.Contains(s, "\n\n") {
		s = strings.ReplaceAll(s, "\n\n", "\n")
	}
	return s
}

// AppendTextField appends a full-width free-text field with newline runs
// collapsed.
func AppendTextField(fields []Field, name, body string) []Field {
	return append(fields, Field{Name: name, Value: CollapseNewlines(body), Inline: false})
}

// AppendStatusField appends an inline "<Prev> to <Curr>" transition field.
// Without a previous value only the new status renders. Equal previous and
// current values still render; filtering them is not this layer's call.
func AppendStatusField(fields []Field, name, previous, current string) []Field {
	value := titleCase(current)
	if previous != "" {
		value = titleCase(previous) + " to " + value
	}
	return append(fields, Field{Name: name, Value: value, Inline: true})
}

// AppendTagsField appends one inline field listing tags, each wrapped in the
// given markup (e.g. "`" for added, "~~`" for struck-through removed). An
// empty tag set appends nothing.
func AppendTagsField(fields []Field, name string, tags []string, wrap string) []Field {
	if len(tags) == 0 {
		return fields
	}
	wrapRev := reverseString(wrap)
	lines := make([]string, 0, len(tags))
	for _, tag := range tags {
		lines = append(lines, wrap+tag+wrapRev)
	}
	return append(fields, Field{Name: name, Value: strings.Join(lines, "\n"), Inline: true})
}

// AppendAssigneeField appends an inline "Name (email)" field.
func AppendAssigneeField(fields []Field, name string, assignee identity.Actor) []Field {
	return append(fields, Field{Name: name, Value: assignee.Info(), Inline: true})
}

// AppendTypeField appends an inline field with the type name in inline code.
func AppendTypeField(fields []Field, name, typeName string) []Field {
	return append(fields, Field{Name: name, Value: "`" + typeName + "`", Inline: true})
}

// titleCase upper-cases the first letter of each word ("open" -> "Open").
// Only used on the fixed status/type vocabularies, so no locale handling.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
