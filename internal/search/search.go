// Package search evaluates message queries and filters over a flattened
// message corpus. It keeps no index: every call is a linear scan.
package search

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/capitalize-ai/chatstore/internal/model"
)

// CodeFence marks a fenced code block inside message text.
const CodeFence = "```"

// Filters selects which message categories and time range are kept.
type Filters struct {
	Text   bool `json:"text"`
	Images bool `json:"images"`
	Files  bool `json:"files"`
	Voice  bool `json:"voice"`
	Code   bool `json:"code"`

	// Inclusive bounds on the message timestamp. Nil is unbounded.
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// DefaultFilters enables every category with no date bounds.
func DefaultFilters() Filters {
	return Filters{Text: true, Images: true, Files: true, Voice: true, Code: true}
}

// Run returns the messages matching query and filters, in input order.
func Run(messages []model.Message, query string, filters Filters) []model.Message {
	folder := cases.Fold()
	needle := folder.String(query)

	out := make([]model.Message, 0)
	for _, m := range messages {
		if matches(folder, m, needle, filters) {
			out = append(out, m)
		}
	}
	return out
}

// Match reports whether a single message passes query and filters.
func Match(m model.Message, query string, filters Filters) bool {
	folder := cases.Fold()
	return matches(folder, m, folder.String(query), filters)
}

func matches(folder cases.Caser, m model.Message, needle string, f Filters) bool {
	if needle != "" && !strings.Contains(folder.String(m.Text), needle) {
		return false
	}

	// A message may fall into several categories; each one must be enabled.
	// Fenced code in a text message makes it a code message rather than text.
	code := strings.Contains(m.Text, CodeFence)
	if code && !f.Code {
		return false
	}
	switch m.Type {
	case model.MessageTypeImage:
		if !f.Images {
			return false
		}
	case model.MessageTypeFile:
		if !f.Files {
			return false
		}
	case model.MessageTypeVoice:
		if !f.Voice {
			return false
		}
	}
	if m.Type.IsText() && !code && !f.Text {
		return false
	}

	if f.From != nil && m.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Timestamp.After(*f.To) {
		return false
	}
	return true
}
