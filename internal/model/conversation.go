// Package model defines data structures for the chat store.
package model

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle status of a conversation. Membership of the
// reserved important/archived folders is derived from it.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusImportant Status = "important"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNormal, StatusImportant, StatusArchived:
		return true
	}
	return false
}

// Conversation represents a titled, ordered sequence of messages.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`

	// FolderID is the home folder the conversation returns to when its
	// status goes back to normal.
	FolderID  string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// IsImportant reports whether the conversation is flagged important.
func (c Conversation) IsImportant() bool { return c.Status == StatusImportant }

// IsArchived reports whether the conversation is archived.
func (c Conversation) IsArchived() bool { return c.Status == StatusArchived }

// EffectiveFolderID returns the folder the conversation is listed under.
func (c Conversation) EffectiveFolderID() string {
	switch c.Status {
	case StatusImportant:
		return ImportantFolderID
	case StatusArchived:
		return ArchivedFolderID
	}
	return c.FolderID
}

// Message returns the message with the given id.
func (c Conversation) Message(id string) (Message, bool) {
	for _, m := range c.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		for i, m := range c.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// MarshalJSON renders the conversation the way clients see it: with the
// effective folder and the derived flags.
func (c Conversation) MarshalJSON() ([]byte, error) {
	type alias Conversation
	msgs := c.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(struct {
		alias
		Messages     []Message `json:"messages"`
		FolderID     string    `json:"folderId"`
		HomeFolderID string    `json:"homeFolderId"`
		IsImportant  bool      `json:"isImportant"`
		IsArchived   bool      `json:"isArchived"`
	}{
		alias:        alias(c),
		Messages:     msgs,
		FolderID:     c.EffectiveFolderID(),
		HomeFolderID: c.FolderID,
		IsImportant:  c.IsImportant(),
		IsArchived:   c.IsArchived(),
	})
}

// ConversationPatch holds the patchable conversation fields. Nil means unchanged.
type ConversationPatch struct {
	Title    *string `json:"title,omitempty"`
	FolderID *string `json:"folderId,omitempty"`
	Status   *Status `json:"status,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations        []Conversation `json:"conversations"`
	Total                int            `json:"total"`
	ActiveConversationID string         `json:"activeConversationId,omitempty"`
}
