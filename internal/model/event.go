package model

import (
	"time"
)

// EventType represents the kind of change applied to the store.
type EventType string

const (
	EventConversationCreated EventType = "conversation_created"
	EventConversationDeleted EventType = "conversation_deleted"
	EventConversationUpdated EventType = "conversation_updated"
	EventActiveChanged       EventType = "active_changed"
	EventMessageAdded        EventType = "message_added"
	EventMessageDeleted      EventType = "message_deleted"
	EventMessageUpdated      EventType = "message_updated"
	EventFolderCreated       EventType = "folder_created"
	EventFolderDeleted       EventType = "folder_deleted"
	EventFolderUpdated       EventType = "folder_updated"
	EventStoreLoaded         EventType = "store_loaded"

	// EventReplyDropped is emitted when a completion resolves after its
	// originating conversation was deleted.
	EventReplyDropped EventType = "reply_dropped"
)

// ChangeEvent describes one store change delivered to subscribers.
type ChangeEvent struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId,omitempty"`
	MessageID      string    `json:"messageId,omitempty"`
	FolderID       string    `json:"folderId,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
