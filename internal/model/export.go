package model

import (
	"fmt"
	"time"
)

// ConversationExport is the JSON projection handed to exporters.
type ConversationExport struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"createdAt"`
	Messages  []MessageExport `json:"messages"`
}

// MessageExport is one message inside a ConversationExport.
type MessageExport struct {
	ID        string              `json:"id"`
	Sender    Sender              `json:"sender"`
	Type      MessageType         `json:"type,omitempty"`
	Text      string              `json:"text"`
	Timestamp time.Time           `json:"timestamp"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

// Export projects the conversation into its export shape.
func (c Conversation) Export() ConversationExport {
	out := ConversationExport{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.Timestamp,
		Messages:  make([]MessageExport, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		m = m.Clone()
		out.Messages = append(out.Messages, MessageExport{
			ID:        m.ID,
			Sender:    m.Sender,
			Type:      m.Type,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Reactions: m.Reactions,
		})
	}
	return out
}

// SenderLabel is the human label used in tabular exports.
func (m Message) SenderLabel() string {
	if m.Sender == SenderAI {
		return "Assistant"
	}
	return "You"
}

// DisplayText is the message text as shown in tabular exports.
func (m Message) DisplayText() string {
	switch m.Type {
	case MessageTypeVoice:
		return VoicePlaceholderText
	case MessageTypeFile:
		return fmt.Sprintf("[File: %s]", m.FileName)
	}
	return m.Text
}
