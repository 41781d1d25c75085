package model

import (
	"fmt"
	"strings"
	"time"
)

// Sender represents who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// MessageType classifies the payload of a message. The zero value means text.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// IsText reports whether t is the text type, including the unset value.
func (t MessageType) IsText() bool {
	return t == "" || t == MessageTypeText
}

const (
	// VoicePlaceholderText is the text carried by voice messages.
	VoicePlaceholderText = "[Voice Message]"

	// ErrorReplyText is shown in place of a reply when the completion call fails.
	ErrorReplyText = "I apologize, but I encountered an error. Please try again."
)

// Message represents one turn in a conversation.
type Message struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type,omitempty"`
	IsError   bool        `json:"isError,omitempty"`

	// Reactions maps an emoji to the ids of the reactors. Each reactor
	// appears at most once per emoji.
	Reactions map[string][]string `json:"reactions,omitempty"`
	Thread    []Message           `json:"thread,omitempty"`

	// Payload for voice, image and file messages.
	AudioURL string `json:"audioUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	FileType string `json:"fileType,omitempty"`

	// Populated only on flattened copies.
	ConversationID    string `json:"conversationId,omitempty"`
	ConversationTitle string `json:"conversationTitle,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			out.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	if m.Thread != nil {
		out.Thread = make([]Message, len(m.Thread))
		for i, r := range m.Thread {
			out.Thread[i] = r.Clone()
		}
	}
	return out
}

// HasReaction reports whether reactor reacted with emoji.
func (m Message) HasReaction(emoji, reactor string) bool {
	for _, u := range m.Reactions[emoji] {
		if u == reactor {
			return true
		}
	}
	return false
}

// MessagePatch holds the patchable message fields. Nil means unchanged; an
// empty non-nil Reactions map clears all reactions.
type MessagePatch struct {
	Text      *string             `json:"text,omitempty"`
	IsError   *bool               `json:"isError,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	Thread    []Message           `json:"thread,omitempty"`
}

// NewTextMessage builds a plain text message.
func NewTextMessage(sender Sender, text string) Message {
	return Message{
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// NewErrorReply builds the flagged reply inserted when a completion fails.
func NewErrorReply() Message {
	m := NewTextMessage(SenderAI, ErrorReplyText)
	m.IsError = true
	return m
}

// NewVoiceMessage builds a user voice message pointing at a recording.
func NewVoiceMessage(audioURL string) Message {
	m := NewTextMessage(SenderUser, VoicePlaceholderText)
	m.Type = MessageTypeVoice
	m.AudioURL = audioURL
	return m
}

// NewFileMessage builds a user upload message. Images are referenced with
// markdown image syntax, other files with a link.
func NewFileMessage(name string, size int64, mimeType, url string) Message {
	m := NewTextMessage(SenderUser, "")
	m.FileName = name
	m.FileSize = size
	m.FileType = mimeType
	if strings.HasPrefix(mimeType, "image/") {
		m.Type = MessageTypeImage
		m.Text = fmt.Sprintf("![%s](%s)", name, url)
	} else {
		m.Type = MessageTypeFile
		m.Text = fmt.Sprintf("[%s](%s)", name, url)
	}
	return m
}

// SendMessageRequest is the request to send a message and get a reply.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendVoiceRequest attaches a recorded voice message.
type SendVoiceRequest struct {
	AudioURL string `json:"audioUrl"`
}

// FileUpload describes one uploaded file.
type FileUpload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// SendFilesRequest attaches uploaded files, one message per file.
type SendFilesRequest struct {
	Files []FileUpload `json:"files"`
}

// SendMessageResponse carries both turns of an exchange.
type SendMessageResponse struct {
	ConversationID string   `json:"conversationId"`
	UserMessage    Message  `json:"userMessage"`
	Reply          *Message `json:"reply,omitempty"`
	ReplyDropped   bool     `json:"replyDropped,omitempty"`
}

// TokenEvent represents a streaming token event.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
