package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/capitalize-ai/chatstore/internal/model"
)

// SchemaVersion is the version tag written with every snapshot.
const SchemaVersion = 1

// ErrUnsupportedVersion is returned when a stored snapshot carries an
// unknown schema version.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

const timeLayout = time.RFC3339Nano

type wireState struct {
	Version              int                `json:"version"`
	Conversations        []wireConversation `json:"conversations"`
	ActiveConversationID *string            `json:"activeConversationId"`
	Folders              []model.Folder     `json:"folders"`
}

type wireConversation struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Messages     []wireMessage `json:"messages"`
	FolderID     string        `json:"folderId"`
	HomeFolderID string        `json:"homeFolderId,omitempty"`
	Timestamp    string        `json:"timestamp"`
	IsImportant  bool          `json:"isImportant"`
	IsArchived   bool          `json:"isArchived"`
}

type wireMessage struct {
	ID        string              `json:"id"`
	Text      string              `json:"text"`
	Sender    model.Sender        `json:"sender"`
	Timestamp string              `json:"timestamp"`
	Type      model.MessageType   `json:"type,omitempty"`
	IsError   bool                `json:"isError,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	Thread    []wireMessage       `json:"thread,omitempty"`
	AudioURL  string              `json:"audioUrl,omitempty"`
	FileName  string              `json:"fileName,omitempty"`
	FileSize  int64               `json:"fileSize,omitempty"`
	FileType  string              `json:"fileType,omitempty"`
}

// Encode serializes a snapshot into the versioned wire layout.
func Encode(s model.Snapshot) ([]byte, error) {
	w := wireState{
		Version:       SchemaVersion,
		Conversations: make([]wireConversation, 0, len(s.Conversations)),
		Folders:       s.Folders,
	}
	if s.ActiveConversationID != "" {
		id := s.ActiveConversationID
		w.ActiveConversationID = &id
	}
	for _, c := range s.Conversations {
		w.Conversations = append(w.Conversations, wireConversation{
			ID:           c.ID,
			Title:        c.Title,
			Messages:     encodeMessages(c.Messages),
			FolderID:     c.EffectiveFolderID(),
			HomeFolderID: c.FolderID,
			Timestamp:    formatTime(c.Timestamp),
			IsImportant:  c.IsImportant(),
			IsArchived:   c.IsArchived(),
		})
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses the wire layout back into a snapshot. It does not repair
// invariants; see Repair.
func Decode(data []byte) (model.Snapshot, error) {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if w.Version != SchemaVersion {
		return model.Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, w.Version)
	}

	s := model.Snapshot{
		Conversations: make([]model.Conversation, 0, len(w.Conversations)),
		Folders:       w.Folders,
	}
	if w.ActiveConversationID != nil {
		s.ActiveConversationID = *w.ActiveConversationID
	}
	for _, wc := range w.Conversations {
		ts, err := parseTime(wc.Timestamp)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("conversation %s: %w", wc.ID, err)
		}
		msgs, err := decodeMessages(wc.Messages)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("conversation %s: %w", wc.ID, err)
		}
		status, home := decodeStatus(wc)
		s.Conversations = append(s.Conversations, model.Conversation{
			ID:        wc.ID,
			Title:     wc.Title,
			Messages:  msgs,
			FolderID:  home,
			Timestamp: ts,
			Status:    status,
		})
	}
	return s, nil
}

// decodeStatus recovers the status and home folder. Records written without
// homeFolderId carry the reserved folder in folderId and fall back home to
// the default folder.
func decodeStatus(wc wireConversation) (model.Status, string) {
	status := model.StatusNormal
	switch {
	case wc.IsImportant && wc.IsArchived:
		status = model.StatusArchived
		if wc.FolderID == model.ImportantFolderID {
			status = model.StatusImportant
		}
	case wc.IsArchived:
		status = model.StatusArchived
	case wc.IsImportant:
		status = model.StatusImportant
	}

	home := wc.HomeFolderID
	if home == "" {
		home = wc.FolderID
		if home == model.ImportantFolderID || home == model.ArchivedFolderID {
			home = model.DefaultFolderID
		}
	}
	return status, home
}

func encodeMessages(msgs []model.Message) []wireMessage {
	if msgs == nil {
		return []wireMessage{}
	}
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := wireMessage{
			ID:        m.ID,
			Text:      m.Text,
			Sender:    m.Sender,
			Timestamp: formatTime(m.Timestamp),
			Type:      m.Type,
			IsError:   m.IsError,
			Reactions: m.Reactions,
			AudioURL:  m.AudioURL,
			FileName:  m.FileName,
			FileSize:  m.FileSize,
			FileType:  m.FileType,
		}
		if len(m.Thread) > 0 {
			wm.Thread = encodeMessages(m.Thread)
		}
		out = append(out, wm)
	}
	return out
}

func decodeMessages(wms []wireMessage) ([]model.Message, error) {
	out := make([]model.Message, 0, len(wms))
	for _, wm := range wms {
		ts, err := parseTime(wm.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", wm.ID, err)
		}
		m := model.Message{
			ID:        wm.ID,
			Text:      wm.Text,
			Sender:    wm.Sender,
			Timestamp: ts,
			Type:      wm.Type,
			IsError:   wm.IsError,
			Reactions: wm.Reactions,
			AudioURL:  wm.AudioURL,
			FileName:  wm.FileName,
			FileSize:  wm.FileSize,
			FileType:  wm.FileType,
		}
		if len(wm.Thread) > 0 {
			if m.Thread, err = decodeMessages(wm.Thread); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
