package store

import (
	"github.com/capitalize-ai/chatstore/internal/model"
)

// AddConversation creates an empty conversation in the default folder,
// makes it active and returns its id.
func (s *Store) AddConversation() string {
	var id string
	s.mutate("add_conversation", func() (model.ChangeEvent, bool) {
		id = s.newID()
		s.conversations = append(s.conversations, model.Conversation{
			ID:        id,
			Messages:  []model.Message{},
			FolderID:  s.defaultFolderLocked().ID,
			Timestamp: s.now(),
			Status:    model.StatusNormal,
		})
		s.activeID = id

		ev := s.event(model.EventConversationCreated)
		ev.ConversationID = id
		return ev, true
	})
	return id
}

// DeleteConversation removes a conversation and its messages. If it was
// active, no conversation is active afterwards.
func (s *Store) DeleteConversation(id string) {
	s.mutate("delete_conversation", func() (model.ChangeEvent, bool) {
		i := s.conversationIndex(id)
		if i < 0 {
			return model.ChangeEvent{}, false
		}
		s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
		if s.activeID == id {
			s.activeID = ""
		}

		ev := s.event(model.EventConversationDeleted)
		ev.ConversationID = id
		return ev, true
	})
}

// UpdateConversation applies patch to a conversation. A patch naming an
// unknown folder or an invalid status is ignored as a whole. Moving into the
// important or archived folder sets the matching status; moving into any
// other folder makes it the home folder and resets the status to normal.
func (s *Store) UpdateConversation(id string, patch model.ConversationPatch) {
	s.mutate("update_conversation", func() (model.ChangeEvent, bool) {
		i := s.conversationIndex(id)
		if i < 0 {
			return model.ChangeEvent{}, false
		}
		if patch.FolderID != nil && s.folderIndex(*patch.FolderID) < 0 {
			return model.ChangeEvent{}, false
		}
		if patch.Status != nil && !patch.Status.Valid() {
			return model.ChangeEvent{}, false
		}

		c := &s.conversations[i]
		if patch.Title != nil {
			c.Title = *patch.Title
		}
		if patch.FolderID != nil {
			switch *patch.FolderID {
			case model.ImportantFolderID:
				c.Status = model.StatusImportant
			case model.ArchivedFolderID:
				c.Status = model.StatusArchived
			default:
				c.FolderID = *patch.FolderID
				c.Status = model.StatusNormal
			}
		}
		if patch.Status != nil {
			c.Status = *patch.Status
		}

		ev := s.event(model.EventConversationUpdated)
		ev.ConversationID = id
		return ev, true
	})
}

// SetActiveConversation selects the conversation that receives appended
// messages. An empty id clears the selection; an unknown id is ignored.
func (s *Store) SetActiveConversation(id string) {
	s.mutate("set_active_conversation", func() (model.ChangeEvent, bool) {
		if id != "" && s.conversationIndex(id) < 0 {
			return model.ChangeEvent{}, false
		}
		s.activeID = id

		ev := s.event(model.EventActiveChanged)
		ev.ConversationID = id
		return ev, true
	})
}

// ActiveConversationID returns the active conversation id, or "".
func (s *Store) ActiveConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// ActiveConversation returns a copy of the active conversation.
func (s *Store) ActiveConversation() (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.conversationIndex(s.activeID)
	if i < 0 {
		return model.Conversation{}, false
	}
	return s.conversations[i].Clone(), true
}

// Conversation returns a copy of the conversation with the given id.
func (s *Store) Conversation(id string) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.conversationIndex(id)
	if i < 0 {
		return model.Conversation{}, false
	}
	return s.conversations[i].Clone(), true
}

// Conversations returns copies of all conversations in insertion order.
func (s *Store) Conversations() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// ConversationsInFolder returns copies of the conversations listed under a folder.
func (s *Store) ConversationsInFolder(folderID string) []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, 0)
	for _, c := range s.conversations {
		if c.EffectiveFolderID() == folderID {
			out = append(out, c.Clone())
		}
	}
	return out
}

// MarkAsImportant moves a conversation into the important folder.
func (s *Store) MarkAsImportant(id string) {
	s.setStatus("mark_important", id, model.StatusImportant, "")
}

// UnmarkAsImportant returns an important conversation to its home folder.
func (s *Store) UnmarkAsImportant(id string) {
	s.setStatus("unmark_important", id, model.StatusNormal, model.StatusImportant)
}

// ArchiveConversation moves a conversation into the archived folder.
func (s *Store) ArchiveConversation(id string) {
	s.setStatus("archive_conversation", id, model.StatusArchived, "")
}

// UnarchiveConversation returns an archived conversation to its home folder.
func (s *Store) UnarchiveConversation(id string) {
	s.setStatus("unarchive_conversation", id, model.StatusNormal, model.StatusArchived)
}

// setStatus sets the status of a conversation. When from is non-empty the
// change only applies if the conversation currently has that status.
func (s *Store) setStatus(op, id string, to, from model.Status) {
	s.mutate(op, func() (model.ChangeEvent, bool) {
		i := s.conversationIndex(id)
		if i < 0 {
			return model.ChangeEvent{}, false
		}
		c := &s.conversations[i]
		if from != "" && c.Status != from {
			return model.ChangeEvent{}, false
		}
		c.Status = to

		ev := s.event(model.EventConversationUpdated)
		ev.ConversationID = id
		return ev, true
	})
}
