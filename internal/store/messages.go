package store

import (
	"github.com/capitalize-ai/chatstore/internal/model"
)

// AddMessage appends msg to the active conversation. It reports false when
// no conversation is active and the message was dropped.
func (s *Store) AddMessage(msg model.Message) bool {
	return s.appendMessage("add_message", "", msg)
}

// AddMessageTo appends msg to the given conversation regardless of which
// conversation is active.
func (s *Store) AddMessageTo(conversationID string, msg model.Message) bool {
	if conversationID == "" {
		return false
	}
	return s.appendMessage("add_message_to", conversationID, msg)
}

// appendMessage appends to conversationID, or to the active conversation
// when it is empty. A message without an id gets one; a message whose id is
// already present in the conversation is rejected. The first user message
// of an untitled conversation becomes its title.
func (s *Store) appendMessage(op, conversationID string, msg model.Message) bool {
	return s.mutate(op, func() (model.ChangeEvent, bool) {
		if conversationID == "" {
			conversationID = s.activeID
		}
		i := s.conversationIndex(conversationID)
		if i < 0 {
			return model.ChangeEvent{}, false
		}
		c := &s.conversations[i]

		msg = msg.Clone()
		msg.ConversationID = ""
		msg.ConversationTitle = ""
		if msg.ID == "" {
			msg.ID = s.newID()
		}
		if _, exists := c.Message(msg.ID); exists {
			return model.ChangeEvent{}, false
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = s.now()
		}

		c.Messages = append(c.Messages, msg)
		if c.Title == "" && msg.Sender == model.SenderUser {
			c.Title = deriveTitle(msg.Text)
		}
		c.Timestamp = s.now()

		ev := s.event(model.EventMessageAdded)
		ev.ConversationID = c.ID
		ev.MessageID = msg.ID
		return ev, true
	})
}

// deriveTitle cuts text to its first TitleLength characters, without
// trimming or an ellipsis.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleLength {
		return text
	}
	return string(runes[:TitleLength])
}

// DeleteMessage removes one message from a conversation.
func (s *Store) DeleteMessage(conversationID, messageID string) {
	s.mutate("delete_message", func() (model.ChangeEvent, bool) {
		c, j := s.messageLocked(conversationID, messageID)
		if c == nil {
			return model.ChangeEvent{}, false
		}
		c.Messages = append(c.Messages[:j], c.Messages[j+1:]...)

		ev := s.event(model.EventMessageDeleted)
		ev.ConversationID = conversationID
		ev.MessageID = messageID
		return ev, true
	})
}

// UpdateMessage applies patch to one message.
func (s *Store) UpdateMessage(conversationID, messageID string, patch model.MessagePatch) {
	s.updateMessage("update_message", conversationID, messageID, func(m *model.Message) bool {
		if patch.Text != nil {
			m.Text = *patch.Text
		}
		if patch.IsError != nil {
			m.IsError = *patch.IsError
		}
		if patch.Reactions != nil {
			m.Reactions = normalizeReactions(patch.Reactions)
		}
		if patch.Thread != nil {
			m.Thread = s.normalizeThread(patch.Thread)
		}
		return true
	})
}

// ToggleReaction adds reactor to the emoji's reactors, or removes it when
// already present. An emoji left without reactors is removed.
func (s *Store) ToggleReaction(conversationID, messageID, emoji, reactor string) {
	if emoji == "" || reactor == "" {
		return
	}
	s.updateMessage("toggle_reaction", conversationID, messageID, func(m *model.Message) bool {
		users := m.Reactions[emoji]
		kept := make([]string, 0, len(users)+1)
		removed := false
		for _, u := range users {
			if u == reactor {
				removed = true
				continue
			}
			kept = append(kept, u)
		}
		if !removed {
			kept = append(kept, reactor)
		}

		if m.Reactions == nil {
			m.Reactions = make(map[string][]string)
		}
		if len(kept) == 0 {
			delete(m.Reactions, emoji)
		} else {
			m.Reactions[emoji] = kept
		}
		if len(m.Reactions) == 0 {
			m.Reactions = nil
		}
		return true
	})
}

// AddReply appends reply to a message's thread.
func (s *Store) AddReply(conversationID, messageID string, reply model.Message) {
	s.updateMessage("add_reply", conversationID, messageID, func(m *model.Message) bool {
		reply := s.prepareReply(reply)
		for _, r := range m.Thread {
			if r.ID == reply.ID {
				return false
			}
		}
		m.Thread = append(m.Thread, reply)
		return true
	})
}

// prepareReply copies a thread reply, assigning a missing id and timestamp.
func (s *Store) prepareReply(reply model.Message) model.Message {
	reply = reply.Clone()
	reply.ConversationID = ""
	reply.ConversationTitle = ""
	if reply.ID == "" {
		reply.ID = s.newID()
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = s.now()
	}
	return reply
}

// normalizeThread prepares every reply the way AddReply does. A reply whose
// id repeats an earlier one is dropped.
func (s *Store) normalizeThread(in []model.Message) []model.Message {
	out := make([]model.Message, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, r := range in {
		r = s.prepareReply(r)
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

func (s *Store) updateMessage(op, conversationID, messageID string, apply func(*model.Message) bool) {
	s.mutate(op, func() (model.ChangeEvent, bool) {
		c, j := s.messageLocked(conversationID, messageID)
		if c == nil {
			return model.ChangeEvent{}, false
		}
		if !apply(&c.Messages[j]) {
			return model.ChangeEvent{}, false
		}

		ev := s.event(model.EventMessageUpdated)
		ev.ConversationID = conversationID
		ev.MessageID = messageID
		return ev, true
	})
}

func (s *Store) messageLocked(conversationID, messageID string) (*model.Conversation, int) {
	i := s.conversationIndex(conversationID)
	if i < 0 {
		return nil, -1
	}
	c := &s.conversations[i]
	for j := range c.Messages {
		if c.Messages[j].ID == messageID {
			return c, j
		}
	}
	return nil, -1
}

// normalizeReactions copies reactions, dropping duplicate reactors and
// emojis without reactors.
func normalizeReactions(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for emoji, users := range in {
		seen := make(map[string]bool, len(users))
		kept := make([]string, 0, len(users))
		for _, u := range users {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			kept = append(kept, u)
		}
		if emoji != "" && len(kept) > 0 {
			out[emoji] = kept
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Message returns a copy of one message.
func (s *Store) Message(conversationID, messageID string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, j := s.messageLocked(conversationID, messageID)
	if c == nil {
		return model.Message{}, false
	}
	return c.Messages[j].Clone(), true
}

// AllMessages flattens every conversation's messages, in conversation then
// message order, annotating each with its conversation id and title.
func (s *Store) AllMessages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, 0)
	for _, c := range s.conversations {
		for _, m := range c.Messages {
			m = m.Clone()
			m.ConversationID = c.ID
			m.ConversationTitle = c.Title
			out = append(out, m)
		}
	}
	return out
}
