package persist

import (
	"github.com/capitalize-ai/chatstore/internal/model"
)

// Repair restores the store invariants on a decoded snapshot: the built-in
// folders exist and only the default one is flagged default, every
// conversation's home folder resolves, message ids are unique per
// conversation, and the active id resolves or is empty.
func Repair(s model.Snapshot) model.Snapshot {
	out := model.Snapshot{
		Conversations: make([]model.Conversation, 0, len(s.Conversations)),
	}

	folderIDs := make(map[string]bool)
	for _, f := range s.Folders {
		if f.ID == "" || folderIDs[f.ID] {
			continue
		}
		f.IsDefault = f.ID == model.DefaultFolderID
		folderIDs[f.ID] = true
		out.Folders = append(out.Folders, f)
	}
	for _, seed := range model.SeedFolders() {
		if !folderIDs[seed.ID] {
			folderIDs[seed.ID] = true
			out.Folders = append(out.Folders, seed)
		}
	}

	convIDs := make(map[string]bool)
	for _, c := range s.Conversations {
		if c.ID == "" || convIDs[c.ID] {
			continue
		}
		convIDs[c.ID] = true

		if !c.Status.Valid() {
			c.Status = model.StatusNormal
		}
		if !folderIDs[c.FolderID] || c.FolderID == model.ImportantFolderID || c.FolderID == model.ArchivedFolderID {
			c.FolderID = model.DefaultFolderID
		}

		seen := make(map[string]bool, len(c.Messages))
		msgs := make([]model.Message, 0, len(c.Messages))
		for _, m := range c.Messages {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			msgs = append(msgs, m)
		}
		c.Messages = msgs

		out.Conversations = append(out.Conversations, c)
	}

	if convIDs[s.ActiveConversationID] {
		out.ActiveConversationID = s.ActiveConversationID
	}
	return out
}
