package store

import (
	"github.com/capitalize-ai/chatstore/internal/model"
)

// AddFolder creates a folder and returns its id.
func (s *Store) AddFolder(name string) string {
	var id string
	s.mutate("add_folder", func() (model.ChangeEvent, bool) {
		id = s.newID()
		s.folders = append(s.folders, model.Folder{ID: id, Name: name})

		ev := s.event(model.EventFolderCreated)
		ev.FolderID = id
		return ev, true
	})
	return id
}

// DeleteFolder moves every conversation homed in the folder to the default
// folder, then removes the folder. Built-in folders are never removed.
func (s *Store) DeleteFolder(id string) {
	s.mutate("delete_folder", func() (model.ChangeEvent, bool) {
		i := s.folderIndex(id)
		if i < 0 || s.folders[i].Reserved() {
			return model.ChangeEvent{}, false
		}

		home := s.defaultFolderLocked().ID
		for j := range s.conversations {
			if s.conversations[j].FolderID == id {
				s.conversations[j].FolderID = home
			}
		}
		s.folders = append(s.folders[:i], s.folders[i+1:]...)

		ev := s.event(model.EventFolderDeleted)
		ev.FolderID = id
		return ev, true
	})
}

// UpdateFolder applies patch to a folder.
func (s *Store) UpdateFolder(id string, patch model.FolderPatch) {
	s.mutate("update_folder", func() (model.ChangeEvent, bool) {
		i := s.folderIndex(id)
		if i < 0 {
			return model.ChangeEvent{}, false
		}
		if patch.Name != nil {
			s.folders[i].Name = *patch.Name
		}

		ev := s.event(model.EventFolderUpdated)
		ev.FolderID = id
		return ev, true
	})
}

// Folder returns the folder with the given id.
func (s *Store) Folder(id string) (model.Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.folderIndex(id)
	if i < 0 {
		return model.Folder{}, false
	}
	return s.folders[i], true
}

// Folders returns all folders in insertion order.
func (s *Store) Folders() []model.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Folder(nil), s.folders...)
}

// DefaultFolder returns the folder flagged as default.
func (s *Store) DefaultFolder() model.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultFolderLocked()
}

func (s *Store) defaultFolderLocked() model.Folder {
	for _, f := range s.folders {
		if f.IsDefault {
			return f
		}
	}
	return model.SeedFolders()[0]
}
