package model

// Built-in folder IDs. These folders are always present and cannot be deleted.
const (
	DefaultFolderID   = "default"
	ImportantFolderID = "important"
	ArchivedFolderID  = "archived"
)

// Folder is a named grouping of conversations.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Reserved reports whether the folder is one of the built-in folders.
func (f Folder) Reserved() bool {
	return IsReservedFolder(f.ID)
}

// IsReservedFolder reports whether id names a built-in folder.
func IsReservedFolder(id string) bool {
	switch id {
	case DefaultFolderID, ImportantFolderID, ArchivedFolderID:
		return true
	}
	return false
}

// FolderPatch holds the mutable folder fields. The default flag is not patchable.
type FolderPatch struct {
	Name *string `json:"name,omitempty"`
}

// SeedFolders returns the folders every fresh store starts with.
func SeedFolders() []Folder {
	return []Folder{
		{ID: DefaultFolderID, Name: "All Chats", IsDefault: true},
		{ID: ImportantFolderID, Name: "Important"},
		{ID: ArchivedFolderID, Name: "Archived"},
	}
}
