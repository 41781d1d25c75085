package model

// Snapshot is the full store state: the unit of durability.
type Snapshot struct {
	Conversations        []Conversation
	Folders              []Folder
	ActiveConversationID string
}

// SeedSnapshot returns the state of a store that has never been persisted.
func SeedSnapshot() Snapshot {
	return Snapshot{
		Conversations: []Conversation{},
		Folders:       SeedFolders(),
	}
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Conversations:        make([]Conversation, len(s.Conversations)),
		Folders:              append([]Folder(nil), s.Folders...),
		ActiveConversationID: s.ActiveConversationID,
	}
	for i, c := range s.Conversations {
		out.Conversations[i] = c.Clone()
	}
	return out
}

// Preferences holds presentation settings persisted next to the chat state.
type Preferences struct {
	CurrentTheme string `json:"currentTheme"`
	FontSize     string `json:"fontSize"`
}

var (
	themes    = []string{"dark", "light", "cyberpunk", "forest"}
	fontSizes = []string{"sm", "base", "lg"}
)

// DefaultPreferences returns the initial presentation settings.
func DefaultPreferences() Preferences {
	return Preferences{CurrentTheme: "dark", FontSize: "base"}
}

// Themes lists the selectable themes.
func Themes() []string { return append([]string(nil), themes...) }

// FontSizes lists the selectable font sizes.
func FontSizes() []string { return append([]string(nil), fontSizes...) }

// Valid reports whether both settings are known values.
func (p Preferences) Valid() bool {
	return contains(themes, p.CurrentTheme) && contains(fontSizes, p.FontSize)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
