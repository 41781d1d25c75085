package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chatstore/internal/model"
)

func sampleSnapshot() model.Snapshot {
	base := time.Date(2024, 5, 10, 9, 30, 0, 123456789, time.UTC)
	folders := append(model.SeedFolders(), model.Folder{ID: "work", Name: "Work"})
	return model.Snapshot{
		Folders:              folders,
		ActiveConversationID: "c2",
		Conversations: []model.Conversation{
			{
				ID:        "c1",
				Title:     "Hello there",
				FolderID:  "work",
				Timestamp: base,
				Status:    model.StatusImportant,
				Messages: []model.Message{
					{
						ID:        "m1",
						Text:      "Hello there",
						Sender:    model.SenderUser,
						Timestamp: base,
						Reactions: map[string][]string{"👍": {"user"}},
						Thread: []model.Message{
							{ID: "r1", Text: "reply", Sender: model.SenderUser, Timestamp: base.Add(time.Minute), Type: model.MessageTypeText},
						},
					},
					{ID: "m2", Text: "Hi!", Sender: model.SenderAI, Timestamp: base.Add(time.Second)},
				},
			},
			{
				ID:        "c2",
				FolderID:  model.DefaultFolderID,
				Timestamp: base.Add(time.Hour),
				Status:    model.StatusNormal,
				Messages: []model.Message{
					{ID: "v1", Text: model.VoicePlaceholderText, Sender: model.SenderUser, Timestamp: base.Add(time.Hour),
						Type: model.MessageTypeVoice, AudioURL: "blob:voice"},
					{ID: "f1", Text: "[a.pdf](blob:a)", Sender: model.SenderUser, Timestamp: base.Add(time.Hour),
						Type: model.MessageTypeFile, FileName: "a.pdf", FileSize: 2048, FileType: "application/pdf"},
					{ID: "e1", Text: model.ErrorReplyText, Sender: model.SenderAI, Timestamp: base.Add(time.Hour), IsError: true},
				},
			},
		},
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	want := sampleSnapshot()

	require.NoError(t, a.Save(want))
	got := a.Load()

	assert.Equal(t, want, got)
}

func TestAdapter_RoundTripComparesInstants(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 1, 1, 14, 0, 0, 0, loc)

	snap := model.SeedSnapshot()
	snap.Conversations = []model.Conversation{{
		ID: "c1", FolderID: model.DefaultFolderID, Timestamp: ts, Status: model.StatusNormal,
		Messages: []model.Message{{ID: "m1", Text: "x", Sender: model.SenderUser, Timestamp: ts}},
	}}
	require.NoError(t, a.Save(snap))

	got := a.Load()
	require.Len(t, got.Conversations, 1)
	assert.True(t, got.Conversations[0].Timestamp.Equal(ts))
	assert.True(t, got.Conversations[0].Messages[0].Timestamp.Equal(ts))
}

func TestAdapter_LoadSeedsWhenAbsent(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	assert.Equal(t, model.SeedSnapshot(), a.Load())
}

func TestAdapter_LoadSeedsOnCorruptRecord(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Put(context.Background(), DefaultKey, []byte("{not json")))

	assert.Equal(t, model.SeedSnapshot(), NewAdapter(b).Load())
}

func TestAdapter_LoadSeedsOnUnknownVersion(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Put(context.Background(), DefaultKey,
		[]byte(`{"version":7,"conversations":[],"activeConversationId":null,"folders":[]}`)))

	assert.Equal(t, model.SeedSnapshot(), NewAdapter(b).Load())
}

func TestAdapter_LoadSeedsOnReadError(t *testing.T) {
	b := NewMemoryBackend()
	b.GetErr = errors.New("disk on fire")

	assert.Equal(t, model.SeedSnapshot(), NewAdapter(b).Load())
}

func TestAdapter_LoadSeedsOnBadTimestamp(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Put(context.Background(), DefaultKey,
		[]byte(`{"version":1,"conversations":[{"id":"c1","title":"","messages":[],"folderId":"default","timestamp":"yesterday"}],"activeConversationId":null,"folders":[]}`)))

	assert.Equal(t, model.SeedSnapshot(), NewAdapter(b).Load())
}

func TestAdapter_SaveReportsBackendFailure(t *testing.T) {
	b := NewMemoryBackend()
	b.PutErr = errors.New("quota exceeded")

	err := NewAdapter(b).Save(sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDecode_LegacyRecordWithoutHomeFolder(t *testing.T) {
	data := []byte(`{"version":1,"activeConversationId":"1","folders":[{"id":"default","name":"All Chats","isDefault":true},{"id":"important","name":"Important"},{"id":"archived","name":"Archived"}],
		"conversations":[{"id":"1","title":"t","messages":[],"folderId":"important","timestamp":"2024-01-01T00:00:00.000Z","isImportant":true,"isArchived":false}]}`)

	snap, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, snap.Conversations, 1)

	c := snap.Conversations[0]
	assert.Equal(t, model.StatusImportant, c.Status)
	assert.Equal(t, model.DefaultFolderID, c.FolderID)
	assert.Equal(t, model.ImportantFolderID, c.EffectiveFolderID())
	assert.Equal(t, "1", snap.ActiveConversationID)
}

func TestRepair(t *testing.T) {
	snap := model.Snapshot{
		Folders: []model.Folder{
			{ID: "custom", Name: "Custom", IsDefault: true},
			{ID: "custom", Name: "Dup"},
		},
		ActiveConversationID: "gone",
		Conversations: []model.Conversation{
			{ID: "c1", FolderID: "missing", Status: "bogus", Messages: []model.Message{{ID: "m"}, {ID: "m"}, {ID: "n"}}},
			{ID: "c1", FolderID: "custom"},
		},
	}

	got := Repair(snap)

	defaults := 0
	for _, f := range got.Folders {
		if f.IsDefault {
			defaults++
			assert.Equal(t, model.DefaultFolderID, f.ID)
		}
	}
	assert.Equal(t, 1, defaults)
	assert.Len(t, got.Folders, 4)

	require.Len(t, got.Conversations, 1)
	assert.Equal(t, model.DefaultFolderID, got.Conversations[0].FolderID)
	assert.Equal(t, model.StatusNormal, got.Conversations[0].Status)
	assert.Len(t, got.Conversations[0].Messages, 2)
	assert.Empty(t, got.ActiveConversationID)
}

func TestAdapter_Preferences(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	assert.Equal(t, model.DefaultPreferences(), a.LoadPreferences())

	prefs := model.Preferences{CurrentTheme: "forest", FontSize: "lg"}
	require.NoError(t, a.SavePreferences(prefs))
	assert.Equal(t, prefs, a.LoadPreferences())
}

func TestAdapter_PreferencesInvalidFallsBack(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Put(context.Background(), DefaultPreferencesKey, []byte(`{"currentTheme":"neon","fontSize":"xl"}`)))

	assert.Equal(t, model.DefaultPreferences(), NewAdapter(b).LoadPreferences())
}

func TestFileBackend_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	_, err = b.Get(context.Background(), DefaultKey)
	require.ErrorIs(t, err, ErrNotFound)

	a := NewAdapter(b)
	want := sampleSnapshot()
	require.NoError(t, a.Save(want))
	require.NoError(t, a.Save(want))

	reopened, err := NewFileBackend(dir)
	require.NoError(t, err)
	assert.Equal(t, want, NewAdapter(reopened).Load())

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPebbleBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pebble")
	b, err := OpenPebble(path)
	require.NoError(t, err)

	_, err = b.Get(context.Background(), DefaultKey)
	require.ErrorIs(t, err, ErrNotFound)

	want := sampleSnapshot()
	require.NoError(t, NewAdapter(b).Save(want))
	require.NoError(t, b.Close())

	reopened, err := OpenPebble(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, want, NewAdapter(reopened).Load())
}

func TestAdapter_Check(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	assert.NoError(t, a.Check(context.Background()))

	b := NewMemoryBackend()
	b.GetErr = errors.New("disk gone")
	assert.ErrorContains(t, NewAdapter(b).Check(context.Background()), "disk gone")
}
