package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chatstore/internal/model"
)

func sampleConversation() model.Conversation {
	ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	return model.Conversation{
		ID:        "c1",
		Title:     "Trip plans",
		Timestamp: ts,
		FolderID:  model.DefaultFolderID,
		Messages: []model.Message{
			{ID: "m1", Text: "Where should we go?", Sender: model.SenderUser, Timestamp: ts,
				Reactions: map[string][]string{"👍": {"user"}}},
			{ID: "m2", Text: "Lisbon, maybe.", Sender: model.SenderAI, Timestamp: ts.Add(time.Minute)},
			{ID: "m3", Text: model.VoicePlaceholderText, Sender: model.SenderUser, Type: model.MessageTypeVoice,
				AudioURL: "blob:1", Timestamp: ts.Add(2 * time.Minute)},
			{ID: "m4", Text: "[map.pdf](blob:2)", Sender: model.SenderUser, Type: model.MessageTypeFile,
				FileName: "map.pdf", Timestamp: ts.Add(3 * time.Minute)},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleConversation()))

	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"id\": \"c1\""))

	var got model.ConversationExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "Trip plans", got.Title)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, []string{"user"}, got.Messages[0].Reactions["👍"])
	assert.Equal(t, model.SenderAI, got.Messages[1].Sender)
}

func TestWriteJSON_EmptyConversation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, model.Conversation{ID: "empty"}))
	assert.Contains(t, buf.String(), `"messages": []`)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleConversation(), nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, TableHeader, rows[0])
	assert.Equal(t, []string{"2024-03-09 14:05:00", "You", "Where should we go?"}, rows[1])
	assert.Equal(t, []string{"2024-03-09 14:06:00", "Assistant", "Lisbon, maybe."}, rows[2])
	assert.Equal(t, "[Voice Message]", rows[3][2])
	assert.Equal(t, "[File: map.pdf]", rows[4][2])
}

func TestWriteTable_Location(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleConversation(), loc))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09 16:05:00", rows[1][0])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)
	assert.Equal(t, "chat-export-c1.csv", f.FileName("c1"))

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
